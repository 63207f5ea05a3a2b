package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by parseEnv.
const EnvPrefix = "GOPHTASKS_"

// dotenvFile is the file loaded into the process environment before the
// variables are read. Variables already set in the environment win.
var dotenvFile = ".env"

// parseEnv overlays GOPHTASKS_* environment variables onto config.
//
// Recognised variables (without the prefix):
//
//	HTTP_ADDR, GRPC_ADDR, DATABASE_DSN, STORAGE_BACKEND, STORAGE_ROOT,
//	S3_ROOT_USER, S3_ROOT_PASSWORD, S3_BUCKET, S3_REGION, S3_BASE_ENDPOINT,
//	MAX_ATTACHMENT_SIZE (bytes), SECRET_KEY, TOKEN_VALIDITY ("24h"),
//	LOG_LEVEL, SHUTDOWN_TIMEOUT ("5s"), TIME_ZONE
//
// Malformed numeric or duration values panic, like malformed JSON does.
func parseEnv(config *Config) {
	// a missing .env is normal outside development
	_ = godotenv.Load(dotenvFile)

	envString(&config.EndpointAddrHTTP, "HTTP_ADDR")
	envString(&config.EndpointAddrGRPC, "GRPC_ADDR")
	envString(&config.DatabaseDSN, "DATABASE_DSN")
	envString(&config.StorageBackend, "STORAGE_BACKEND")
	envString(&config.StorageRoot, "STORAGE_ROOT")
	envString(&config.S3RootUser, "S3_ROOT_USER")
	envString(&config.S3RootPassword, "S3_ROOT_PASSWORD")
	envString(&config.S3Bucket, "S3_BUCKET")
	envString(&config.S3Region, "S3_REGION")
	envString(&config.S3BaseEndpoint, "S3_BASE_ENDPOINT")
	envString(&config.SecretKey, "SECRET_KEY")
	envString(&config.LogLevel, "LOG_LEVEL")
	envString(&config.TimeZone, "TIME_ZONE")

	if v, ok := os.LookupEnv(EnvPrefix + "MAX_ATTACHMENT_SIZE"); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			panic(err)
		}
		config.MaxAttachmentSize = n
	}

	envDuration(&config.TokenValidityDuration, "TOKEN_VALIDITY")
	envDuration(&config.ShutdownTimeout, "SHUTDOWN_TIMEOUT")
}

func envString(dst *string, name string) {
	if v, ok := os.LookupEnv(EnvPrefix + name); ok {
		*dst = v
	}
}

func envDuration(dst *time.Duration, name string) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		panic(err)
	}
	*dst = d
}
