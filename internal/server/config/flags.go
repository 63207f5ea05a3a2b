package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophtasks/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-m string   gRPC health bind address (e.g., ":50051")
//	-d string   PostgreSQL DSN
//	-f string   attachment storage backend: fs or s3
//	-l string   attachment directory for the fs backend
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-z int      max attachment size, KiB
//	-s string   API token secret key
//	-t int      token validity, minutes
//	-v string   log level
//	-w int      shutdown timeout, seconds
//	-o string   time zone for due-date rules
//
// Only the flags above are picked out of os.Args (via flagx.FilterArgs), so
// -c/-config and flags of other components do not collide.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-m", "-d", "-f", "-l", "-u", "-p", "-b", "-g", "-e", "-z", "-s", "-t", "-v", "-w", "-o",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run the HTTP API")
	fs.StringVar(&config.EndpointAddrGRPC, "m", config.EndpointAddrGRPC, "address and port to run the gRPC health endpoint")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.StorageBackend, "f", config.StorageBackend, "attachment storage backend (fs|s3)")
	fs.StringVar(&config.StorageRoot, "l", config.StorageRoot, "attachment directory for the fs backend")
	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	maxAttachmentKiB := fs.Int64("z", config.MaxAttachmentSize>>10, "max attachment size (in KiB)")

	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key for API tokens")
	tokenValidity := fs.Int("t", int(config.TokenValidityDuration.Minutes()), "token validity (in minutes)")
	fs.StringVar(&config.LogLevel, "v", config.LogLevel, "log level")
	shutdownTimeout := fs.Int("w", int(config.ShutdownTimeout.Seconds()), "shutdown timeout (in seconds)")
	fs.StringVar(&config.TimeZone, "o", config.TimeZone, "time zone used for due dates")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxAttachmentSize = *maxAttachmentKiB << 10
	config.TokenValidityDuration = time.Duration(*tokenValidity) * time.Minute
	config.ShutdownTimeout = time.Duration(*shutdownTimeout) * time.Second
}
