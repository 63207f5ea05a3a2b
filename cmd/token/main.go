// Command token mints a bearer token for the task API using the server's
// configured secret key.
package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophtasks/internal/server/auth"
	"github.com/dmitrijs2005/gophtasks/internal/server/config"
)

func main() {
	cfg := config.LoadConfig()

	subject := os.Getenv(config.EnvPrefix + "TOKEN_SUBJECT")
	if subject == "" {
		subject = "owner"
	}

	if cfg.SecretKey == "" {
		fmt.Fprintln(os.Stderr, "secret key is not configured (-s or "+config.EnvPrefix+"SECRET_KEY)")
		os.Exit(2)
	}

	tok, err := auth.GenerateToken(subject, []byte(cfg.SecretKey), cfg.TokenValidityDuration)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(tok)
}
