// Command token mints a bearer token for the ticket API write endpoints.
package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/spec-kit/ticket-tracker/internal/auth"
	"github.com/spec-kit/ticket-tracker/internal/config"
)

func main() {
	var (
		envFiles []string
		owner    string
		ttl      int
	)
	pflag.StringSliceVar(&envFiles, "env-file", nil, "env file(s) to load before reading the environment")
	pflag.StringVar(&owner, "owner", "", "owner name the token is issued to (required)")
	pflag.IntVar(&ttl, "ttl-minutes", 0, "token lifetime; defaults to AUTH_ACCESS_TOKEN_TTL_MINUTES")
	pflag.Parse()

	cfg, err := config.Load(envFiles...)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if !cfg.Auth.Enabled() {
		log.Fatal("AUTH_JWT_SECRET is not set")
	}
	if ttl <= 0 {
		ttl = cfg.Auth.AccessTokenTTLMinutes
	}

	token, expiresAt, err := auth.NewTokenManager(cfg.Auth.JWTSecret, ttl).GenerateToken(owner)
	if err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		pflag.Usage()
		os.Exit(2)
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires %s\n", expiresAt.Format(time.RFC3339))
}
