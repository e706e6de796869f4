// Command admin-token mints a signed admin token for the preview relay and the library endpoints.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/nowplaying/internal/adapter/auth"
)

const (
	defaultTTL      = 30 * 24 * time.Hour
	minSecretLength = 32
	maxTTL          = 365 * 24 * time.Hour
	usernameEnv     = "ADMIN_USERNAME"
	secretEnv       = "ADMIN_TOKEN_SECRET" //nolint:gosec // variable name, not a credential
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout, os.Getenv, clockwork.NewRealClock()); err != nil {
		log.Fatalf("admin-token: %v", err)
	}
}

func run(args []string, stdout io.Writer, getenv func(string) string, clock clockwork.Clock) error {
	fs := flag.NewFlagSet("admin-token", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var (
		username = fs.String("username", getenv(usernameEnv), "Admin username (or set "+usernameEnv+")")
		secret   = fs.String("secret", getenv(secretEnv), "Signing secret (or set "+secretEnv+")")
		ttl      = fs.Duration("ttl", defaultTTL, "How long the token stays valid")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *username == "" || *secret == "" {
		return errors.New(usernameEnv + " and " + secretEnv + " are required")
	}
	if len(*secret) < minSecretLength {
		return fmt.Errorf("%s must be at least %d characters", secretEnv, minSecretLength)
	}
	if *ttl <= 0 || *ttl > maxTTL {
		return fmt.Errorf("ttl must be positive and at most %s", maxTTL)
	}

	token, err := auth.NewTokenAuthenticator(*secret, *username, clock).IssueToken(*ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}
