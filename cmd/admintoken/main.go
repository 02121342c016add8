// Command admintoken issues a bearer token for the /v1/admin endpoints,
// signed with the same key the API loads from its configuration.
//
//	JWT_SIGNING_KEY=... admintoken -subject ops@example.org
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/elninowatch/elninowatch/internal/auth"
	"github.com/elninowatch/elninowatch/internal/config"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	subject := flag.String("subject", "", "token subject, usually the operator's email (required)")
	expiry := flag.Duration("expiry", auth.DefaultExpiry, "token lifetime")
	flag.Parse()

	if *subject == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.Auth.JWTSigningKey == "" {
		log.Warn().Msg("JWT_SIGNING_KEY not set, signing with the development key")
	}

	tokens := auth.NewJWTService(auth.JWTConfig{
		SigningKey: cfg.SigningKey(),
		Expiry:     *expiry,
	})
	token, expiresAt, err := tokens.Issue(*subject, auth.RoleAdmin)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to issue token")
	}

	log.Info().
		Str("subject", *subject).
		Str("expires_at", expiresAt.UTC().Format(time.RFC3339)).
		Msg("admin token issued")
	fmt.Println(token)
}
