package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-pricing/internal/app"
	"github.com/noah-isme/backend-pricing/internal/config"
)

// Mints an HS256 admin token for the /api/v1/admin endpoints.
func main() {
	subject := flag.String("sub", "ops", "token subject")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	now := time.Now().UTC()
	tok, err := app.NewJWTBuilder().
		Issuer(cfg.AdminJWTIssuer).
		Audience([]string{cfg.AdminJWTAudience}).
		Subject(*subject).
		Claim("role", "admin").
		IssuedAt(now).
		Expiration(now.Add(*ttl)).
		Build()
	if err != nil {
		log.Fatalf("Failed to build token: %v", err)
	}

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte(cfg.AdminJWTSecret)))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(string(signed))
}
