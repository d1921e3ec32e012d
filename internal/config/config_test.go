package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresCoreSettings(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("ADMIN_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pricing")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("RULES_CACHE_TTL", "")
	t.Setenv("QUOTE_RATE_LIMIT", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, 5*time.Minute, cfg.RulesCacheTTL)
	require.Equal(t, 60, cfg.QuoteRateLimit)
	require.Equal(t, "pricing-svc", cfg.AdminJWTIssuer)
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/pricing")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_JWT_SECRET", "secret")
	t.Setenv("PORT", "9090")
	t.Setenv("RULES_CACHE_TTL", "30s")
	t.Setenv("QUOTE_RATE_LIMIT", "120")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, 30*time.Second, cfg.RulesCacheTTL)
	require.Equal(t, 120, cfg.QuoteRateLimit)
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
}
