package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/theater-billing/internal/config"
	"github.com/noah-isme/theater-billing/internal/theater"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                        "",
		"REDIS_URL":                   "",
		"STATEMENT_CACHE_TTL":         "",
		"STATEMENT_BATCH_CONCURRENCY": "",
		"RATES_COMEDY_BASE_AMOUNT":    "",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, 10*time.Minute, cfg.StatementCacheTTL)
	require.Equal(t, 4, cfg.StatementBatchConcurrency)
	require.Equal(t, 30*time.Second, cfg.CacheBreakerOpenFor)
	require.Equal(t, theater.DefaultRates(), cfg.Rates)
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                            ":9090",
		"CORS_ALLOWED_ORIGINS":            "https://a.example, https://b.example ,",
		"STATEMENT_BATCH_CONCURRENCY":     "0",
		"RATE_LIMIT_WINDOW":               "bogus",
		"RATES_COMEDY_BASE_AMOUNT":        "25000",
		"RATES_COMEDY_AUDIENCE_THRESHOLD": "15",
		"OBS_ENABLE_PROMETHEUS":           "off",
	})
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddr())
	require.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	require.Equal(t, 1, cfg.StatementBatchConcurrency)
	require.Equal(t, time.Minute, cfg.RateLimitWindow)
	require.Equal(t, theater.Money(25000), cfg.Rates.ComedyBaseAmount)
	require.Equal(t, 15, cfg.Rates.ComedyAudienceThreshold)
	require.False(t, cfg.MetricsEnabled)
}

func TestLoadRejectsInvalidRates(t *testing.T) {
	_, err := config.LoadForTests(map[string]string{"RATES_COMEDY_CREDIT_DIVISOR": "0"})
	require.ErrorIs(t, err, theater.ErrInvalidRates)

	_, err = config.LoadForTests(map[string]string{"RATES_CENTS_PER_DOLLAR": "lots"})
	require.Error(t, err)
}
