package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/noah-isme/theater-billing/internal/theater"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	StatementCacheTTL         time.Duration
	StatementBatchConcurrency int
	StatementPlaysFile        string
	StatementInvoicesFile     string
	RequestBodyMaxBytes       int64
	RateLimitMax              int
	RateLimitWindow           time.Duration
	CacheBreakerOpenFor       time.Duration

	LogFormat        string
	LogLevel         string
	MetricsNamespace string
	MetricsEnabled   bool
	MetricsBuckets   string
	TracingEnabled   bool
	OTLPEndpoint     string
	TracingSampling  float64

	Rates theater.Rates
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           strings.TrimSpace(k.String("REDIS_URL")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		StatementCacheTTL:         parseDuration(k.String("STATEMENT_CACHE_TTL"), "10m"),
		StatementBatchConcurrency: parseInt(k.String("STATEMENT_BATCH_CONCURRENCY"), 4),
		StatementPlaysFile:        valueOrDefault(k.String("STATEMENT_PLAYS_FILE"), "plays.json"),
		StatementInvoicesFile:     valueOrDefault(k.String("STATEMENT_INVOICES_FILE"), "invoices.json"),
		RequestBodyMaxBytes:       int64(parseInt(k.String("REQUEST_BODY_MAX_BYTES"), 1<<20)),
		RateLimitMax:              parseInt(k.String("RATE_LIMIT_MAX"), 120),
		RateLimitWindow:           parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		CacheBreakerOpenFor:       parseDuration(k.String("CACHE_BREAKER_OPEN_FOR"), "30s"),

		LogFormat:        valueOrDefault(k.String("OBS_LOG_FORMAT"), "json"),
		LogLevel:         valueOrDefault(k.String("OBS_LOG_LEVEL"), "info"),
		MetricsNamespace: valueOrDefault(k.String("OBS_METRICS_NAMESPACE"), "theater"),
		MetricsEnabled:   parseBoolDefault(k.String("OBS_ENABLE_PROMETHEUS"), true),
		MetricsBuckets:   k.String("OBS_METRICS_BUCKETS_MS"),
		TracingEnabled:   parseBoolDefault(k.String("OBS_ENABLE_TRACING"), false),
		OTLPEndpoint:     strings.TrimSpace(k.String("OBS_OTLP_ENDPOINT")),
		TracingSampling:  parseFloat(k.String("OBS_TRACING_SAMPLING_RATIO"), 1.0),
	}

	rates, err := loadRates(k)
	if err != nil {
		return nil, err
	}
	cfg.Rates = rates

	if cfg.StatementBatchConcurrency <= 0 {
		cfg.StatementBatchConcurrency = 1
	}

	return cfg, nil
}

func loadRates(k *koanf.Koanf) (theater.Rates, error) {
	r := theater.DefaultRates()
	money := map[string]*theater.Money{
		"RATES_TRAGEDY_BASE_AMOUNT":             &r.TragedyBaseAmount,
		"RATES_TRAGEDY_OVER_THRESHOLD_PER_SEAT": &r.TragedyOverThresholdPerSeat,
		"RATES_COMEDY_BASE_AMOUNT":              &r.ComedyBaseAmount,
		"RATES_COMEDY_OVER_THRESHOLD_AMOUNT":    &r.ComedyOverThresholdAmount,
		"RATES_COMEDY_OVER_THRESHOLD_PER_SEAT":  &r.ComedyOverThresholdPerSeat,
		"RATES_COMEDY_PER_SEAT_AMOUNT":          &r.ComedyPerSeatAmount,
		"RATES_CENTS_PER_DOLLAR":                &r.CentsPerDollar,
	}
	for key, dst := range money {
		raw := strings.TrimSpace(k.String(key))
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return theater.Rates{}, fmt.Errorf("%s: %w", key, err)
		}
		*dst = v
	}
	counts := map[string]*int{
		"RATES_TRAGEDY_AUDIENCE_THRESHOLD":   &r.TragedyAudienceThreshold,
		"RATES_COMEDY_AUDIENCE_THRESHOLD":    &r.ComedyAudienceThreshold,
		"RATES_BASE_VOLUME_CREDIT_THRESHOLD": &r.BaseVolumeCreditThreshold,
		"RATES_COMEDY_CREDIT_DIVISOR":        &r.ComedyCreditDivisor,
	}
	for key, dst := range counts {
		raw := strings.TrimSpace(k.String(key))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return theater.Rates{}, fmt.Errorf("%s: %w", key, err)
		}
		*dst = v
	}
	if err := r.Validate(); err != nil {
		return theater.Rates{}, err
	}
	return r, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseInt(value string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}

func parseFloat(value string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseBoolDefault(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
