package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/noah-isme/theater-billing/internal/config"
	"github.com/noah-isme/theater-billing/internal/health"
	"github.com/noah-isme/theater-billing/internal/obs"
	"github.com/noah-isme/theater-billing/internal/resilience"
	"github.com/noah-isme/theater-billing/internal/statement"
	"github.com/noah-isme/theater-billing/internal/theater"
)

func main() {
	cfg := config.MustLoad()

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().Str("env", cfg.AppEnv).Logger()

	tracingEnabled := cfg.TracingEnabled
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "theater-billing",
			Endpoint:      cfg.OTLPEndpoint,
			Exporter:      "otlp",
			SamplingRatio: cfg.TracingSampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	redisClient := connectRedis(cfg, logger)
	if redisClient != nil {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Error().Err(err).Msg("close redis")
			}
		}()
	}

	calc, err := theater.NewCalculator(cfg.Rates)
	if err != nil {
		logger.Fatal().Err(err).Msg("configure rates")
	}

	var stmtMetrics *obs.StatementMetrics
	var httpMetrics *obs.HTTPMetrics
	var breakerMetrics *resilience.Metrics
	if cfg.MetricsEnabled {
		stmtMetrics = obs.NewStatementMetrics(cfg.MetricsNamespace, nil)
		httpMetrics = obs.NewHTTPMetrics(cfg.MetricsNamespace, obs.ParseBucketsCSV(cfg.MetricsBuckets), nil)
		breakerMetrics = resilience.NewMetrics(cfg.MetricsNamespace, nil)
	}

	cache := statement.NewCache(redisClient, "theater:statement:", cfg.StatementCacheTTL).
		WithBreaker(resilience.NewBreaker(resilience.Settings{
			Target:      "statement_cache",
			MinRequests: 5,
			OpenFor:     cfg.CacheBreakerOpenFor,
			Metrics:     breakerMetrics,
			Logger:      logger,
		}))

	svc, err := statement.NewService(statement.ServiceConfig{
		Calculator:       calc,
		Cache:            cache,
		Metrics:          stmtMetrics,
		Logger:           logger.With().Str("component", "statement").Logger(),
		BatchConcurrency: cfg.StatementBatchConcurrency,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("build statement service")
	}

	var checker health.Checker
	if redisClient != nil {
		checker = redisChecker{client: redisClient}
	}

	handler := newRouter(routerDeps{
		Config:         cfg,
		Logger:         logger,
		Service:        svc,
		Redis:          redisClient,
		HTTPMetrics:    httpMetrics,
		Checker:        checker,
		TracingEnabled: tracingEnabled,
	})
	if tracingEnabled {
		handler = otelhttp.NewHandler(handler, "theater-billing")
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	<-ctx.Done()
	health.SetReady(false)
	logger.Info().Msg("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}

func connectRedis(cfg *config.Config, logger zerolog.Logger) *redis.Client {
	if cfg.RedisURL == "" {
		logger.Info().Msg("REDIS_URL not set; statement cache and rate limiting disabled")
		return nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	return client
}

type redisChecker struct {
	client *redis.Client
}

func (c redisChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.client.Ping(ctx).Err()
}
