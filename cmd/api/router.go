package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/theater-billing/internal/common"
	"github.com/noah-isme/theater-billing/internal/config"
	"github.com/noah-isme/theater-billing/internal/health"
	"github.com/noah-isme/theater-billing/internal/obs"
	"github.com/noah-isme/theater-billing/internal/ratelimit"
	"github.com/noah-isme/theater-billing/internal/security"
	"github.com/noah-isme/theater-billing/internal/statement"
)

type routerDeps struct {
	Config         *config.Config
	Logger         zerolog.Logger
	Service        *statement.Service
	Redis          *redis.Client
	HTTPMetrics    *obs.HTTPMetrics
	Checker        health.Checker
	TracingEnabled bool
}

func newRouter(d routerDeps) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.RoutePatternMiddleware)
	if d.TracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{Enable: true, EnableHSTS: cfg.AppEnv == "production", NoStore: true}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Statement-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		MaxAge:         300,
	}))

	if d.HTTPMetrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checker: d.Checker}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	limiter := ratelimit.Handler{
		Config: ratelimit.Config{Key: ratelimit.ByClientIP, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
		OnError: func(err error) {
			d.Logger.Error().Err(err).Msg("rate limiter unavailable")
		},
	}
	if d.Redis != nil {
		limiter.Limiter = ratelimit.Limiter{Client: d.Redis, Prefix: "theater:ratelimit:"}
	}

	statementHandler := statement.NewHandler(statement.HandlerConfig{Service: d.Service})
	r.Route("/api/v1", func(v chi.Router) {
		v.Use(limiter.Middleware)
		v.Use(security.BodyLimit{Max: cfg.RequestBodyMaxBytes}.Middleware)
		statementHandler.Routes(v)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "resource not found", nil)
	})

	return r
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}
