// Package statement serves theater statements over HTTP with caching and telemetry.
package statement

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/theater-billing/internal/common"
	"github.com/noah-isme/theater-billing/internal/obs"
	"github.com/noah-isme/theater-billing/internal/resilience"
	"github.com/noah-isme/theater-billing/internal/theater"
)

// Error codes surfaced to API clients.
const (
	CodeUnknownPlayType = "UNKNOWN_PLAY_TYPE"
	CodePlayNotFound    = "PLAY_NOT_FOUND"
	CodeInvalidRequest  = "INVALID_REQUEST"
)

// statementNamespace seeds deterministic statement ids.
var statementNamespace = uuid.MustParse("6f1c3b8e-4a52-4c57-9d2e-0b7a1e5d9c40")

// Result is a generated statement together with its rendered text.
type Result struct {
	ID        string            `json:"id"`
	Statement theater.Statement `json:"statement"`
	Text      string            `json:"text"`
	Cached    bool              `json:"cached"`
}

// BatchItem is the outcome for one invoice of a batch. Exactly one of Result and Error is set.
type BatchItem struct {
	Index  int               `json:"index"`
	Result *Result           `json:"result,omitempty"`
	Error  *common.ErrorBody `json:"error,omitempty"`
	Err    error             `json:"-"`
}

// ServiceConfig configures Service dependencies.
type ServiceConfig struct {
	Calculator       *theater.Calculator
	Cache            *Cache
	Metrics          *obs.StatementMetrics
	Logger           zerolog.Logger
	BatchConcurrency int
}

// Service generates statements, recording logs, metrics and spans for each one.
type Service struct {
	calc             *theater.Calculator
	cache            *Cache
	metrics          *obs.StatementMetrics
	logger           zerolog.Logger
	tracer           trace.Tracer
	batchConcurrency int
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Calculator == nil {
		return nil, errors.New("statement service requires a calculator")
	}
	limit := cfg.BatchConcurrency
	if limit <= 0 {
		limit = 1
	}
	return &Service{
		calc:             cfg.Calculator,
		cache:            cfg.Cache,
		metrics:          cfg.Metrics,
		logger:           cfg.Logger,
		tracer:           otel.Tracer("statement"),
		batchConcurrency: limit,
	}, nil
}

// Rates returns the rate table used for pricing.
func (s *Service) Rates() theater.Rates {
	return s.calc.Rates()
}

// Generate computes and renders the statement for one invoice.
func (s *Service) Generate(ctx context.Context, invoice theater.Invoice, catalog theater.Catalog) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "statement.generate", trace.WithAttributes(
		attribute.String("statement.customer", invoice.Customer),
		attribute.Int("statement.performances", len(invoice.Performances)),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	key, err := s.fingerprint(invoice, catalog)
	if err != nil {
		return Result{}, fmt.Errorf("fingerprint statement: %w", err)
	}

	if cached, ok := s.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("statement.cached", true))
		s.observe("ok", cached.Statement)
		return cached, nil
	}

	stmt, err := s.calc.Compute(invoice, catalog)
	if err != nil {
		appErr := toAppError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, appErr.Code)
		s.countResult(resultLabel(err))
		s.logger.Warn().Err(err).
			Str("customer", invoice.Customer).
			Str("code", appErr.Code).
			Msg("statement_failed")
		return Result{}, appErr
	}

	res := Result{
		ID:        uuid.NewSHA1(statementNamespace, []byte(key)).String(),
		Statement: stmt,
		Text:      theater.RenderText(stmt, s.calc.FormatUSD),
	}
	if err := s.cache.Set(ctx, key, res); err != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
		s.logger.Error().Err(err).Str("statement_id", res.ID).Msg("cache statement")
	}

	span.SetAttributes(
		attribute.String("statement.id", res.ID),
		attribute.Int64("statement.total_amount", stmt.TotalAmount),
		attribute.Int64("statement.total_credits", stmt.TotalCredits),
	)
	s.observe("ok", stmt)
	s.logger.Info().
		Str("statement_id", res.ID).
		Str("customer", stmt.Customer).
		Int("performances", len(stmt.Lines)).
		Int64("total_amount", stmt.TotalAmount).
		Int64("total_credits", stmt.TotalCredits).
		Msg("statement_generated")
	return res, nil
}

// GenerateBatch generates statements for independent invoices concurrently. Per-invoice
// failures are reported on the matching item; only cancellation fails the whole batch.
func (s *Service) GenerateBatch(ctx context.Context, invoices []theater.Invoice, catalog theater.Catalog) ([]BatchItem, error) {
	items := make([]BatchItem, len(invoices))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.batchConcurrency)
	for i, invoice := range invoices {
		i, invoice := i, invoice
		g.Go(func() error {
			res, err := s.Generate(gctx, invoice, catalog)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				items[i] = BatchItem{Index: i, Err: err, Error: errorBody(err)}
				return nil
			}
			items[i] = BatchItem{Index: i, Result: &res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) lookup(ctx context.Context, key string) (Result, bool) {
	if !s.cache.enabled() {
		return Result{}, false
	}
	res, ok, err := s.cache.Get(ctx, key)
	switch {
	case errors.Is(err, resilience.ErrOpenCircuit):
		s.countCache("bypass")
		return Result{}, false
	case err != nil:
		s.countCache("error")
		s.logger.Error().Err(err).Msg("read statement cache")
		return Result{}, false
	case !ok:
		s.countCache("miss")
		return Result{}, false
	}
	s.countCache("hit")
	res.Cached = true
	return res, true
}

// fingerprint hashes everything that influences the statement: the rate table, the
// invoice and the plays it references.
func (s *Service) fingerprint(invoice theater.Invoice, catalog theater.Catalog) (string, error) {
	return common.Fingerprint(struct {
		Rates   theater.Rates   `json:"rates"`
		Invoice theater.Invoice `json:"invoice"`
		Plays   theater.Catalog `json:"plays"`
	}{s.calc.Rates(), invoice, catalog.Subset(invoice)})
}

func (s *Service) observe(result string, stmt theater.Statement) {
	s.countResult(result)
	if s.metrics == nil {
		return
	}
	rates := s.calc.Rates()
	s.metrics.Amount.Observe(float64(stmt.TotalAmount / rates.CentsPerDollar))
	s.metrics.Credits.Observe(float64(stmt.TotalCredits))
	s.metrics.Performances.Observe(float64(len(stmt.Lines)))
}

func (s *Service) countResult(result string) {
	if s.metrics != nil {
		s.metrics.Total.WithLabelValues(result).Inc()
	}
}

func (s *Service) countCache(result string) {
	if s.metrics != nil {
		s.metrics.Cache.WithLabelValues(result).Inc()
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, theater.ErrUnknownGenre):
		return "unknown_genre"
	case errors.Is(err, theater.ErrPlayNotFound):
		return "play_not_found"
	default:
		return "error"
	}
}

func toAppError(err error) *common.AppError {
	var genreErr *theater.UnknownGenreError
	if errors.As(err, &genreErr) {
		return common.NewAppError(CodeUnknownPlayType, err.Error(), http.StatusUnprocessableEntity, err).
			WithDetails(map[string]string{"genre": genreErr.Genre})
	}
	var missingErr *theater.PlayNotFoundError
	if errors.As(err, &missingErr) {
		return common.NewAppError(CodePlayNotFound, err.Error(), http.StatusUnprocessableEntity, err).
			WithDetails(map[string]string{"playID": missingErr.PlayID})
	}
	return common.NewAppError("INTERNAL", "statement generation failed", http.StatusInternalServerError, err)
}

func errorBody(err error) *common.ErrorBody {
	var appErr *common.AppError
	if !errors.As(err, &appErr) {
		appErr = toAppError(err)
	}
	return &common.ErrorBody{Code: appErr.Code, Message: appErr.Message, Details: appErr.Details}
}
