package statement_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/theater-billing/internal/common"
	"github.com/noah-isme/theater-billing/internal/obs"
	"github.com/noah-isme/theater-billing/internal/resilience"
	"github.com/noah-isme/theater-billing/internal/statement"
	"github.com/noah-isme/theater-billing/internal/theater"
)

func plays() theater.Catalog {
	return theater.Catalog{
		"hamlet":  {Name: "Hamlet", Type: "tragedy"},
		"as-like": {Name: "As You Like It", Type: "comedy"},
		"othello": {Name: "Othello", Type: "tragedy"},
		"henry-v": {Name: "Henry V", Type: "history"},
	}
}

func bigCo() theater.Invoice {
	return theater.Invoice{
		Customer: "BigCo",
		Performances: []theater.Performance{
			{PlayID: "hamlet", Audience: 55},
			{PlayID: "as-like", Audience: 35},
			{PlayID: "othello", Audience: 40},
		},
	}
}

type fixture struct {
	svc     *statement.Service
	metrics *obs.StatementMetrics
	mr      *miniredis.Miniredis
}

func newFixture(t *testing.T, withCache bool) fixture {
	t.Helper()
	metrics := obs.NewStatementMetrics("test", prometheus.NewRegistry())
	cfg := statement.ServiceConfig{
		Calculator:       theater.Default(),
		Metrics:          metrics,
		Logger:           zerolog.Nop(),
		BatchConcurrency: 2,
	}
	f := fixture{metrics: metrics}
	if withCache {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		cfg.Cache = statement.NewCache(client, "test:statement:", time.Minute)
		f.mr = mr
	}
	svc, err := statement.NewService(cfg)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, false)
	res, err := f.svc.Generate(context.Background(), bigCo(), plays())
	require.NoError(t, err)
	require.NotEmpty(t, res.ID)
	require.False(t, res.Cached)
	require.Equal(t, theater.Money(173000), res.Statement.TotalAmount)
	require.Equal(t, int64(47), res.Statement.TotalCredits)
	require.Contains(t, res.Text, "Amount owed is $1,730.00\n")

	again, err := f.svc.Generate(context.Background(), bigCo(), plays())
	require.NoError(t, err)
	require.Equal(t, res.ID, again.ID, "statement ids are derived from the inputs")
	require.Equal(t, res.Text, again.Text)

	require.Equal(t, float64(2), testutil.ToFloat64(f.metrics.Total.WithLabelValues("ok")))
}

func TestGenerateMapsDomainErrors(t *testing.T) {
	f := newFixture(t, false)

	invoice := bigCo()
	invoice.Performances = append(invoice.Performances, theater.Performance{PlayID: "henry-v", Audience: 20})
	_, err := f.svc.Generate(context.Background(), invoice, plays())
	require.ErrorIs(t, err, theater.ErrUnknownGenre)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, statement.CodeUnknownPlayType, appErr.Code)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	require.Equal(t, map[string]string{"genre": "history"}, appErr.Details)

	missing := theater.Invoice{Customer: "X", Performances: []theater.Performance{{PlayID: "lear", Audience: 1}}}
	_, err = f.svc.Generate(context.Background(), missing, plays())
	require.ErrorIs(t, err, theater.ErrPlayNotFound)
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, statement.CodePlayNotFound, appErr.Code)

	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Total.WithLabelValues("unknown_genre")))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Total.WithLabelValues("play_not_found")))
}

func TestGenerateUsesCache(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	first, err := f.svc.Generate(ctx, bigCo(), plays())
	require.NoError(t, err)
	require.False(t, first.Cached)
	require.Len(t, f.mr.Keys(), 1)

	second, err := f.svc.Generate(ctx, bigCo(), plays())
	require.NoError(t, err)
	require.True(t, second.Cached)
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, first.Text, second.Text)
	require.Equal(t, first.Statement, second.Statement)

	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Cache.WithLabelValues("miss")))
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Cache.WithLabelValues("hit")))

	// changing a referenced play changes the fingerprint
	changed := plays()
	changed["othello"] = theater.Play{Name: "Othello", Type: "comedy"}
	third, err := f.svc.Generate(ctx, bigCo(), changed)
	require.NoError(t, err)
	require.False(t, third.Cached)
	require.NotEqual(t, first.ID, third.ID)

	// plays not referenced by the invoice do not affect the fingerprint
	extra := plays()
	extra["lear"] = theater.Play{Name: "King Lear", Type: "tragedy"}
	fourth, err := f.svc.Generate(ctx, bigCo(), extra)
	require.NoError(t, err)
	require.True(t, fourth.Cached)
}

func TestGenerateSurvivesCacheOutage(t *testing.T) {
	f := newFixture(t, true)
	f.mr.Close()

	res, err := f.svc.Generate(context.Background(), bigCo(), plays())
	require.NoError(t, err)
	require.False(t, res.Cached)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.Cache.WithLabelValues("error")))
}

func TestGenerateBypassesCacheWhenBreakerOpens(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	breaker := resilience.NewBreaker(resilience.Settings{Target: "statement_cache", MinRequests: 1, OpenFor: time.Hour})
	metrics := obs.NewStatementMetrics("test", prometheus.NewRegistry())
	svc, err := statement.NewService(statement.ServiceConfig{
		Calculator: theater.Default(),
		Cache:      statement.NewCache(client, "test:statement:", time.Minute).WithBreaker(breaker),
		Metrics:    metrics,
		Logger:     zerolog.Nop(),
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := svc.Generate(context.Background(), bigCo(), plays())
		require.NoError(t, err)
		require.Equal(t, theater.Money(173000), res.Statement.TotalAmount)
	}
	require.Equal(t, resilience.Open, breaker.State())
	require.Equal(t, float64(1), testutil.ToFloat64(metrics.Cache.WithLabelValues("error")))
	require.Equal(t, float64(2), testutil.ToFloat64(metrics.Cache.WithLabelValues("bypass")))
}

func TestGenerateBatchKeepsOrderAndErrors(t *testing.T) {
	f := newFixture(t, false)
	invoices := []theater.Invoice{
		bigCo(),
		{Customer: "Bad", Performances: []theater.Performance{{PlayID: "henry-v", Audience: 5}}},
		{Customer: "Empty"},
		{Customer: "Missing", Performances: []theater.Performance{{PlayID: "lear", Audience: 5}}},
	}
	items, err := f.svc.GenerateBatch(context.Background(), invoices, plays())
	require.NoError(t, err)
	require.Len(t, items, 4)

	for i, item := range items {
		require.Equal(t, i, item.Index)
	}
	require.NotNil(t, items[0].Result)
	require.Equal(t, "BigCo", items[0].Result.Statement.Customer)
	require.Nil(t, items[1].Result)
	require.Equal(t, statement.CodeUnknownPlayType, items[1].Error.Code)
	require.ErrorIs(t, items[1].Err, theater.ErrUnknownGenre)
	require.Equal(t, "Statement for Empty\nAmount owed is $0.00\nYou earned 0 credits\n", items[2].Result.Text)
	require.Equal(t, statement.CodePlayNotFound, items[3].Error.Code)
}

func TestGenerateBatchCancelled(t *testing.T) {
	f := newFixture(t, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.GenerateBatch(ctx, []theater.Invoice{bigCo()}, plays())
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewServiceRequiresCalculator(t *testing.T) {
	_, err := statement.NewService(statement.ServiceConfig{})
	require.Error(t, err)
}
