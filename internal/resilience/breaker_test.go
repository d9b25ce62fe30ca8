package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("down")

func fail(context.Context) error { return errDown }
func ok(context.Context) error   { return nil }

func TestBreakerTransitions(t *testing.T) {
	metrics := NewMetrics("test", prometheus.NewRegistry())
	b := NewBreaker(Settings{Target: "cache", MinRequests: 2, FailureRatio: 0.5, OpenFor: time.Minute, Metrics: metrics})
	clock := time.Unix(1000, 0)
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, Closed, b.State())
	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, Open, b.State())
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.State.WithLabelValues("cache")))

	called := false
	err := b.Do(ctx, func(context.Context) error { called = true; return nil })
	require.ErrorIs(t, err, ErrOpenCircuit)
	require.False(t, called)

	clock = clock.Add(time.Minute)
	require.NoError(t, b.Do(ctx, ok))
	require.Equal(t, Closed, b.State())
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.State.WithLabelValues("cache")))

	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("cache", "closed", "open")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("cache", "open", "half_open")))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.Transitions.WithLabelValues("cache", "half_open", "closed")))
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker(Settings{MinRequests: 1, OpenFor: time.Second})
	clock := time.Unix(1000, 0)
	b.now = func() time.Time { return clock }
	ctx := context.Background()

	require.Error(t, b.Do(ctx, fail))
	require.Equal(t, Open, b.State())

	clock = clock.Add(time.Second)
	require.ErrorIs(t, b.Do(ctx, fail), errDown)
	require.Equal(t, Open, b.State())
	require.ErrorIs(t, b.Do(ctx, ok), ErrOpenCircuit)
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	b := NewBreaker(Settings{MinRequests: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Do(ctx, func(ctx context.Context) error { return ctx.Err() })
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, Closed, b.State())
}

func TestNilBreakerPassesThrough(t *testing.T) {
	var b *Breaker
	require.ErrorIs(t, b.Do(context.Background(), fail), errDown)
}
