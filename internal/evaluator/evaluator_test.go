package evaluator

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ValuationSentinel/internal/collector"
	"ValuationSentinel/internal/indicator"
	"ValuationSentinel/internal/metrics"
	"ValuationSentinel/internal/model"
	"ValuationSentinel/internal/strategy"
)

type fakeSource struct {
	delays   map[string]time.Duration
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeSource) Collect(ctx context.Context, ticker string) (*model.IndicatorBundle, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	switch ticker {
	case "BOOM":
		panic("nil map write")
	case "GONE":
		return nil, collector.ErrDataUnavailable
	}
	select {
	case <-time.After(f.delays[ticker]):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return &model.IndicatorBundle{Ticker: ticker, LastPrice: 10, RSI: 20, RSIDefined: true, Trend: model.TrendDown}, nil
}

func newPolicy(t *testing.T) strategy.Policy {
	t.Helper()
	p, err := strategy.NewPolicy(strategy.PolicyOrdered, strategy.DefaultThresholds())
	require.NoError(t, err)
	return p
}

func TestEvaluate_PreservesInputOrder(t *testing.T) {
	t.Parallel()

	src := &fakeSource{delays: map[string]time.Duration{
		"A": 40 * time.Millisecond,
		"B": 5 * time.Millisecond,
		"C": 20 * time.Millisecond,
		"D": 0,
	}}
	e := New(src, newPolicy(t), 4)

	tickers := []string{"A", "B", "C", "D"}
	results := e.Evaluate(context.Background(), tickers)
	require.Len(t, results, len(tickers))
	for i, r := range results {
		assert.Equal(t, tickers[i], r.Ticker)
		require.NoError(t, r.Err)
		assert.Equal(t, model.SignalBuy, r.Classification.Signal)
	}
}

func TestEvaluate_FailuresStayPerTicker(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	e := New(&fakeSource{}, newPolicy(t), 2)
	e.Metrics = metrics.New(reg)

	results := e.Evaluate(context.Background(), []string{"OK1", "BOOM", "GONE", "OK2"})
	require.Len(t, results, 4)

	assert.NoError(t, results[0].Err)
	assert.ErrorContains(t, results[1].Err, "panic")
	assert.Nil(t, results[1].Bundle)
	assert.ErrorIs(t, results[2].Err, collector.ErrDataUnavailable)
	assert.Nil(t, results[2].Classification)
	assert.NoError(t, results[3].Err)

	assert.Equal(t, 2.0, testutil.ToFloat64(e.Metrics.TickersSkipped))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.Metrics.TickersEvaluated.WithLabelValues("BUY")))
}

func TestEvaluate_BoundedWorkers(t *testing.T) {
	t.Parallel()

	delays := make(map[string]time.Duration)
	var tickers []string
	for _, tk := range []string{"T1", "T2", "T3", "T4", "T5", "T6", "T7", "T8", "T9", "T10"} {
		delays[tk] = 10 * time.Millisecond
		tickers = append(tickers, tk)
	}
	src := &fakeSource{delays: delays}
	e := New(src, newPolicy(t), 3)

	results := e.Evaluate(context.Background(), tickers)
	assert.Len(t, results, 10)
	assert.LessOrEqual(t, src.peak.Load(), int32(3))
	assert.GreaterOrEqual(t, src.peak.Load(), int32(1))
}

func TestEvaluate_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := New(&fakeSource{}, newPolicy(t), 2)
	results := e.Evaluate(ctx, []string{"X", "Y"})
	require.Len(t, results, 2)
	for _, r := range results {
		assert.True(t, errors.Is(r.Err, context.Canceled))
	}
}

func TestEvaluate_Empty(t *testing.T) {
	t.Parallel()

	e := New(&fakeSource{}, newPolicy(t), 0)
	assert.Equal(t, DefaultWorkers, e.Workers)
	assert.Empty(t, e.Evaluate(context.Background(), nil))
}

func TestRun_WithCollector(t *testing.T) {
	t.Parallel()

	m := &collector.MockFetcher{
		Price: 25,
		Fundamentals: map[string]*model.FundamentalSnapshot{
			"WEGE3.SA": {PE: model.Float(12), ROE: model.Float(0.25)},
		},
		Errors: map[string]error{"OFFLINE.SA": errors.New("timeout")},
	}
	engine := indicator.NewEngine(indicator.Options{RSIMethod: "sma"})
	col := collector.NewCollector(m, engine, 120, time.Second)

	e := New(col, newPolicy(t), 4)
	e.RSIMethod = string(engine.RSIMethod())

	run := e.Run(context.Background(), []string{"WEGE3.SA", "OFFLINE.SA", "ITSA4.SA"})
	require.Len(t, run.Results, 3)
	assert.Equal(t, strategy.PolicyOrdered, run.Policy)
	assert.Equal(t, "sma", run.RSIMethod)
	assert.Len(t, run.ID, 36)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))

	skipped := run.Skipped()
	require.Len(t, skipped, 1)
	assert.Equal(t, "OFFLINE.SA", skipped[0].Ticker)
	assert.ErrorIs(t, skipped[0].Err, collector.ErrDataUnavailable)

	for _, r := range run.Results {
		if r.Err != nil {
			continue
		}
		assert.Equal(t, r.Ticker, r.Bundle.Ticker)
		assert.NotNil(t, r.Classification)
	}
}
