package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ValuationSentinel/internal/indicator"
	"ValuationSentinel/internal/model"
)

func TestCollector_Collect(t *testing.T) {
	t.Parallel()

	m := &MockFetcher{
		Price: 30,
		Fundamentals: map[string]*model.FundamentalSnapshot{
			"WEGE3.SA": {TrailingEPS: model.Float(1.5), BookValue: model.Float(6), PE: model.Float(20)},
		},
	}
	c := NewCollector(m, indicator.NewEngine(indicator.Options{}), 120, time.Second)

	b, err := c.Collect(context.Background(), "WEGE3.SA")
	require.NoError(t, err)
	assert.Equal(t, "WEGE3.SA", b.Ticker)
	assert.True(t, b.RSIDefined)
	assert.Equal(t, model.TrendUp, b.Trend)
	require.NotNil(t, b.GrahamPrice)
	require.NotNil(t, b.PE)
	assert.Equal(t, 20.0, *b.PE)
}

func TestCollector_HistoryFailureIsDataUnavailable(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	m := &MockFetcher{Price: 30, Errors: map[string]error{"HAPV3.SA": boom}}
	c := NewCollector(m, indicator.NewEngine(indicator.Options{}), 120, time.Second)

	_, err := c.Collect(context.Background(), "HAPV3.SA")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, boom)
}

func TestCollector_EmptyHistory(t *testing.T) {
	t.Parallel()

	m := &MockFetcher{Bars: map[string][]model.PriceBar{"GMAT3.SA": {}}}
	c := NewCollector(m, indicator.NewEngine(indicator.Options{}), 120, time.Second)

	_, err := c.Collect(context.Background(), "GMAT3.SA")
	assert.ErrorIs(t, err, ErrDataUnavailable)
}

type fundamentalsDown struct{ *MockFetcher }

func (f fundamentalsDown) FetchFundamentals(context.Context, string) (*model.FundamentalSnapshot, error) {
	return nil, errors.New("quoteSummary 500")
}

func TestCollector_FundamentalsFailureDegrades(t *testing.T) {
	t.Parallel()

	c := NewCollector(fundamentalsDown{&MockFetcher{Price: 12}}, indicator.NewEngine(indicator.Options{}), 90, time.Second)

	b, err := c.Collect(context.Background(), "RAIL3.SA")
	require.NoError(t, err)
	assert.Nil(t, b.GrahamPrice)
	assert.Nil(t, b.BazinCeiling)
	assert.Nil(t, b.PE)
}

func TestCollector_TimeoutIsDataUnavailable(t *testing.T) {
	t.Parallel()

	m := &MockFetcher{Price: 10, Delay: 500 * time.Millisecond}
	c := NewCollector(m, indicator.NewEngine(indicator.Options{}), 60, 20*time.Millisecond)

	start := time.Now()
	_, err := c.Collect(context.Background(), "ALOS3.SA")
	assert.ErrorIs(t, err, ErrDataUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestNewCollector_DefaultLookback(t *testing.T) {
	t.Parallel()

	c := NewCollector(&MockFetcher{}, indicator.NewEngine(indicator.Options{}), 0, 0)
	assert.Equal(t, 180, c.Lookback)
}
