package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"ValuationSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Tickers without explicit Bars get a gently rising synthetic series around Price.
type MockFetcher struct {
	Price        float64
	Bars         map[string][]model.PriceBar
	Fundamentals map[string]*model.FundamentalSnapshot
	Errors       map[string]error
	Delay        time.Duration

	historyCalls      atomic.Int64
	fundamentalsCalls atomic.Int64
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	m.historyCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[ticker]; ok {
		return nil, err
	}
	if bars, ok := m.Bars[ticker]; ok {
		return bars, nil
	}
	if m.Price <= 0 {
		return nil, fmt.Errorf("mock: no bars for %s: %w", ticker, ErrDataUnavailable)
	}
	return generateMockBars(m.Price, days), nil
}

func (m *MockFetcher) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalSnapshot, error) {
	m.fundamentalsCalls.Add(1)
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[ticker]; ok {
		return nil, err
	}
	if snap, ok := m.Fundamentals[ticker]; ok {
		return snap, nil
	}
	return &model.FundamentalSnapshot{}, nil
}

// Calls reports how many history and fundamentals requests were served.
func (m *MockFetcher) Calls() (history, fundamentals int64) {
	return m.historyCalls.Load(), m.fundamentalsCalls.Load()
}

func (m *MockFetcher) wait(ctx context.Context) error {
	if m.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.Delay):
		return nil
	}
}

func generateMockBars(basePrice float64, count int) []model.PriceBar {
	bars := make([]model.PriceBar, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.PriceBar{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
