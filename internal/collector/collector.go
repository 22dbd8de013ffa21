package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"ValuationSentinel/internal/indicator"
	"ValuationSentinel/internal/metrics"
	"ValuationSentinel/internal/model"
)

// Collector fetches one ticker's market data and computes its indicators.
type Collector struct {
	Fetcher  Fetcher
	Engine   *indicator.Engine
	Lookback int
	Timeout  time.Duration
	Metrics  *metrics.Metrics
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, engine *indicator.Engine, lookback int, timeout time.Duration) *Collector {
	if lookback <= 0 {
		lookback = 180
	}
	return &Collector{Fetcher: fetcher, Engine: engine, Lookback: lookback, Timeout: timeout}
}

// Collect fetches price history and fundamentals for ticker and computes its bundle.
// Missing history (including a timeout) is reported as ErrDataUnavailable;
// missing fundamentals only degrade the bundle.
func (c *Collector) Collect(ctx context.Context, ticker string) (*model.IndicatorBundle, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	start := time.Now()
	bars, err := c.Fetcher.FetchPriceHistory(ctx, ticker, c.Lookback)
	c.Metrics.ObserveFetch("history", start)
	if err != nil {
		return nil, fmt.Errorf("fetch price history: %w: %w", ErrDataUnavailable, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("fetch price history: %w: empty series", ErrDataUnavailable)
	}

	start = time.Now()
	snap, err := c.Fetcher.FetchFundamentals(ctx, ticker)
	c.Metrics.ObserveFetch("fundamentals", start)
	if err != nil {
		log.Printf("[WARN] %s fundamentals unavailable: %v, continuing with price data only", ticker, err)
		snap = &model.FundamentalSnapshot{}
	}

	return c.Engine.Compute(ticker, bars, snap)
}
