package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"ValuationSentinel/internal/model"
)

// RateLimitedFetcher enforces a minimum interval between upstream requests,
// shared by every goroutine using it.
type RateLimitedFetcher struct {
	inner   Fetcher
	limiter *rate.Limiter
}

// NewRateLimitedFetcher wraps inner. A non-positive interval disables limiting.
func NewRateLimitedFetcher(inner Fetcher, minInterval time.Duration) *RateLimitedFetcher {
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &RateLimitedFetcher{inner: inner, limiter: rate.NewLimiter(limit, 1)}
}

func (f *RateLimitedFetcher) Name() string { return f.inner.Name() }

func (f *RateLimitedFetcher) FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return f.inner.FetchPriceHistory(ctx, ticker, days)
}

func (f *RateLimitedFetcher) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalSnapshot, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return f.inner.FetchFundamentals(ctx, ticker)
}
