package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"ValuationSentinel/internal/model"
)

// ErrDataUnavailable means the source has no usable data for a ticker.
var ErrDataUnavailable = errors.New("market data unavailable")

// Fetcher defines the interface for fetching market data.
type Fetcher interface {
	FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error)
	FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalSnapshot, error)
	Name() string
}

// newHTTPClient builds a client with optional proxy support.
func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{Proxy: http.ProxyFromEnvironment}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
