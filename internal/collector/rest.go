package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"ValuationSentinel/internal/model"
)

// RESTFetcher implements Fetcher against a JSON market data service exposing
// /api/v1/bars/daily and /api/v1/fundamentals.
type RESTFetcher struct {
	BaseURL    string
	APIKey     string
	Client     *http.Client
	Normalizer Normalizer
}

// NewRESTFetcher creates a new fetcher with optional proxy support.
func NewRESTFetcher(baseURL, apiKey, proxyURL string, timeout time.Duration, scale RatioScale) *RESTFetcher {
	return &RESTFetcher{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		Client:     newHTTPClient(proxyURL, timeout),
		Normalizer: Normalizer{Scale: scale},
	}
}

func (f *RESTFetcher) Name() string { return "rest" }

// restBar is the expected JSON shape of a daily bar.
type restBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

// restFundamentals mirrors the service payload; absent or null fields stay nil.
type restFundamentals struct {
	TrailingEPS      *float64 `json:"trailing_eps"`
	BookValue        *float64 `json:"book_value"`
	ROE              *float64 `json:"roe"`
	PE               *float64 `json:"pe"`
	PB               *float64 `json:"pb"`
	DividendYield    *float64 `json:"dividend_yield"`
	TrailingDividend *float64 `json:"trailing_dividend"`
	Price            *float64 `json:"price"`
}

func (f *RESTFetcher) FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(ticker), days)
	var raw []restBar
	if err := f.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("fetch bars: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("fetch bars: empty series for %s: %w", ticker, ErrDataUnavailable)
	}
	bars := make([]model.PriceBar, len(raw))
	for i, rb := range raw {
		bars[i] = model.PriceBar{
			Time:   time.Unix(rb.Timestamp, 0).UTC(),
			Open:   rb.Open,
			High:   rb.High,
			Low:    rb.Low,
			Close:  rb.Close,
			Volume: rb.Volume,
		}
	}
	// Ensure chronological order
	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *RESTFetcher) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalSnapshot, error) {
	endpoint := fmt.Sprintf("%s/api/v1/fundamentals?symbol=%s", f.BaseURL, url.QueryEscape(ticker))
	var raw restFundamentals
	if err := f.getJSON(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("fetch fundamentals: %w", err)
	}
	return f.Normalizer.Snapshot(&model.FundamentalSnapshot{
		TrailingEPS:      raw.TrailingEPS,
		BookValue:        raw.BookValue,
		ROE:              raw.ROE,
		PE:               raw.PE,
		PB:               raw.PB,
		DividendYield:    raw.DividendYield,
		TrailingDividend: raw.TrailingDividend,
		MarketPrice:      raw.Price,
	}), nil
}

func (f *RESTFetcher) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if f.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.APIKey)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("status 404: %w", ErrDataUnavailable)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
