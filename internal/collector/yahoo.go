package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"ValuationSentinel/internal/model"
)

const (
	yahooBaseURL   = "https://query1.finance.yahoo.com"
	yahooCookieURL = "https://fc.yahoo.com"
)

// errYahooUnauthorized marks a 401, which on quoteSummary means the crumb is stale.
var errYahooUnauthorized = errors.New("yahoo: unauthorized")

// YahooFetcher implements Fetcher using Yahoo Finance public API.
// quoteSummary needs a session cookie plus a matching crumb; both are
// obtained lazily and the crumb is reused until Yahoo rejects it.
type YahooFetcher struct {
	BaseURL    string
	CookieURL  string
	Client     *http.Client
	Normalizer Normalizer

	mu    sync.Mutex
	crumb string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, timeout time.Duration) *YahooFetcher {
	client := newHTTPClient(proxyURL, timeout)
	client.Jar, _ = cookiejar.New(nil) // only fails on a bad PublicSuffixList
	return &YahooFetcher{
		BaseURL:    yahooBaseURL,
		CookieURL:  yahooCookieURL,
		Client:     client,
		Normalizer: Normalizer{Scale: ScaleFraction},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// yahooSummary is the subset of the quoteSummary response we read.
type yahooSummary struct {
	QuoteSummary struct {
		Result []struct {
			SummaryDetail struct {
				TrailingPE                 yahooValue `json:"trailingPE"`
				DividendYield              yahooValue `json:"dividendYield"`
				TrailingAnnualDividendRate yahooValue `json:"trailingAnnualDividendRate"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics struct {
				TrailingEps yahooValue `json:"trailingEps"`
				BookValue   yahooValue `json:"bookValue"`
				PriceToBook yahooValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData struct {
				ReturnOnEquity yahooValue `json:"returnOnEquity"`
			} `json:"financialData"`
			Price struct {
				RegularMarketPrice yahooValue `json:"regularMarketPrice"`
			} `json:"price"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"quoteSummary"`
}

// yahooValue is Yahoo's {"raw": 1.23, "fmt": "1.23"} wrapper; missing fields come back as {}.
type yahooValue struct {
	Raw *float64 `json:"raw"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func at(vals []*float64, i int) float64 {
	if i >= len(vals) || vals[i] == nil {
		return 0
	}
	return *vals[i]
}

func (f *YahooFetcher) do(ctx context.Context, u string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("yahoo read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (f *YahooFetcher) get(ctx context.Context, u string, out any) error {
	status, body, err := f.do(ctx, u)
	if err != nil {
		return err
	}
	switch status {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("yahoo: status 404: %w", ErrDataUnavailable)
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", errYahooUnauthorized, string(body))
	default:
		return fmt.Errorf("yahoo: status %d, body: %s", status, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("yahoo decode: %w", err)
	}
	return nil
}

// sessionCrumb returns the cached crumb, priming the cookie jar and fetching
// a new crumb when there is none.
func (f *YahooFetcher) sessionCrumb(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb != "" {
		return f.crumb, nil
	}

	// The consent host answers 404 but sets the session cookie; only transport errors matter.
	if _, _, err := f.do(ctx, f.CookieURL); err != nil {
		return "", fmt.Errorf("yahoo session cookie: %w", err)
	}
	status, body, err := f.do(ctx, f.BaseURL+"/v1/test/getcrumb")
	if err != nil {
		return "", fmt.Errorf("yahoo crumb: %w", err)
	}
	crumb := strings.TrimSpace(string(body))
	if status != http.StatusOK || crumb == "" || strings.ContainsAny(crumb, "{<") {
		return "", fmt.Errorf("yahoo crumb: status %d, body: %s", status, crumb)
	}
	f.crumb = crumb
	return crumb, nil
}

func (f *YahooFetcher) dropCrumb(stale string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.crumb == stale {
		f.crumb = ""
	}
}

func (f *YahooFetcher) fetchChart(ctx context.Context, ticker, interval, rng string) ([]model.PriceBar, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.BaseURL, url.PathEscape(ticker), interval, rng)

	var chart yahooChart
	if err := f.get(ctx, u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %w", chart.Chart.Error.Description, ErrDataUnavailable)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s: %w", ticker, ErrDataUnavailable)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make([]model.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		c := at(quote.Close, i)
		if c <= 0 {
			continue // skip null bars (holidays etc.)
		}
		bars = append(bars, model.PriceBar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  c,
			Volume: at(quote.Volume, i),
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo: only null bars for %s: %w", ticker, ErrDataUnavailable)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}

func (f *YahooFetcher) FetchPriceHistory(ctx context.Context, ticker string, days int) ([]model.PriceBar, error) {
	rng := "2y"
	if days <= 30 {
		rng = "1mo"
	} else if days <= 90 {
		rng = "3mo"
	} else if days <= 180 {
		rng = "6mo"
	} else if days <= 365 {
		rng = "1y"
	}
	bars, err := f.fetchChart(ctx, ticker, "1d", rng)
	if err != nil {
		return nil, err
	}
	// Trim to requested count
	if days > 0 && len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	return bars, nil
}

func (f *YahooFetcher) FetchFundamentals(ctx context.Context, ticker string) (*model.FundamentalSnapshot, error) {
	summary, err := f.fetchSummary(ctx, ticker)
	if errors.Is(err, errYahooUnauthorized) {
		summary, err = f.fetchSummary(ctx, ticker)
	}
	if err != nil {
		return nil, err
	}
	if summary.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %w", summary.QuoteSummary.Error.Description, ErrDataUnavailable)
	}
	if len(summary.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo: no fundamentals for %s: %w", ticker, ErrDataUnavailable)
	}

	r := summary.QuoteSummary.Result[0]
	return f.Normalizer.Snapshot(&model.FundamentalSnapshot{
		TrailingEPS:      r.DefaultKeyStatistics.TrailingEps.Raw,
		BookValue:        r.DefaultKeyStatistics.BookValue.Raw,
		ROE:              r.FinancialData.ReturnOnEquity.Raw,
		PE:               r.SummaryDetail.TrailingPE.Raw,
		PB:               r.DefaultKeyStatistics.PriceToBook.Raw,
		DividendYield:    r.SummaryDetail.DividendYield.Raw,
		TrailingDividend: r.SummaryDetail.TrailingAnnualDividendRate.Raw,
		MarketPrice:      r.Price.RegularMarketPrice.Raw,
	}), nil
}

// fetchSummary calls quoteSummary with the session crumb. A 401 drops the
// crumb so the caller's retry negotiates a fresh one.
func (f *YahooFetcher) fetchSummary(ctx context.Context, ticker string) (*yahooSummary, error) {
	crumb, err := f.sessionCrumb(ctx)
	if err != nil {
		return nil, err
	}
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=summaryDetail,defaultKeyStatistics,financialData,price&crumb=%s",
		f.BaseURL, url.PathEscape(ticker), url.QueryEscape(crumb))

	var summary yahooSummary
	if err := f.get(ctx, u, &summary); err != nil {
		if errors.Is(err, errYahooUnauthorized) {
			f.dropCrumb(crumb)
		}
		return nil, err
	}
	return &summary, nil
}
