package model

import "time"

// PriceBar represents a single daily candlestick.
type PriceBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// FundamentalSnapshot holds the fundamental fields a data source returned for a ticker.
// Every field is optional; a nil pointer means the provider did not supply it.
// Ratios (ROE, DividendYield) are decimal fractions: 0.15 means 15%.
type FundamentalSnapshot struct {
	TrailingEPS      *float64 `json:"trailing_eps,omitempty"`
	BookValue        *float64 `json:"book_value,omitempty"`
	ROE              *float64 `json:"roe,omitempty"`
	PE               *float64 `json:"pe,omitempty"`
	PB               *float64 `json:"pb,omitempty"`
	DividendYield    *float64 `json:"dividend_yield,omitempty"`
	TrailingDividend *float64 `json:"trailing_dividend,omitempty"` // per share, currency units
	MarketPrice      *float64 `json:"market_price,omitempty"`
}

// Empty reports whether no field is set.
func (s *FundamentalSnapshot) Empty() bool {
	if s == nil {
		return true
	}
	return s.TrailingEPS == nil && s.BookValue == nil && s.ROE == nil && s.PE == nil &&
		s.PB == nil && s.DividendYield == nil && s.TrailingDividend == nil && s.MarketPrice == nil
}

// Float returns a pointer to v. Handy for building snapshots.
func Float(v float64) *float64 { return &v }
