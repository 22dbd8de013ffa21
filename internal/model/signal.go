package model

import "time"

// Signal is the bucket a ticker is classified into.
type Signal string

const (
	SignalBuyGold Signal = "BUY_GOLD"
	SignalBuy     Signal = "BUY"
	SignalSell    Signal = "SELL"
	SignalNeutral Signal = "NEUTRAL"
)

// Highlights mark individual indicators that look favourable (or, for
// RSIOverbought, unfavourable) so a presenter can colour them.
type Highlights struct {
	RSIOversold   bool `json:"rsi_oversold"`
	RSIOverbought bool `json:"rsi_overbought"`
	TrendUp       bool `json:"trend_up"`
	BelowGraham   bool `json:"below_graham"`
	BelowBazin    bool `json:"below_bazin"`
	ROE           bool `json:"roe"`
	PE            bool `json:"pe"`
	PB            bool `json:"pb"`
	DividendYield bool `json:"dividend_yield"`
}

// Classification is the outcome of applying a policy to one bundle.
type Classification struct {
	Signal     Signal     `json:"signal"`
	Reasons    []string   `json:"reasons"`
	Highlights Highlights `json:"highlights"`
}

// IsOpportunity reports whether the signal is one of the buy tiers.
func (c *Classification) IsOpportunity() bool {
	return c != nil && (c.Signal == SignalBuy || c.Signal == SignalBuyGold)
}

// Result is the per-ticker outcome of an evaluation run.
// Exactly one of Bundle or Err is set.
type Result struct {
	Ticker         string           `json:"ticker"`
	Bundle         *IndicatorBundle `json:"bundle,omitempty"`
	Classification *Classification  `json:"classification,omitempty"`
	Err            error            `json:"-"`
}

// Run is a completed evaluation over the whole watch-list.
type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Policy     string    `json:"policy"`
	RSIMethod  string    `json:"rsi_method"`
	Results    []Result  `json:"results"`
}

// Skipped returns the results that produced no bundle.
func (r *Run) Skipped() []Result {
	var out []Result
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// CountBySignal tallies classified results per signal.
func (r *Run) CountBySignal() map[Signal]int {
	counts := make(map[Signal]int)
	for _, res := range r.Results {
		if res.Classification != nil {
			counts[res.Classification.Signal]++
		}
	}
	return counts
}
