package model

// Trend is the MA-based direction of a ticker.
type Trend string

const (
	TrendUp      Trend = "UP"
	TrendDown    Trend = "DOWN"
	TrendUnknown Trend = "UNKNOWN"
)

// NeutralRSI is carried by a bundle whose RSI could not be computed.
const NeutralRSI = 50.0

// IndicatorBundle holds everything computed for one ticker in one run.
type IndicatorBundle struct {
	Ticker          string   `json:"ticker"`
	LastPrice       float64  `json:"last_price"`
	RSI             float64  `json:"rsi"`
	RSIDefined      bool     `json:"rsi_defined"`
	Trend           Trend    `json:"trend"`
	MovingAverage   *float64 `json:"moving_average,omitempty"`
	GrahamPrice     *float64 `json:"graham_price,omitempty"`
	GrahamMarginPct *float64 `json:"graham_margin_pct,omitempty"`
	BazinCeiling    *float64 `json:"bazin_ceiling,omitempty"`
	ROE             *float64 `json:"roe,omitempty"`
	PE              *float64 `json:"pe,omitempty"`
	PB              *float64 `json:"pb,omitempty"`
	DividendYield   *float64 `json:"dividend_yield,omitempty"`
}
