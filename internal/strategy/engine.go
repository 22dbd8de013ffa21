package strategy

import (
	"fmt"
	"strings"

	"ValuationSentinel/internal/model"
)

// Policy names accepted by NewPolicy.
const (
	PolicyOrdered = "ordered"
	PolicyFlags   = "flags"
)

// Reason tags attached to classifications.
const (
	ReasonGoldBuy       = "Gold buy: uptrend + solid fundamentals"
	ReasonOversold      = "RSI oversold"
	ReasonQualityBuy    = "Quality buy: uptrend + solid fundamentals"
	ReasonOverbought    = "RSI overbought"
	ReasonRSILow        = "RSI low"
	ReasonBazinCeiling  = "Below Bazin ceiling"
	reasonGrahamPattern = "Graham +%.0f%%"
)

// Thresholds are the cut-offs used by the classification policies.
type Thresholds struct {
	RSIOversold     float64 `yaml:"rsi_oversold"`
	RSIOverbought   float64 `yaml:"rsi_overbought"`
	GoldRSICap      float64 `yaml:"gold_rsi_cap"`
	PECap           float64 `yaml:"pe_cap"`
	ROEFloor        float64 `yaml:"roe_floor"`
	PVPCap          float64 `yaml:"pvp_cap"`
	DYFloor         float64 `yaml:"dy_floor"`
	GrahamMarginMin float64 `yaml:"graham_margin_min"`
}

// DefaultThresholds returns the canonical cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RSIOversold:     35,
		RSIOverbought:   70,
		GoldRSICap:      65,
		PECap:           15,
		ROEFloor:        0.10,
		PVPCap:          1.5,
		DYFloor:         0.06,
		GrahamMarginMin: 20,
	}
}

// Policy classifies a single indicator bundle. Implementations hold no
// mutable state, so Classify is safe for concurrent use.
type Policy interface {
	Name() string
	Classify(b *model.IndicatorBundle) model.Classification
}

// NewPolicy builds the named policy. Empty name selects the ordered policy.
func NewPolicy(name string, th Thresholds) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", PolicyOrdered:
		return &OrderedPriorityPolicy{Thresholds: th}, nil
	case PolicyFlags:
		return &IndependentFlagsPolicy{Thresholds: th}, nil
	default:
		return nil, fmt.Errorf("unknown classification policy %q", name)
	}
}

// OrderedPriorityPolicy picks the first matching buy tier (gold, tactical,
// quality) and then lets an overbought RSI override everything with Sell.
type OrderedPriorityPolicy struct {
	Thresholds Thresholds
}

func (p *OrderedPriorityPolicy) Name() string { return PolicyOrdered }

// Classify applies the ordered rules to b.
func (p *OrderedPriorityPolicy) Classify(b *model.IndicatorBundle) model.Classification {
	th := p.Thresholds
	c := model.Classification{Signal: model.SignalNeutral, Reasons: []string{}, Highlights: Highlight(b, th)}

	uptrend := b.Trend == model.TrendUp
	solid := fundamentalsGood(b, th)

	switch {
	case uptrend && solid && b.RSI < th.GoldRSICap:
		c.Signal = model.SignalBuyGold
		c.Reasons = []string{ReasonGoldBuy}
	case b.RSI <= th.RSIOversold:
		c.Signal = model.SignalBuy
		c.Reasons = []string{ReasonOversold}
	case uptrend && solid:
		c.Signal = model.SignalBuy
		c.Reasons = []string{ReasonQualityBuy}
	}

	// Sell replaces, never appends: a ticker cannot carry buy and sell reasons at once.
	if b.RSI >= th.RSIOverbought {
		c.Signal = model.SignalSell
		c.Reasons = []string{ReasonOverbought}
	}
	return c
}

// IndependentFlagsPolicy raises a Buy when any of RSI-low, Graham discount
// or Bazin ceiling fires; every firing flag adds its own reason.
type IndependentFlagsPolicy struct {
	Thresholds Thresholds
}

func (p *IndependentFlagsPolicy) Name() string { return PolicyFlags }

// Classify evaluates each flag on its own.
func (p *IndependentFlagsPolicy) Classify(b *model.IndicatorBundle) model.Classification {
	th := p.Thresholds
	c := model.Classification{Signal: model.SignalNeutral, Reasons: []string{}, Highlights: Highlight(b, th)}

	if b.RSI <= th.RSIOversold {
		c.Reasons = append(c.Reasons, ReasonRSILow)
	}
	if b.GrahamMarginPct != nil && *b.GrahamMarginPct > th.GrahamMarginMin {
		c.Reasons = append(c.Reasons, fmt.Sprintf(reasonGrahamPattern, *b.GrahamMarginPct))
	}
	if belowBazin(b) {
		c.Reasons = append(c.Reasons, ReasonBazinCeiling)
	}
	if len(c.Reasons) > 0 {
		c.Signal = model.SignalBuy
	}
	return c
}
