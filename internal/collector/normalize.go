package collector

import (
	"fmt"
	"math"
	"strings"

	"ValuationSentinel/internal/model"
)

// RatioScale says how a provider expresses ratios such as dividend yield and ROE.
type RatioScale string

const (
	ScaleAuto     RatioScale = "auto"     // |v| > 1 is read as a percentage
	ScaleFraction RatioScale = "fraction" // 0.06 means 6%
	ScalePercent  RatioScale = "percent"  // 6.0 means 6%
)

// ParseRatioScale maps a config value to a RatioScale. Empty means auto.
func ParseRatioScale(s string) (RatioScale, error) {
	switch RatioScale(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScaleAuto:
		return ScaleAuto, nil
	case ScaleFraction:
		return ScaleFraction, nil
	case ScalePercent:
		return ScalePercent, nil
	default:
		return "", fmt.Errorf("unknown ratio scale %q", s)
	}
}

// Normalizer reconciles provider quirks so the engine only ever sees
// finite values with ratios as decimal fractions.
type Normalizer struct {
	Scale RatioScale
}

// Snapshot returns a normalized copy of s. A nil input yields an empty snapshot.
func (n Normalizer) Snapshot(s *model.FundamentalSnapshot) *model.FundamentalSnapshot {
	if s == nil {
		return &model.FundamentalSnapshot{}
	}
	return &model.FundamentalSnapshot{
		TrailingEPS:      finite(s.TrailingEPS),
		BookValue:        finite(s.BookValue),
		ROE:              n.ratio(s.ROE),
		PE:               finite(s.PE),
		PB:               finite(s.PB),
		DividendYield:    n.ratio(s.DividendYield),
		TrailingDividend: finite(s.TrailingDividend),
		MarketPrice:      finite(s.MarketPrice),
	}
}

func (n Normalizer) ratio(v *float64) *float64 {
	v = finite(v)
	if v == nil {
		return nil
	}
	switch n.Scale {
	case ScaleFraction:
		return model.Float(*v)
	case ScalePercent:
		return model.Float(*v / 100)
	default:
		if math.Abs(*v) > 1 {
			return model.Float(*v / 100)
		}
		return model.Float(*v)
	}
}

func finite(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return model.Float(*v)
}
