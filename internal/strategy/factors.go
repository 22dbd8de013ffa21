package strategy

import "ValuationSentinel/internal/model"

// fundamentalsGood requires both a positive P/E under the cap and ROE above the floor.
func fundamentalsGood(b *model.IndicatorBundle, th Thresholds) bool {
	return peWithinCap(b, th) && roeAboveFloor(b, th)
}

func peWithinCap(b *model.IndicatorBundle, th Thresholds) bool {
	return b.PE != nil && *b.PE > 0 && *b.PE < th.PECap
}

func roeAboveFloor(b *model.IndicatorBundle, th Thresholds) bool {
	return b.ROE != nil && *b.ROE > th.ROEFloor
}

func belowGraham(b *model.IndicatorBundle) bool {
	return b.GrahamPrice != nil && b.LastPrice < *b.GrahamPrice
}

func belowBazin(b *model.IndicatorBundle) bool {
	return b.BazinCeiling != nil && b.LastPrice < *b.BazinCeiling
}

// Highlight flags each indicator a presenter would mark as favourable.
func Highlight(b *model.IndicatorBundle, th Thresholds) model.Highlights {
	return model.Highlights{
		RSIOversold:   b.RSIDefined && b.RSI <= th.RSIOversold,
		RSIOverbought: b.RSIDefined && b.RSI >= th.RSIOverbought,
		TrendUp:       b.Trend == model.TrendUp,
		BelowGraham:   belowGraham(b),
		BelowBazin:    belowBazin(b),
		ROE:           roeAboveFloor(b, th),
		PE:            peWithinCap(b, th),
		PB:            b.PB != nil && *b.PB > 0 && *b.PB < th.PVPCap,
		DividendYield: b.DividendYield != nil && *b.DividendYield > th.DYFloor,
	}
}
