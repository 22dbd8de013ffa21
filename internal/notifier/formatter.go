package notifier

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"unicode/utf8"

	"ValuationSentinel/internal/model"
)

// MaxMessageLen is Telegram's per-message text limit.
const MaxMessageLen = 4096

// missing is rendered for any indicator that could not be computed.
const missing = "–"

// DisplayTicker drops the exchange suffix used by the data provider.
func DisplayTicker(t string) string {
	return strings.TrimSuffix(t, ".SA")
}

// FormatReport renders a full run grouped into opportunities, sells,
// the remaining watch-list and skipped tickers.
func FormatReport(run *model.Run) string {
	if run == nil {
		return "No evaluation has completed yet."
	}

	var opps, sells, watch []model.Result
	for _, r := range run.Results {
		if r.Err != nil || r.Classification == nil {
			continue
		}
		switch r.Classification.Signal {
		case model.SignalBuyGold, model.SignalBuy:
			opps = append(opps, r)
		case model.SignalSell:
			sells = append(sells, r)
		default:
			watch = append(watch, r)
		}
	}
	// Gold tier first, otherwise keep watch-list order.
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].Classification.Signal == model.SignalBuyGold &&
			opps[j].Classification.Signal != model.SignalBuyGold
	})

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 <b>ValuationSentinel</b> | %s\n", run.FinishedAt.Format("2006-01-02 15:04")))
	b.WriteString(fmt.Sprintf("Policy: %s · RSI: %s\n", run.Policy, run.RSIMethod))

	b.WriteString(fmt.Sprintf("\n🚀 <b>Opportunities (%d)</b>\n", len(opps)))
	if len(opps) == 0 {
		b.WriteString("none\n")
	}
	for _, r := range opps {
		b.WriteString(FormatTicker(r))
	}

	if len(sells) > 0 {
		b.WriteString(fmt.Sprintf("\n🔴 <b>Sell (%d)</b>\n", len(sells)))
		for _, r := range sells {
			b.WriteString(FormatTicker(r))
		}
	}

	if len(watch) > 0 {
		b.WriteString(fmt.Sprintf("\n👀 <b>Watch-list (%d)</b>\n", len(watch)))
		for _, r := range watch {
			b.WriteString(formatCompact(r))
		}
	}

	if skipped := run.Skipped(); len(skipped) > 0 {
		names := make([]string, len(skipped))
		for i, r := range skipped {
			names[i] = DisplayTicker(r.Ticker)
		}
		b.WriteString(fmt.Sprintf("\n⚠️ Skipped (%d): %s\n", len(skipped), strings.Join(names, ", ")))
	}
	return b.String()
}

// FormatSkipped lists every skipped ticker with its error.
func FormatSkipped(run *model.Run) string {
	if run == nil {
		return "No evaluation has completed yet."
	}
	skipped := run.Skipped()
	if len(skipped) == 0 {
		return "✅ No tickers were skipped in the last run."
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("⚠️ <b>Skipped tickers (%d)</b>\n\n", len(skipped)))
	for _, r := range skipped {
		b.WriteString(fmt.Sprintf("• <b>%s</b>: %s\n", DisplayTicker(r.Ticker), html.EscapeString(r.Err.Error())))
	}
	return b.String()
}

// FormatTicker renders the detailed two-line view of one classified ticker.
func FormatTicker(r model.Result) string {
	bd, c := r.Bundle, r.Classification
	h := c.Highlights

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s <b>%s</b> %.2f | RSI %s | %s\n",
		signalIcon(c.Signal), DisplayTicker(r.Ticker), bd.LastPrice,
		mark(rsiText(bd), h.RSIOversold), trendText(bd.Trend)))
	b.WriteString(fmt.Sprintf("   Graham %s (%s) · Bazin %s\n",
		mark(num(bd.GrahamPrice, "%.2f"), h.BelowGraham),
		num(bd.GrahamMarginPct, "%+.0f%%"),
		mark(num(bd.BazinCeiling, "%.2f"), h.BelowBazin)))
	b.WriteString(fmt.Sprintf("   P/L %s · P/VP %s · ROE %s · DY %s\n",
		mark(num(bd.PE, "%.1f"), h.PE),
		mark(num(bd.PB, "%.2f"), h.PB),
		mark(pct(bd.ROE), h.ROE),
		mark(pct(bd.DividendYield), h.DividendYield)))
	if len(c.Reasons) > 0 {
		b.WriteString(fmt.Sprintf("   <i>%s</i>\n", html.EscapeString(strings.Join(c.Reasons, "; "))))
	}
	return b.String()
}

func formatCompact(r model.Result) string {
	bd := r.Bundle
	return fmt.Sprintf("%s %s %.2f RSI %s %s\n",
		signalIcon(r.Classification.Signal), DisplayTicker(r.Ticker), bd.LastPrice, rsiText(bd), trendText(bd.Trend))
}

func signalIcon(s model.Signal) string {
	switch s {
	case model.SignalBuyGold:
		return "🥇"
	case model.SignalBuy:
		return "🟢"
	case model.SignalSell:
		return "🔴"
	default:
		return "⚪"
	}
}

func trendText(t model.Trend) string {
	switch t {
	case model.TrendUp:
		return "▲ MA50"
	case model.TrendDown:
		return "▼ MA50"
	default:
		return missing
	}
}

func rsiText(b *model.IndicatorBundle) string {
	if !b.RSIDefined {
		return missing
	}
	return fmt.Sprintf("%.0f", b.RSI)
}

func num(v *float64, format string) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf(format, *v)
}

func pct(v *float64) string {
	if v == nil {
		return missing
	}
	return fmt.Sprintf("%.1f%%", *v*100)
}

// mark bolds a value the classifier highlighted as favourable.
func mark(s string, on bool) string {
	if on && s != missing {
		return "<b>" + s + "</b>"
	}
	return s
}

// Chunks splits text into pieces of at most limit bytes, breaking at newlines
// where possible.
func Chunks(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			out = append(out, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
