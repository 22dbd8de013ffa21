package notifier

import (
	"errors"
	"strings"
	"testing"
	"time"

	"ValuationSentinel/internal/model"
)

func classified(ticker string, sig model.Signal, bundle *model.IndicatorBundle, reasons ...string) model.Result {
	bundle.Ticker = ticker
	return model.Result{
		Ticker:         ticker,
		Bundle:         bundle,
		Classification: &model.Classification{Signal: sig, Reasons: reasons},
	}
}

func testRun() *model.Run {
	return &model.Run{
		StartedAt:  time.Date(2026, 5, 4, 13, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2026, 5, 4, 13, 0, 12, 0, time.UTC),
		Policy:     "ordered",
		RSIMethod:  "wilder",
		Results: []model.Result{
			classified("ITUB4.SA", model.SignalBuy, &model.IndicatorBundle{LastPrice: 33.1, RSI: 30, RSIDefined: true, Trend: model.TrendDown}, "RSI oversold"),
			classified("WEGE3.SA", model.SignalNeutral, &model.IndicatorBundle{LastPrice: 41.2, RSI: 52, RSIDefined: true, Trend: model.TrendUp}),
			{Ticker: "MBRF3.SA", Err: errors.New("fetch price history: market data unavailable")},
			classified("PETR4.SA", model.SignalBuyGold, &model.IndicatorBundle{
				LastPrice: 37.2, RSI: 48, RSIDefined: true, Trend: model.TrendUp,
				GrahamPrice: model.Float(48.3), GrahamMarginPct: model.Float(29.8),
				PE: model.Float(4.6), ROE: model.Float(0.27), DividendYield: model.Float(0.152),
			}, "Gold buy: uptrend + solid fundamentals"),
			classified("VULC3.SA", model.SignalSell, &model.IndicatorBundle{LastPrice: 18, RSI: 74, RSIDefined: true, Trend: model.TrendUp}, "RSI overbought"),
		},
	}
}

func TestFormatReport_Sections(t *testing.T) {
	out := FormatReport(testRun())

	for _, want := range []string{
		"2026-05-04 13:00",
		"Policy: ordered · RSI: wilder",
		"Opportunities (2)",
		"Sell (1)",
		"Watch-list (1)",
		"Skipped (1): MBRF3",
		"<b>PETR4</b> 37.20",
		"Graham 48.30 (+30%)",
		"ROE 27.0%",
		"DY 15.2%",
		"<i>RSI overbought</i>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, ".SA") {
		t.Errorf("exchange suffix should be stripped:\n%s", out)
	}

	// Gold tier is listed before the plain buy even though it came later.
	if strings.Index(out, "PETR4") > strings.Index(out, "ITUB4") {
		t.Errorf("gold opportunity should come first:\n%s", out)
	}
	if strings.Index(out, "Opportunities") > strings.Index(out, "Sell") ||
		strings.Index(out, "Sell") > strings.Index(out, "Watch-list") ||
		strings.Index(out, "Watch-list") > strings.Index(out, "Skipped") {
		t.Errorf("sections out of order:\n%s", out)
	}
}

func TestFormatReport_Empty(t *testing.T) {
	if got := FormatReport(nil); !strings.Contains(got, "No evaluation") {
		t.Errorf("nil run: %q", got)
	}
	out := FormatReport(&model.Run{})
	if !strings.Contains(out, "Opportunities (0)") || !strings.Contains(out, "none") {
		t.Errorf("empty run:\n%s", out)
	}
}

func TestFormatTicker_MissingFields(t *testing.T) {
	r := classified("HAPV3.SA", model.SignalBuy, &model.IndicatorBundle{LastPrice: 4.1, RSI: model.NeutralRSI, Trend: model.TrendUnknown}, "Below Bazin ceiling")
	out := FormatTicker(r)

	if !strings.Contains(out, "RSI – | –") {
		t.Errorf("undefined RSI and unknown trend should render as dashes:\n%s", out)
	}
	if !strings.Contains(out, "Graham – (–) · Bazin –") {
		t.Errorf("missing valuations should render as dashes:\n%s", out)
	}
	if !strings.Contains(out, "P/L – · P/VP – · ROE – · DY –") {
		t.Errorf("missing fundamentals should render as dashes:\n%s", out)
	}
}

func TestFormatTicker_HighlightsBold(t *testing.T) {
	r := classified("BBAS3.SA", model.SignalBuy, &model.IndicatorBundle{LastPrice: 20, RSI: 30, RSIDefined: true, PE: model.Float(4.1)})
	r.Classification.Highlights = model.Highlights{RSIOversold: true, PE: true}
	out := FormatTicker(r)
	if !strings.Contains(out, "RSI <b>30</b>") || !strings.Contains(out, "P/L <b>4.1</b>") {
		t.Errorf("highlighted values should be bold:\n%s", out)
	}
}

func TestFormatSkipped(t *testing.T) {
	out := FormatSkipped(testRun())
	if !strings.Contains(out, "<b>MBRF3</b>: fetch price history: market data unavailable") {
		t.Errorf("skipped list:\n%s", out)
	}

	clean := &model.Run{Results: []model.Result{testRun().Results[0]}}
	if !strings.Contains(FormatSkipped(clean), "No tickers were skipped") {
		t.Error("expected all-clear message")
	}
}

func TestChunks(t *testing.T) {
	text := strings.Repeat("line of text\n", 10) // 130 bytes
	parts := Chunks(text, 40)
	if strings.Join(parts, "") != text {
		t.Fatal("chunks must reassemble to the original text")
	}
	for _, p := range parts {
		if len(p) > 40 {
			t.Errorf("chunk too long: %d", len(p))
		}
		if !strings.HasSuffix(p, "\n") {
			t.Errorf("chunk should end at a line break: %q", p)
		}
	}

	long := strings.Repeat("–", 30) // 90 bytes, no newline
	parts = Chunks(long, 20)
	if strings.Join(parts, "") != long {
		t.Fatal("long line must reassemble")
	}
	for _, p := range parts {
		if len(p) > 20 || !strings.HasPrefix(p, "–") {
			t.Errorf("bad rune split: %q", p)
		}
	}

	if got := Chunks("short", 4096); len(got) != 1 || got[0] != "short" {
		t.Errorf("short text = %v", got)
	}
}
