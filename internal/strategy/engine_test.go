package strategy

import (
	"reflect"
	"testing"

	"ValuationSentinel/internal/model"
)

func bundle(trend model.Trend, pe, roe *float64, rsi float64) *model.IndicatorBundle {
	return &model.IndicatorBundle{
		Ticker:     "TEST3",
		LastPrice:  20,
		RSI:        rsi,
		RSIDefined: true,
		Trend:      trend,
		PE:         pe,
		ROE:        roe,
	}
}

func ordered() Policy { return &OrderedPriorityPolicy{Thresholds: DefaultThresholds()} }
func flags() Policy   { return &IndependentFlagsPolicy{Thresholds: DefaultThresholds()} }

func TestOrdered_GoldBuy(t *testing.T) {
	c := ordered().Classify(bundle(model.TrendUp, model.Float(8), model.Float(0.18), 40))
	if c.Signal != model.SignalBuyGold {
		t.Fatalf("expected BUY_GOLD, got %s", c.Signal)
	}
	if !reflect.DeepEqual(c.Reasons, []string{ReasonGoldBuy}) {
		t.Errorf("unexpected reasons %v", c.Reasons)
	}
}

func TestOrdered_SellOverridesGold(t *testing.T) {
	c := ordered().Classify(bundle(model.TrendUp, model.Float(8), model.Float(0.18), 75))
	if c.Signal != model.SignalSell {
		t.Fatalf("expected SELL, got %s", c.Signal)
	}
	if !reflect.DeepEqual(c.Reasons, []string{"RSI overbought"}) {
		t.Errorf("expected reasons replaced with [RSI overbought], got %v", c.Reasons)
	}
}

func TestOrdered_MissingFundamentalsNeutral(t *testing.T) {
	c := ordered().Classify(bundle(model.TrendUp, nil, nil, 50))
	if c.Signal != model.SignalNeutral {
		t.Fatalf("expected NEUTRAL, got %s", c.Signal)
	}
	if len(c.Reasons) != 0 {
		t.Errorf("expected no reasons, got %v", c.Reasons)
	}
}

func TestOrdered_Tiers(t *testing.T) {
	pe, roe := model.Float(8), model.Float(0.18)
	tests := []struct {
		name   string
		b      *model.IndicatorBundle
		signal model.Signal
		reason string
	}{
		{"tactical oversold downtrend", bundle(model.TrendDown, nil, nil, 30), model.SignalBuy, ReasonOversold},
		{"tactical boundary 35 fires", bundle(model.TrendDown, nil, nil, 35), model.SignalBuy, ReasonOversold},
		{"just above oversold", bundle(model.TrendDown, nil, nil, 35.01), model.SignalNeutral, ""},
		{"quality buy rsi 66", bundle(model.TrendUp, pe, roe, 66), model.SignalBuy, ReasonQualityBuy},
		{"gold cap 65 is not gold", bundle(model.TrendUp, pe, roe, 65), model.SignalBuy, ReasonQualityBuy},
		{"gold beats tactical", bundle(model.TrendUp, pe, roe, 20), model.SignalBuyGold, ReasonGoldBuy},
		{"sell boundary 70 fires", bundle(model.TrendDown, nil, nil, 70), model.SignalSell, ReasonOverbought},
		{"69.99 quality", bundle(model.TrendUp, pe, roe, 69.99), model.SignalBuy, ReasonQualityBuy},
		{"pe at cap", bundle(model.TrendUp, model.Float(15), roe, 50), model.SignalNeutral, ""},
		{"negative pe", bundle(model.TrendUp, model.Float(-3), roe, 50), model.SignalNeutral, ""},
		{"roe at floor", bundle(model.TrendUp, pe, model.Float(0.10), 50), model.SignalNeutral, ""},
		{"unknown trend", bundle(model.TrendUnknown, pe, roe, 50), model.SignalNeutral, ""},
		{"downtrend good fundamentals", bundle(model.TrendDown, pe, roe, 50), model.SignalNeutral, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ordered().Classify(tt.b)
			if c.Signal != tt.signal {
				t.Errorf("expected %s, got %s", tt.signal, c.Signal)
			}
			if tt.reason == "" && len(c.Reasons) != 0 {
				t.Errorf("expected no reasons, got %v", c.Reasons)
			}
			if tt.reason != "" && !reflect.DeepEqual(c.Reasons, []string{tt.reason}) {
				t.Errorf("expected [%s], got %v", tt.reason, c.Reasons)
			}
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	b := bundle(model.TrendUp, model.Float(8), model.Float(0.18), 40)
	b.GrahamPrice = model.Float(30)
	b.GrahamMarginPct = model.Float(50)
	for _, p := range []Policy{ordered(), flags()} {
		first := p.Classify(b)
		second := p.Classify(b)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("%s: classify not idempotent: %+v vs %+v", p.Name(), first, second)
		}
	}
}

func TestFlags_AllFire(t *testing.T) {
	b := bundle(model.TrendDown, nil, nil, 30)
	b.GrahamPrice = model.Float(26)
	b.GrahamMarginPct = model.Float(30)
	b.BazinCeiling = model.Float(25)
	c := flags().Classify(b)
	if c.Signal != model.SignalBuy {
		t.Fatalf("expected BUY, got %s", c.Signal)
	}
	want := []string{ReasonRSILow, "Graham +30%", ReasonBazinCeiling}
	if !reflect.DeepEqual(c.Reasons, want) {
		t.Errorf("expected %v, got %v", want, c.Reasons)
	}
}

func TestFlags_Boundaries(t *testing.T) {
	b := bundle(model.TrendUp, model.Float(8), model.Float(0.18), 36)
	b.GrahamMarginPct = model.Float(20) // strict >
	b.BazinCeiling = model.Float(20)    // price == ceiling, strict <
	c := flags().Classify(b)
	if c.Signal != model.SignalNeutral || len(c.Reasons) != 0 {
		t.Errorf("expected NEUTRAL with no reasons, got %s %v", c.Signal, c.Reasons)
	}
}

func TestFlags_NoSellOverride(t *testing.T) {
	b := bundle(model.TrendUp, nil, nil, 80)
	b.BazinCeiling = model.Float(40)
	c := flags().Classify(b)
	if c.Signal != model.SignalBuy {
		t.Errorf("flags policy has no sell tier, expected BUY, got %s", c.Signal)
	}
	if !c.Highlights.RSIOverbought {
		t.Error("expected overbought highlight")
	}
}

func TestHighlight(t *testing.T) {
	th := DefaultThresholds()
	b := &model.IndicatorBundle{
		LastPrice:     10,
		RSI:           30,
		RSIDefined:    true,
		Trend:         model.TrendUp,
		GrahamPrice:   model.Float(12),
		BazinCeiling:  model.Float(9),
		ROE:           model.Float(0.2),
		PE:            model.Float(9),
		PB:            model.Float(1.5),
		DividendYield: model.Float(0.07),
	}
	h := Highlight(b, th)
	want := model.Highlights{
		RSIOversold:   true,
		TrendUp:       true,
		BelowGraham:   true,
		BelowBazin:    false,
		ROE:           true,
		PE:            true,
		PB:            false,
		DividendYield: true,
	}
	if h != want {
		t.Errorf("expected %+v, got %+v", want, h)
	}

	b.RSIDefined = false
	if Highlight(b, th).RSIOversold {
		t.Error("undefined RSI should not be highlighted")
	}
}

func TestNewPolicy(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", PolicyOrdered, false},
		{"ordered", PolicyOrdered, false},
		{"FLAGS", PolicyFlags, false},
		{"score", "", true},
	}
	for _, tt := range tests {
		p, err := NewPolicy(tt.name, DefaultThresholds())
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err=%v wantErr=%v", tt.name, err, tt.wantErr)
			continue
		}
		if err == nil && p.Name() != tt.want {
			t.Errorf("%q: expected %s, got %s", tt.name, tt.want, p.Name())
		}
	}
}

func TestIsOpportunity(t *testing.T) {
	for sig, want := range map[model.Signal]bool{
		model.SignalBuyGold: true,
		model.SignalBuy:     true,
		model.SignalSell:    false,
		model.SignalNeutral: false,
	} {
		c := &model.Classification{Signal: sig}
		if c.IsOpportunity() != want {
			t.Errorf("%s: expected %v", sig, want)
		}
	}
}
