// Package indicator turns a price series and a fundamentals snapshot into an
// IndicatorBundle. It performs no I/O.
package indicator

import (
	"errors"
	"fmt"
	"log"

	"ValuationSentinel/internal/calculator"
	"ValuationSentinel/internal/model"
)

// Options configures the indicator engine.
type Options struct {
	RSIMethod        calculator.RSIMethod
	RSIPeriod        int
	TrendWindow      int
	BazinTargetYield float64
}

// DefaultOptions returns RSI(14, Wilder), MA50 and a 6% Bazin yield.
func DefaultOptions() Options {
	return Options{
		RSIMethod:        calculator.RSIWilder,
		RSIPeriod:        14,
		TrendWindow:      50,
		BazinTargetYield: calculator.DefaultBazinYield,
	}
}

// Engine computes indicator bundles.
type Engine struct {
	opts Options
}

// NewEngine creates an Engine, filling zero options with defaults.
func NewEngine(opts Options) *Engine {
	def := DefaultOptions()
	if opts.RSIMethod == "" {
		opts.RSIMethod = def.RSIMethod
	}
	if opts.RSIPeriod <= 0 {
		opts.RSIPeriod = def.RSIPeriod
	}
	if opts.TrendWindow <= 0 {
		opts.TrendWindow = def.TrendWindow
	}
	if opts.BazinTargetYield <= 0 {
		opts.BazinTargetYield = def.BazinTargetYield
	}
	return &Engine{opts: opts}
}

// RSIMethod reports which RSI smoothing is active.
func (e *Engine) RSIMethod() calculator.RSIMethod { return e.opts.RSIMethod }

// Options returns the effective options.
func (e *Engine) Options() Options { return e.opts }

// Compute builds the bundle for one ticker. It fails only when bars is empty
// or holds a non-positive close; every other gap leaves the affected field nil.
func (e *Engine) Compute(ticker string, bars []model.PriceBar, snap *model.FundamentalSnapshot) (*model.IndicatorBundle, error) {
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: no price bars: %w", ticker, calculator.ErrInsufficientHistory)
	}
	for i, b := range bars {
		if b.Close <= 0 {
			return nil, fmt.Errorf("%s: bar %d has non-positive close %.4f", ticker, i, b.Close)
		}
	}
	if snap == nil {
		snap = &model.FundamentalSnapshot{}
	}

	last := bars[len(bars)-1].Close
	b := &model.IndicatorBundle{
		Ticker:        ticker,
		LastPrice:     last,
		ROE:           snap.ROE,
		PE:            snap.PE,
		PB:            snap.PB,
		DividendYield: snap.DividendYield,
	}
	if snap.MarketPrice != nil && *snap.MarketPrice > 0 {
		b.LastPrice = *snap.MarketPrice
	}

	// RSI
	if rsi, err := calculator.CalculateRSI(bars, e.opts.RSIPeriod, e.opts.RSIMethod); err != nil {
		log.Printf("[WARN] %s RSI calculation failed: %v, defaulting to %.0f", ticker, err, model.NeutralRSI)
		b.RSI = model.NeutralRSI
	} else {
		b.RSI = rsi
		b.RSIDefined = true
	}

	// Trend
	trend, ma, err := calculator.CalculateTrend(bars, e.opts.TrendWindow)
	b.Trend = trend
	if err == nil {
		b.MovingAverage = model.Float(ma)
	}

	// Graham
	if snap.TrailingEPS != nil && snap.BookValue != nil {
		fair, margin, err := calculator.CalculateGraham(*snap.TrailingEPS, *snap.BookValue, b.LastPrice)
		if err == nil {
			b.GrahamPrice = model.Float(fair)
			b.GrahamMarginPct = model.Float(margin)
		}
	}

	// Bazin
	if dps, ok := e.dividendPerShare(snap, b.LastPrice); ok {
		if ceiling, err := calculator.CalculateBazinCeiling(dps, e.opts.BazinTargetYield); err == nil {
			b.BazinCeiling = model.Float(ceiling)
		} else if !errors.Is(err, calculator.ErrUndefinedValuation) {
			log.Printf("[WARN] %s Bazin calculation failed: %v", ticker, err)
		}
	}

	return b, nil
}

// dividendPerShare prefers the absolute trailing dividend and falls back to
// deriving it from the yield fraction.
func (e *Engine) dividendPerShare(snap *model.FundamentalSnapshot, price float64) (float64, bool) {
	if snap.TrailingDividend != nil && *snap.TrailingDividend > 0 {
		return *snap.TrailingDividend, true
	}
	if snap.DividendYield != nil {
		dps, err := calculator.DividendFromYield(*snap.DividendYield, price)
		if err == nil {
			return dps, true
		}
	}
	return 0, false
}
