package calculator

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"ValuationSentinel/internal/model"
)

// RSIMethod selects how average gains and losses are smoothed.
type RSIMethod string

const (
	// RSIWilder seeds with the simple mean of the first period changes, then
	// applies exponential smoothing with alpha = 1/period.
	RSIWilder RSIMethod = "wilder"
	// RSISMA uses a plain rolling mean over the last period changes.
	RSISMA RSIMethod = "sma"
)

// ParseRSIMethod maps a config value to an RSIMethod. Empty means Wilder.
func ParseRSIMethod(s string) (RSIMethod, error) {
	switch RSIMethod(strings.ToLower(strings.TrimSpace(s))) {
	case "", RSIWilder:
		return RSIWilder, nil
	case RSISMA:
		return RSISMA, nil
	default:
		return "", fmt.Errorf("unknown rsi method %q", s)
	}
}

// CalculateRSI returns the latest RSI over the given period.
// Requires at least period+1 bars.
func CalculateRSI(bars []model.PriceBar, period int, method RSIMethod) (float64, error) {
	series, err := RSISeries(extractCloses(bars), period, method)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}

// RSISeries computes RSI for every close. Entries before index period are NaN.
func RSISeries(closes []float64, period int, method RSIMethod) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	if method != RSIWilder && method != RSISMA {
		return nil, fmt.Errorf("unknown rsi method %q", method)
	}
	if len(closes) < period+1 {
		return nil, fmt.Errorf("rsi(%d) needs %d bars, got %d: %w", period, period+1, len(closes), ErrInsufficientHistory)
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	out := make([]float64, len(closes))
	for i := 0; i < period; i++ {
		out[i] = math.NaN()
	}

	// Seed: simple mean of the first `period` changes.
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		switch method {
		case RSISMA:
			avgGain = windowMean(gains[i-period+1 : i+1])
			avgLoss = windowMean(losses[i-period+1 : i+1])
		default:
			avgGain = (avgGain*(p-1) + gains[i]) / p
			avgLoss = (avgLoss*(p-1) + losses[i]) / p
		}
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}
	return out, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

func windowMean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
