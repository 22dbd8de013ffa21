package calculator

import (
	"errors"
	"fmt"

	"ValuationSentinel/internal/model"
)

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, fmt.Errorf("sma(%d) got %d prices: %w", period, len(prices), ErrInsufficientHistory)
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// CalculateTrend compares the last close with its simple moving average over window bars.
// It returns TrendUnknown (and the error) when fewer than window bars exist.
// A close equal to the average counts as TrendDown.
func CalculateTrend(bars []model.PriceBar, window int) (model.Trend, float64, error) {
	if len(bars) < window {
		return model.TrendUnknown, 0, fmt.Errorf("trend window %d, got %d bars: %w", window, len(bars), ErrInsufficientHistory)
	}
	ma, err := CalculateSMA(extractCloses(bars), window)
	if err != nil {
		return model.TrendUnknown, 0, err
	}
	if bars[len(bars)-1].Close > ma {
		return model.TrendUp, ma, nil
	}
	return model.TrendDown, ma, nil
}

func extractCloses(bars []model.PriceBar) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}
