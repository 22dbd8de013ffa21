package calculator

import (
	"errors"
	"math"
)

// DefaultBazinYield is the canonical 6% target yield.
const DefaultBazinYield = 0.06

// grahamMultiplier is 15 (max P/E) x 1.5 (max P/B).
const grahamMultiplier = 22.5

// CalculateGraham returns the Graham number sqrt(22.5 * eps * bvps) and the
// margin of the current price against it, in percent.
func CalculateGraham(eps, bookValue, price float64) (fairPrice, marginPct float64, err error) {
	if eps <= 0 || bookValue <= 0 || price <= 0 {
		return 0, 0, ErrUndefinedValuation
	}
	fairPrice = math.Sqrt(grahamMultiplier * eps * bookValue)
	marginPct = (fairPrice - price) / price * 100
	return fairPrice, marginPct, nil
}

// CalculateBazinCeiling returns the highest price at which the trailing dividend
// per share still yields targetYield.
func CalculateBazinCeiling(dividendPerShare, targetYield float64) (float64, error) {
	if targetYield <= 0 {
		return 0, errors.New("target yield must be positive")
	}
	if dividendPerShare <= 0 {
		return 0, ErrUndefinedValuation
	}
	return dividendPerShare / targetYield, nil
}

// DividendFromYield converts a yield fraction into an absolute dividend per share.
func DividendFromYield(yield, price float64) (float64, error) {
	if yield <= 0 || price <= 0 {
		return 0, ErrUndefinedValuation
	}
	return yield * price, nil
}
