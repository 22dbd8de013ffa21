package calculator

import "errors"

var (
	// ErrInsufficientHistory means there are fewer bars than the indicator window.
	ErrInsufficientHistory = errors.New("insufficient price history")
	// ErrUndefinedValuation means a valuation formula got non-positive inputs.
	ErrUndefinedValuation = errors.New("valuation undefined for non-positive inputs")
)
