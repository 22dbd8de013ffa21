package calculator

import (
	"errors"
	"math"
	"testing"
)

func TestCalculateGraham_NonPositiveGuard(t *testing.T) {
	tests := []struct {
		eps, bv, price float64
	}{
		{-1, 5, 10},
		{0, 5, 10},
		{2, 0, 10},
		{2, -3, 10},
		{2, 8, 0},
	}
	for _, tt := range tests {
		_, _, err := CalculateGraham(tt.eps, tt.bv, tt.price)
		if !errors.Is(err, ErrUndefinedValuation) {
			t.Errorf("eps=%v bv=%v price=%v: expected ErrUndefinedValuation, got %v", tt.eps, tt.bv, tt.price, err)
		}
	}
}

func TestCalculateGraham_KnownValue(t *testing.T) {
	fair, margin, err := CalculateGraham(2, 8, 15)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fair-math.Sqrt(360)) > 1e-9 {
		t.Errorf("expected fair %.4f, got %.4f", math.Sqrt(360), fair)
	}
	if math.Abs(fair-18.97) > 0.01 {
		t.Errorf("expected fair ~18.97, got %.4f", fair)
	}
	if math.Abs(margin-26.49) > 0.01 {
		t.Errorf("expected margin ~26.49%%, got %.4f", margin)
	}
}

func TestCalculateBazinCeiling(t *testing.T) {
	ceiling, err := CalculateBazinCeiling(3, DefaultBazinYield)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ceiling-50) > 1e-9 {
		t.Errorf("expected 50, got %.4f", ceiling)
	}
	for _, dps := range []float64{0, -1} {
		if _, err := CalculateBazinCeiling(dps, DefaultBazinYield); !errors.Is(err, ErrUndefinedValuation) {
			t.Errorf("dps=%v: expected ErrUndefinedValuation, got %v", dps, err)
		}
	}
	if _, err := CalculateBazinCeiling(3, 0); err == nil {
		t.Error("expected error for zero target yield")
	}
}

func TestBazinFromYield_EqualYieldGivesCurrentPrice(t *testing.T) {
	dps, err := DividendFromYield(0.06, 100)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(dps-6.0) > 1e-9 {
		t.Fatalf("expected dividend 6.0, got %.6f", dps)
	}
	ceiling, err := CalculateBazinCeiling(dps, 0.06)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(ceiling-100) > 1e-9 {
		t.Errorf("expected ceiling 100, got %.6f", ceiling)
	}
}

func TestDividendFromYield_Guard(t *testing.T) {
	if _, err := DividendFromYield(0, 100); !errors.Is(err, ErrUndefinedValuation) {
		t.Errorf("expected ErrUndefinedValuation for zero yield, got %v", err)
	}
	if _, err := DividendFromYield(0.05, 0); !errors.Is(err, ErrUndefinedValuation) {
		t.Errorf("expected ErrUndefinedValuation for zero price, got %v", err)
	}
}
