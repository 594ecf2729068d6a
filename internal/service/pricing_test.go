package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPricingCalculator_Price(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		rate      float64
		price     float64
		wantFee   float64
		wantTotal float64
	}{
		{name: "default rate", rate: 0.10, price: 100, wantFee: 10, wantTotal: 110},
		{name: "rounds fee to cents", rate: 0.10, price: 49.99, wantFee: 5.00, wantTotal: 54.99},
		{name: "rounds down", rate: 0.10, price: 33.33, wantFee: 3.33, wantTotal: 36.66},
		{name: "custom rate", rate: 0.15, price: 80, wantFee: 12, wantTotal: 92},
		{name: "zero rate", rate: 0, price: 75.5, wantFee: 0, wantTotal: 75.5},
		{name: "free service", rate: 0.10, price: 0, wantFee: 0, wantTotal: 0},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fee, total := NewPricingCalculator(tc.rate).Price(tc.price)
			assert.Equal(t, tc.wantFee, fee)
			assert.Equal(t, tc.price+fee, total)
			assert.InDelta(t, tc.wantTotal, total, 0.005)
		})
	}
}

func TestPricingCalculator_TotalIsExactSumForEveryCentPrice(t *testing.T) {
	t.Parallel()

	for _, rate := range []float64{0, 0.10, 0.15, 0.175} {
		calc := NewPricingCalculator(rate)
		for cents := 1; cents <= 100000; cents++ {
			price := float64(cents) / 100
			fee, total := calc.Price(price)
			if total != price+fee {
				t.Fatalf("rate %v price %v: total %v != price+fee %v", rate, price, total, price+fee)
			}
			if fee != roundCents(fee) {
				t.Fatalf("rate %v price %v: fee %v is not whole cents", rate, price, fee)
			}
			if fee < 0 || fee > price*rate+0.00501 {
				t.Fatalf("rate %v price %v: fee %v out of range", rate, price, fee)
			}
		}
	}
}

func TestPricingCalculator_NegativeRateFallsBack(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultPlatformFeeRate, NewPricingCalculator(-1).FeeRate())
}
