package service

import "math"

// DefaultPlatformFeeRate is the marketplace commission applied when none is configured.
const DefaultPlatformFeeRate = 0.10

// PricingCalculator derives the platform fee and total for a service price.
type PricingCalculator struct {
	feeRate float64
}

// NewPricingCalculator creates a calculator with the given fee rate. Negative rates fall back to the default.
func NewPricingCalculator(feeRate float64) *PricingCalculator {
	if feeRate < 0 {
		feeRate = DefaultPlatformFeeRate
	}
	return &PricingCalculator{feeRate: feeRate}
}

// FeeRate returns the configured rate.
func (p *PricingCalculator) FeeRate() float64 {
	return p.feeRate
}

// Price returns the platform fee, rounded to cents, and the total the customer pays.
// Total is exactly servicePrice + platformFee and is never rounded on its own.
func (p *PricingCalculator) Price(servicePrice float64) (platformFee, total float64) {
	platformFee = roundCents(servicePrice * p.feeRate)
	return platformFee, servicePrice + platformFee
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
