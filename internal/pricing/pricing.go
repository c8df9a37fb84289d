// Package pricing maps sector occupancy to price multipliers and computes
// elapsed-time prices. All functions are pure; rounding is banker's rounding
// (round half to even) throughout.
package pricing

import "github.com/shopspring/decimal"

var (
	tierLow  = decimal.New(25, -2) // 0.25
	tierMid  = decimal.New(50, -2) // 0.50
	tierHigh = decimal.New(75, -2) // 0.75

	factorDiscount = decimal.New(90, -2)  // 0.90
	factorNeutral  = decimal.New(100, -2) // 1.00
	factorRaised   = decimal.New(110, -2) // 1.10
	factorPeak     = decimal.New(125, -2) // 1.25

	sixty = decimal.NewFromInt(60)
)

// DefaultFactor is used when a sector has no occupancy history yet.
func DefaultFactor() decimal.Decimal {
	return factorNeutral
}

// Factor maps an occupancy ratio in [0,1] to the price multiplier. Tier
// boundaries are inclusive on the upper tier: exactly 0.25 already prices as
// the second tier, exactly 0.75 as the top one.
func Factor(ratio decimal.Decimal) decimal.Decimal {
	var f decimal.Decimal
	switch {
	case ratio.LessThan(tierLow):
		f = factorDiscount
	case ratio.LessThan(tierMid):
		f = factorNeutral
	case ratio.LessThan(tierHigh):
		f = factorRaised
	default:
		f = factorPeak
	}
	return f.RoundBank(2)
}

// Ratio computes occupied/total at 4-decimal precision.
func Ratio(occupied, total int) decimal.Decimal {
	return decimal.NewFromInt(int64(occupied)).
		Div(decimal.NewFromInt(int64(total))).
		RoundBank(4)
}

// Price computes basePrice × factor × (minutes/60). The duration in hours is
// rounded to 2 decimals before the multiplication, matching how exits have
// always been billed, and the result is rounded to 2 decimals again.
func Price(basePrice, factor decimal.Decimal, minutes int64) decimal.Decimal {
	hours := decimal.NewFromInt(minutes).Div(sixty).RoundBank(2)
	return basePrice.Mul(factor).Mul(hours).RoundBank(2)
}
