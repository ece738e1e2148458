package quote

import "github.com/yanun0323/decimal"

// RoundDownToTick rounds a price down to the nearest multiple of tick.
// Used for buy prices: a maker never pays more than the resting bid it
// is quoting against.
func RoundDownToTick(price, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return price
	}
	steps := price.Div(tick).RoundFloor(0)
	return steps.Mul(tick)
}

// RoundUpToTick rounds a price up to the nearest multiple of tick. Used
// for sell/take-profit prices.
func RoundUpToTick(price, tick decimal.Decimal) decimal.Decimal {
	if tick.IsZero() {
		return price
	}
	steps := price.Div(tick).RoundCeil(0)
	return steps.Mul(tick)
}
