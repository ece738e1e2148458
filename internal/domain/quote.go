package domain

import "github.com/yanun0323/decimal"

// DesiredOrder is a single side of the Quote Engine's output: either a
// concrete price/size to hold, or none.
type DesiredOrder struct {
	Present bool
	Price   decimal.Decimal
	Size    decimal.Decimal
}

// Quote is the Quote Engine's full output for one token: the desired
// resting orders on both sides.
type Quote struct {
	TokenID string
	Buy     DesiredOrder
	Sell    DesiredOrder
}

// SideDecision says whether a side's existing order should be replaced.
type SideDecision struct {
	Replace bool
	Desired DesiredOrder
}

// Decision is the Reconciler-facing verdict for a token: what to do with
// the buy and sell sides given the current book/position/orders.
type Decision struct {
	TokenID string
	Buy     SideDecision
	Sell    SideDecision

	// Crossed reports whether the observed book was crossed or locked
	// (best_bid >= best_ask) this cycle. Quoting still proceeds against
	// the literal best bid/ask; the Reconciler logs this once per
	// occurrence rather than suppressing the cycle.
	Crossed bool
}

// AnyReplace reports whether either side requires a cancel/replace.
func (d Decision) AnyReplace() bool {
	return d.Buy.Replace || d.Sell.Replace
}
