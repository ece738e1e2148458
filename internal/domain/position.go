package domain

import (
	"time"

	"github.com/yanun0323/decimal"
)

// Position is the accumulated inventory in a single token. AvgPrice is
// meaningful only while Size is positive.
type Position struct {
	TokenID  string
	Size     decimal.Decimal // shares
	AvgPrice decimal.Decimal
}

// ApplyBuyFill folds a buy fill into the position using a size-weighted
// average price.
func (p *Position) ApplyBuyFill(fillSize, fillPrice decimal.Decimal) {
	if p.Size.IsZero() {
		p.Size = fillSize
		p.AvgPrice = fillPrice
		return
	}
	oldNotional := p.Size.Mul(p.AvgPrice)
	newNotional := fillSize.Mul(fillPrice)
	newSize := p.Size.Add(fillSize)
	p.AvgPrice = oldNotional.Add(newNotional).Div(newSize)
	p.Size = newSize
}

// ApplySellFill reduces the position by a sell fill. AvgPrice is
// preserved while shares remain and becomes meaningless at zero.
func (p *Position) ApplySellFill(fillSize decimal.Decimal) {
	p.Size = p.Size.Sub(fillSize)
	if p.Size.IsNegative() {
		p.Size = decimal.Zero
	}
	if p.Size.IsZero() {
		p.AvgPrice = decimal.Zero
	}
}

// OpenOrder is the single tracked resting order for a (token, side).
// If the exchange reports multiple orders on the same side, reconciliation
// collapses them into this aggregate (total size, volume-weighted price).
type OpenOrder struct {
	OrderID  string
	Price    decimal.Decimal
	Size     decimal.Decimal
	PlacedAt time.Time
}

// OrderPair is the pair of tracked resting orders for a token.
type OrderPair struct {
	Buy  *OpenOrder
	Sell *OpenOrder
}
