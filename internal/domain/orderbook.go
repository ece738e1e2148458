package domain

import "github.com/yanun0323/decimal"

// OrderBook is the in-memory price-level view of a single token. Bids and
// asks are unordered maps price->size, and Best scans every level to find
// the best price; a level with size zero must be removed rather than
// stored as zero.
type OrderBook struct {
	TokenID string
	Bids    map[string]decimal.Decimal // price string -> size
	Asks    map[string]decimal.Decimal
}

// NewOrderBook returns an empty book for the given token.
func NewOrderBook(tokenID string) *OrderBook {
	return &OrderBook{
		TokenID: tokenID,
		Bids:    make(map[string]decimal.Decimal),
		Asks:    make(map[string]decimal.Decimal),
	}
}

// ApplySnapshot replaces both sides of the book wholesale.
func (ob *OrderBook) ApplySnapshot(bids, asks map[string]decimal.Decimal) {
	ob.Bids = cloneLevels(bids)
	ob.Asks = cloneLevels(asks)
}

// ApplyDelta updates a single price level on the given side. size zero
// deletes the level.
func (ob *OrderBook) ApplyDelta(side Side, price string, size decimal.Decimal) {
	levels := ob.Bids
	if side == SideSell {
		levels = ob.Asks
	}
	if size.IsZero() {
		delete(levels, price)
		return
	}
	levels[price] = size
}

// Best returns best bid, best ask, and the size resting at each. Zero
// values indicate an empty side.
func (ob *OrderBook) Best() (bestBid, bestAsk, bidSize, askSize decimal.Decimal) {
	bestBid, bidSize = maxLevel(ob.Bids)
	bestAsk, askSize = minLevel(ob.Asks)
	return
}

func cloneLevels(src map[string]decimal.Decimal) map[string]decimal.Decimal {
	dst := make(map[string]decimal.Decimal, len(src))
	for k, v := range src {
		if v.IsZero() {
			continue
		}
		dst[k] = v
	}
	return dst
}

func maxLevel(levels map[string]decimal.Decimal) (price, size decimal.Decimal) {
	first := true
	for k, v := range levels {
		p := decimal.RequireFromString(k)
		if first || p.GreaterThan(price) {
			price, size, first = p, v, false
		}
	}
	return
}

func minLevel(levels map[string]decimal.Decimal) (price, size decimal.Decimal) {
	first := true
	for k, v := range levels {
		p := decimal.RequireFromString(k)
		if first || p.LessThan(price) {
			price, size, first = p, v, false
		}
	}
	return
}

// Side identifies a book side or order direction.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
