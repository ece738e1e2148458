package state

import (
	"sync"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/yanun0323/decimal"
)

// tokenState bundles one token's position and open orders under a
// single mutex: spec.md's Position & Order Store operates on both
// together (fills touch position, acks touch orders, a pull replaces
// both), so a single critical section per token avoids interleaving.
type tokenState struct {
	mu       sync.Mutex
	position domain.Position
	orders   domain.OrderPair
}

// PositionStore is the Position & Order Store: per-token position and
// per-token open orders indexed by side.
type PositionStore struct {
	mu        sync.Mutex // protects tokens and orderIndex maps themselves
	tokens    map[string]*tokenState
	orderIndex map[string]string // orderID -> tokenID, for ApplyOrderGone
}

// NewPositionStore returns an empty position/order store.
func NewPositionStore() *PositionStore {
	return &PositionStore{
		tokens:     make(map[string]*tokenState),
		orderIndex: make(map[string]string),
	}
}

func (s *PositionStore) entry(tokenID string) *tokenState {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.tokens[tokenID]
	if !ok {
		ts = &tokenState{position: domain.Position{TokenID: tokenID}}
		s.tokens[tokenID] = ts
	}
	return ts
}

// GetPosition returns a copy of the current position for a token.
func (s *PositionStore) GetPosition(tokenID string) domain.Position {
	ts := s.entry(tokenID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.position
}

// GetOrders returns a copy of the current open orders for a token.
func (s *PositionStore) GetOrders(tokenID string) domain.OrderPair {
	ts := s.entry(tokenID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.orders
}

// MergeAuthoritative replaces local state from a periodic pull. When
// pendingNonEmpty is true only AvgPrice is taken from pos; Size is
// retained from local state, since REST size may lag fills already
// accounted for locally by ApplyFill (spec.md §4.2's pending-aware
// reconciliation). It reports whether the merge actually changed the
// position or either resting order, so a caller landing a fill that
// produced no stream event still knows to trigger a reconciliation cycle.
func (s *PositionStore) MergeAuthoritative(tokenID string, pos domain.Position, orders domain.OrderPair, pendingNonEmpty bool) bool {
	ts := s.entry(tokenID)
	ts.mu.Lock()
	defer ts.mu.Unlock()

	before := ts.position
	beforeOrders := ts.orders

	if pendingNonEmpty {
		ts.position.AvgPrice = pos.AvgPrice
	} else {
		ts.position.Size = pos.Size
		ts.position.AvgPrice = pos.AvgPrice
	}
	ts.orders = orders

	s.mu.Lock()
	if orders.Buy != nil {
		s.orderIndex[orders.Buy.OrderID] = tokenID
	}
	if orders.Sell != nil {
		s.orderIndex[orders.Sell.OrderID] = tokenID
	}
	s.mu.Unlock()

	return !before.Size.Equal(ts.position.Size) ||
		!before.AvgPrice.Equal(ts.position.AvgPrice) ||
		!orderEqual(beforeOrders.Buy, ts.orders.Buy) ||
		!orderEqual(beforeOrders.Sell, ts.orders.Sell)
}

// orderEqual compares two resting orders by identity and terms. Two nils
// are equal; a nil and a non-nil are not.
func orderEqual(a, b *domain.OpenOrder) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.OrderID == b.OrderID && a.Price.Equal(b.Price) && a.Size.Equal(b.Size)
}

// ApplyFill folds an eager fill into the position. Buy fills widen the
// size-weighted average price; sell fills reduce size and leave the
// average price defined only while shares remain.
func (s *PositionStore) ApplyFill(tokenID string, side domain.Side, size, price decimal.Decimal) {
	ts := s.entry(tokenID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if side == domain.SideBuy {
		ts.position.ApplyBuyFill(size, price)
	} else {
		ts.position.ApplySellFill(size)
	}
}

// ApplyOrderAck records a newly (optimistically or authoritatively)
// placed order for a token/side.
func (s *PositionStore) ApplyOrderAck(tokenID string, side domain.Side, orderID string, price, size decimal.Decimal) {
	ts := s.entry(tokenID)
	ts.mu.Lock()
	order := &domain.OpenOrder{OrderID: orderID, Price: price, Size: size}
	if side == domain.SideBuy {
		ts.orders.Buy = order
	} else {
		ts.orders.Sell = order
	}
	ts.mu.Unlock()

	s.mu.Lock()
	s.orderIndex[orderID] = tokenID
	s.mu.Unlock()
}

// ApplyOrderGone removes a tracked order by its exchange id, wherever it
// lives, on cancel/fill-to-completion.
func (s *PositionStore) ApplyOrderGone(orderID string) {
	s.mu.Lock()
	tokenID, ok := s.orderIndex[orderID]
	delete(s.orderIndex, orderID)
	s.mu.Unlock()
	if !ok {
		return
	}

	ts := s.entry(tokenID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if ts.orders.Buy != nil && ts.orders.Buy.OrderID == orderID {
		ts.orders.Buy = nil
	}
	if ts.orders.Sell != nil && ts.orders.Sell.OrderID == orderID {
		ts.orders.Sell = nil
	}
}

// RevertOptimistic undoes an optimistic ApplyOrderAck after a failed
// place call, restoring the prior order (possibly nil) on that side.
func (s *PositionStore) RevertOptimistic(tokenID string, side domain.Side, prior *domain.OpenOrder) {
	ts := s.entry(tokenID)
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if side == domain.SideBuy {
		ts.orders.Buy = prior
	} else {
		ts.orders.Sell = prior
	}
}
