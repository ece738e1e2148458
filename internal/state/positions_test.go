package state_test

import (
	"testing"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
	"github.com/stretchr/testify/assert"
)

func TestPositionStore_ApplyBuyFillWeightsAvgPrice(t *testing.T) {
	s := state.NewPositionStore()
	s.ApplyFill("tok1", domain.SideBuy, d(20), d(0.50))
	s.ApplyFill("tok1", domain.SideBuy, d(20), d(0.60))

	pos := s.GetPosition("tok1")
	assert.True(t, pos.Size.Equal(d(40)))
	assert.True(t, pos.AvgPrice.Equal(d(0.55)))
}

func TestPositionStore_ApplySellFillNeverNegative(t *testing.T) {
	s := state.NewPositionStore()
	s.ApplyFill("tok1", domain.SideBuy, d(10), d(0.50))
	s.ApplyFill("tok1", domain.SideSell, d(50), d(0.60))

	pos := s.GetPosition("tok1")
	assert.True(t, pos.Size.IsZero())
}

func TestPositionStore_MergeAuthoritative_PendingKeepsLocalSize(t *testing.T) {
	s := state.NewPositionStore()
	s.ApplyFill("tok1", domain.SideBuy, d(40), d(0.50))

	s.MergeAuthoritative("tok1", domain.Position{Size: d(20), AvgPrice: d(0.48)}, domain.OrderPair{}, true)

	pos := s.GetPosition("tok1")
	assert.True(t, pos.Size.Equal(d(40)), "size must be retained from local state while pending intents remain")
	assert.True(t, pos.AvgPrice.Equal(d(0.48)), "avg_price is taken from the pull even while pending")
}

func TestPositionStore_MergeAuthoritative_NoPendingReplacesBoth(t *testing.T) {
	s := state.NewPositionStore()
	s.ApplyFill("tok1", domain.SideBuy, d(40), d(0.50))

	s.MergeAuthoritative("tok1", domain.Position{Size: d(20), AvgPrice: d(0.48)}, domain.OrderPair{}, false)

	pos := s.GetPosition("tok1")
	assert.True(t, pos.Size.Equal(d(20)))
	assert.True(t, pos.AvgPrice.Equal(d(0.48)))
}

func TestPositionStore_MergeAuthoritative_ReportsChangeOnSilentFill(t *testing.T) {
	s := state.NewPositionStore()

	changed := s.MergeAuthoritative("tok1", domain.Position{Size: d(20), AvgPrice: d(0.48)}, domain.OrderPair{}, false)
	assert.True(t, changed, "first merge always moves size/avg_price away from the zero value")

	changed = s.MergeAuthoritative("tok1", domain.Position{Size: d(20), AvgPrice: d(0.48)}, domain.OrderPair{}, false)
	assert.False(t, changed, "an identical pull result must not report a change")
}

func TestPositionStore_MergeAuthoritative_ReportsChangeOnOrderDrift(t *testing.T) {
	s := state.NewPositionStore()
	s.MergeAuthoritative("tok1", domain.Position{}, domain.OrderPair{}, false)

	changed := s.MergeAuthoritative("tok1", domain.Position{}, domain.OrderPair{
		Buy: &domain.OpenOrder{OrderID: "order-1", Price: d(0.5), Size: d(10)},
	}, false)
	assert.True(t, changed, "a resting order appearing where there was none is a material change")

	changed = s.MergeAuthoritative("tok1", domain.Position{}, domain.OrderPair{
		Buy: &domain.OpenOrder{OrderID: "order-1", Price: d(0.5), Size: d(10)},
	}, false)
	assert.False(t, changed, "the same order repeated across pulls must not report a change")
}

func TestPositionStore_ApplyOrderGoneClearsTrackedSide(t *testing.T) {
	s := state.NewPositionStore()
	s.ApplyOrderAck("tok1", domain.SideBuy, "order-1", d(0.50), d(40))
	s.ApplyOrderGone("order-1")

	orders := s.GetOrders("tok1")
	assert.Nil(t, orders.Buy)
}

func TestPositionStore_RevertOptimisticRestoresPrior(t *testing.T) {
	s := state.NewPositionStore()
	s.ApplyOrderAck("tok1", domain.SideBuy, "order-1", d(0.50), d(40))
	prior := s.GetOrders("tok1").Buy

	s.ApplyOrderAck("tok1", domain.SideBuy, "order-2", d(0.51), d(40))
	s.RevertOptimistic("tok1", domain.SideBuy, prior)

	orders := s.GetOrders("tok1")
	assert.Equal(t, "order-1", orders.Buy.OrderID)
}
