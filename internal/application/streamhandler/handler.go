// Package streamhandler wires the public book stream and private user
// stream onto the shared trading state, and asks the Reconciler to run a
// cycle whenever either stream implies a market may need requoting.
package streamhandler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/application/reconcile"
	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/ports"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
	"github.com/yanun0323/decimal"
)

const pendingIntentTTL = 60 * time.Second

var decimalTwo = decimal.NewFromFloat(2)

// volUpdater is the subset of the volatility collector this package
// feeds from observed book state. ports.VolatilitySource itself is
// read-only; a concrete collector that also accepts updates satisfies
// this alongside it.
type volUpdater interface {
	Update(conditionID string, mid float64, now time.Time)
}

// Handler consumes decoded book/user events and applies them to State.
type Handler struct {
	log         *slog.Logger
	state       *state.State
	universe    *reconcile.Universe
	reconciler  *reconcile.Reconciler
	sink        ports.Sink
	vol         volUpdater
	forcePullFn func()
}

// New builds a Handler. forcePull is invoked once per user-stream
// reconnect to trigger an out-of-band REST pull of orders and positions.
// vol may be nil, in which case book updates never feed a volatility
// collector.
func New(log *slog.Logger, st *state.State, universe *reconcile.Universe, reconciler *reconcile.Reconciler, sink ports.Sink, vol volUpdater, forcePull func()) *Handler {
	return &Handler{log: log, state: st, universe: universe, reconciler: reconciler, sink: sink, vol: vol, forcePullFn: forcePull}
}

// RunBook drains a BookStream's events until ctx is done.
func (h *Handler) RunBook(ctx context.Context, events <-chan ports.BookEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			h.handleBookEvent(evt)
		}
	}
}

// RunUser drains a UserStream's events and reconnect notifications until
// ctx is done.
func (h *Handler) RunUser(ctx context.Context, events <-chan ports.UserEvent, reconnected <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-events:
			if !ok {
				return
			}
			h.handleUserEvent(evt)
		case <-reconnected:
			if h.forcePullFn != nil {
				h.forcePullFn()
			}
		}
	}
}

func (h *Handler) handleBookEvent(evt ports.BookEvent) {
	switch evt.Type {
	case ports.BookSnapshot:
		h.state.Books.ApplySnapshot(evt.AssetID, stringsToDecimals(evt.Bids), stringsToDecimals(evt.Asks))
	case ports.BookPriceChange:
		for _, c := range evt.Changes {
			side := domain.SideBuy
			if strings.EqualFold(c.Side, "SELL") {
				side = domain.SideSell
			}
			if _, err := decimal.NewFromString(c.Price); err != nil {
				wrapped := fmt.Errorf("%w: bad price %q in book delta", domain.ErrInvariant, c.Price)
				h.log.Warn("book stream: dropping delta", "kind", domain.Kind(wrapped), "price", c.Price, "error", wrapped)
				continue
			}
			size, err := decimal.NewFromString(c.Size)
			if err != nil || size.IsNegative() {
				wrapped := fmt.Errorf("%w: bad size %q in book delta", domain.ErrInvariant, c.Size)
				h.log.Warn("book stream: dropping delta", "kind", domain.Kind(wrapped), "price", c.Price, "error", wrapped)
				continue
			}
			h.state.Books.ApplyDelta(evt.AssetID, side, c.Price, size)
		}
	default:
		return
	}

	// book state always triggers, per the data flow: every accepted
	// change is a candidate for requoting.
	conditionID, ok := h.universe.ConditionIDForToken(evt.AssetID)
	if !ok {
		return
	}
	if h.vol != nil {
		if bestBid, bestAsk, _, _, hasBook := h.state.Books.Best(evt.AssetID); hasBook {
			mid, _ := bestBid.Add(bestAsk).Div(decimalTwo).Float64()
			h.vol.Update(conditionID, mid, time.Now())
		}
	}
	h.reconciler.Trigger(conditionID, reconcile.TriggerBookChange)
}

func (h *Handler) handleUserEvent(evt ports.UserEvent) {
	conditionID, ok := h.universe.ConditionIDForToken(evt.AssetID)
	if !ok {
		err := fmt.Errorf("%w: user event for unknown token %s", domain.ErrState, evt.AssetID)
		h.log.Warn("dropping user event", "kind", domain.Kind(err), "error", err)
		return
	}

	switch evt.Type {
	case ports.UserTrade:
		h.handleTrade(conditionID, evt)
	case ports.UserOrder:
		h.handleOrderUpdate(conditionID, evt)
	}

	h.reconciler.Trigger(conditionID, reconcile.TriggerPrivate)
}

func (h *Handler) handleTrade(conditionID string, evt ports.UserEvent) {
	tokenID := evt.AssetID
	if evt.Complementary {
		if reverse, ok := h.universe.ReverseToken(conditionID, evt.AssetID); ok {
			tokenID = reverse
		} else {
			err := fmt.Errorf("%w: complementary fill on %s but reverse token unknown", domain.ErrState, evt.AssetID)
			h.log.Warn("trade event", "kind", domain.Kind(err), "error", err)
		}
	}

	side := domain.SideBuy
	if strings.EqualFold(evt.Side, "SELL") {
		side = domain.SideSell
	}
	size, sizeErr := decimal.NewFromString(evt.SizeMatched)
	if sizeErr != nil || size.IsZero() {
		size, sizeErr = decimal.NewFromString(evt.Size)
	}
	price, priceErr := decimal.NewFromString(evt.Price)
	if sizeErr != nil || priceErr != nil {
		err := fmt.Errorf("%w: trade event undecodable price/size for %s", domain.ErrInvariant, evt.AssetID)
		h.log.Warn("dropping trade event", "kind", domain.Kind(err), "error", err)
		return
	}

	h.state.Positions.ApplyFill(tokenID, side, size, price)

	if evt.TradeID != "" {
		h.state.Pending.Add(tokenID, side, evt.TradeID, time.Now().Add(pendingIntentTTL))
	}

	if h.sink != nil {
		_ = h.sink.RecordTrade(context.Background(), domain.Trade{
			ID:          evt.TradeID,
			ConditionID: conditionID,
			TokenID:     tokenID,
			Side:        side,
			Price:       price,
			Size:        size,
			Maker:       evt.IsMaker,
			Timestamp:   time.Now(),
		})
	}
}

func (h *Handler) handleOrderUpdate(_ string, evt ports.UserEvent) {
	side := domain.SideBuy
	if strings.EqualFold(evt.Side, "SELL") {
		side = domain.SideSell
	}

	switch strings.ToUpper(evt.Status) {
	case "LIVE", "OPEN":
		price, priceErr := decimal.NewFromString(evt.Price)
		size, sizeErr := decimal.NewFromString(evt.Size)
		if priceErr != nil || sizeErr != nil {
			err := fmt.Errorf("%w: order event undecodable price/size for %s", domain.ErrInvariant, evt.OrderID)
			h.log.Warn("dropping order event", "kind", domain.Kind(err), "error", err)
			return
		}
		h.state.Positions.ApplyOrderAck(evt.AssetID, side, evt.OrderID, price, size)
	case "CANCELED", "MATCHED", "FILLED":
		h.state.Positions.ApplyOrderGone(evt.OrderID)
	}
}

func stringsToDecimals(in map[string]string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for price, size := range in {
		if _, err := decimal.NewFromString(price); err != nil {
			continue
		}
		d, err := decimal.NewFromString(size)
		if err != nil {
			continue
		}
		out[price] = d
	}
	return out
}
