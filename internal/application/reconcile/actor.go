package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/application/quote"
	"github.com/aidenzou-az/polymarket-mm/internal/application/risk"
	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/ports"
	"github.com/yanun0323/decimal"
)

var decimalTwo = decimal.NewFromFloat(2)

const cycleTimeout = 10 * time.Second

// actor serializes every reconciliation cycle for a single condition_id.
// At most one cycle runs at a time; triggers that arrive mid-cycle
// coalesce into a single retry rather than queuing up.
type actor struct {
	conditionID string
	r           *Reconciler

	mu           sync.Mutex
	running      bool
	queued       bool
	queuedBypass bool
	lastAction   time.Time
}

func newActor(conditionID string, r *Reconciler) *actor {
	return &actor{conditionID: conditionID, r: r}
}

func (a *actor) enqueue(kind TriggerKind) {
	bypass := kind != TriggerBookChange

	a.mu.Lock()
	if a.running {
		a.queued = true
		a.queuedBypass = a.queuedBypass || bypass
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	a.r.wg.Add(1)
	go a.loop(bypass)
}

func (a *actor) loop(bypass bool) {
	defer a.r.wg.Done()
	for {
		a.runCycle(bypass)

		a.mu.Lock()
		if !a.queued {
			a.running = false
			a.mu.Unlock()
			return
		}
		bypass = a.queuedBypass
		a.queued = false
		a.queuedBypass = false
		a.mu.Unlock()
	}
}

func (a *actor) runCycle(bypass bool) {
	ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
	defer cancel()

	log := a.r.log.With("condition_id", a.conditionID)
	now := time.Now()

	if rec, ok, err := a.r.riskoff.Get(ctx, a.conditionID); err != nil {
		log.Warn("risk-off lookup failed, skipping cycle", "error", err)
		return
	} else if ok {
		if rec.Active(now) {
			return
		}
		if err := a.r.riskoff.Clear(ctx, a.conditionID); err != nil {
			log.Warn("failed to clear expired risk-off record", "error", err)
		}
	}

	if !bypass && !a.lastAction.IsZero() && now.Sub(a.lastAction) < bookChangeCooldown {
		return
	}

	view, ok := a.r.universe.Get(a.conditionID)
	if !ok {
		err := fmt.Errorf("%w: condition %s not in registry snapshot", domain.ErrConfiguration, a.conditionID)
		log.Warn("skipping cycle", "kind", domain.Kind(err), "error", err)
		return
	}
	if !view.Market.Enabled {
		return
	}

	tokenA, tokenB := view.Market.TokenA, view.Market.TokenB
	bestBid, bestAsk, bidSize, askSize, hasBook := a.r.books.Best(tokenA)
	position := a.r.positions.GetPosition(tokenA)
	reversePos := a.r.positions.GetPosition(tokenB)
	orders := a.r.positions.GetOrders(tokenA)
	pendingNonEmpty := a.r.pending.NonEmpty(tokenA)
	volatility := a.r.vol.Volatility(a.conditionID)

	if hasBook {
		mid := bestBid.Add(bestAsk).Div(decimalTwo)
		spreadFloat, _ := bestAsk.Sub(bestBid).Float64()
		verdict := risk.Evaluate(risk.Input{
			ConditionID: a.conditionID,
			Position:    position,
			BestBid:     bestBid,
			Mid:         mid,
			Spread:      spreadFloat,
			Volatility:  volatility,
			Params:      view.Params,
			Now:         now,
		})
		if verdict.Tripped {
			a.liquidate(ctx, log, tokenA, orders, verdict)
			a.lastAction = now
			return
		}
	}

	if pendingNonEmpty {
		log.Debug("pending intents outstanding, using locally tracked size")
	}

	in := quote.Input{
		Market:          view.Market,
		Trade:           view.Trade,
		Params:          view.Params,
		BestBid:         bestBid,
		BestAsk:         bestAsk,
		BidSize:         bidSize,
		AskSize:         askSize,
		HasBid:          hasBook,
		HasAsk:          hasBook,
		Position:        position,
		ReversePosition: reversePos,
		Orders:          orders,
		Volatility:      volatility,
		RiskOff:         false,
	}
	dec := quote.Decide(in)
	if dec.Crossed {
		log.Warn("book crossed", "best_bid", bestBid.String(), "best_ask", bestAsk.String())
	}
	if !dec.AnyReplace() {
		return
	}

	acted := a.apply(ctx, log, tokenA, orders, dec)
	if acted {
		a.lastAction = now
	}
}

// apply executes the buy/sell cancel/replace decisions against the
// exchange, batching a single cancel-all when either side must be
// cancelled (the exchange has no per-side cancel) and re-placing every
// side that is still desired afterward.
func (a *actor) apply(ctx context.Context, log *slog.Logger, tokenID string, orders domain.OrderPair, dec domain.Decision) bool {
	needCancel := (orders.Buy != nil && dec.Buy.Replace) || (orders.Sell != nil && dec.Sell.Replace)
	acted := false

	buyNeedsPlace := dec.Buy.Desired.Present && dec.Buy.Replace
	sellNeedsPlace := dec.Sell.Desired.Present && dec.Sell.Replace

	if needCancel {
		if err := a.r.exchange.CancelAllForToken(ctx, tokenID); err != nil {
			log.Warn("cancel-all failed, aborting cycle", "error", err)
			return false
		}
		acted = true
		if orders.Buy != nil {
			a.r.positions.ApplyOrderGone(orders.Buy.OrderID)
		}
		if orders.Sell != nil {
			a.r.positions.ApplyOrderGone(orders.Sell.OrderID)
		}
		// the cancelled orders are gone, so a failed place below has no
		// prior order to restore.
		orders = domain.OrderPair{}
		// cancel-all wiped both sides; anything still desired must be
		// re-placed even if only the other side had actually drifted.
		buyNeedsPlace = dec.Buy.Desired.Present
		sellNeedsPlace = dec.Sell.Desired.Present
	}

	if buyNeedsPlace {
		a.place(ctx, log, tokenID, domain.SideBuy, dec.Buy.Desired, orders.Buy)
		acted = true
	}
	if sellNeedsPlace {
		a.place(ctx, log, tokenID, domain.SideSell, dec.Sell.Desired, orders.Sell)
		acted = true
	}
	return acted
}

func (a *actor) place(ctx context.Context, log *slog.Logger, tokenID string, side domain.Side, desired domain.DesiredOrder, prior *domain.OpenOrder) {
	orderID, err := a.r.exchange.CreateOrder(ctx, ports.CreateOrderRequest{
		TokenID:  tokenID,
		Side:     side,
		Price:    desired.Price,
		Size:     desired.Size,
		PostOnly: true,
	})
	if err != nil {
		log.Warn("order placement failed", "side", side, "kind", domain.Kind(err), "error", err)
		a.r.positions.RevertOptimistic(tokenID, side, prior)
		return
	}
	a.r.positions.ApplyOrderAck(tokenID, side, orderID, desired.Price, desired.Size)
}

// liquidate cancels both sides and places a single sell at best bid for
// the full position, then writes the risk-off record.
func (a *actor) liquidate(ctx context.Context, log *slog.Logger, tokenID string, orders domain.OrderPair, verdict risk.Verdict) {
	if orders.Buy != nil || orders.Sell != nil {
		if err := a.r.exchange.CancelAllForToken(ctx, tokenID); err != nil {
			log.Warn("cancel-all before liquidation failed", "error", err)
			return
		}
		if orders.Buy != nil {
			a.r.positions.ApplyOrderGone(orders.Buy.OrderID)
		}
		if orders.Sell != nil {
			a.r.positions.ApplyOrderGone(orders.Sell.OrderID)
		}
	}

	orderID, err := a.r.exchange.CreateOrder(ctx, ports.CreateOrderRequest{
		TokenID:  tokenID,
		Side:     domain.SideSell,
		Price:    verdict.Liquidate.Price,
		Size:     verdict.Liquidate.Size,
		PostOnly: true,
	})
	if err != nil {
		log.Warn("liquidation order failed", "kind", domain.Kind(err), "error", err)
		return
	}
	a.r.positions.ApplyOrderAck(tokenID, domain.SideSell, orderID, verdict.Liquidate.Price, verdict.Liquidate.Size)

	if err := a.r.riskoff.Put(ctx, verdict.Record); err != nil {
		log.Warn("failed to persist risk-off record", "error", err)
	}
	log.Warn("market tripped into risk-off", "reason", verdict.Record.Reason, "sleep_until", verdict.Record.SleepUntil)

	if a.r.sink != nil {
		pos := a.r.positions.GetPosition(tokenID)
		_ = a.r.sink.RecordPosition(ctx, domain.PositionSnapshot{
			ConditionID: a.conditionID,
			TokenID:     tokenID,
			Size:        pos.Size,
			AvgPrice:    pos.AvgPrice,
			TakenAt:     time.Now(),
		})
	}
}
