// Package control implements the Periodic Control Loop: the three fixed
// cadences that keep local state honest against the exchange and the
// Market Registry without waiting for a stream event.
package control

import (
	"context"
	"log/slog"
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/application/reconcile"
	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/ports"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
)

const (
	pullInterval     = 10 * time.Second
	registryInterval = 60 * time.Second
	snapshotInterval = 300 * time.Second
)

// Loop owns the three tickers. It never touches the book store: books are
// only ever mutated by the public stream handler.
type Loop struct {
	log            *slog.Logger
	state          *state.State
	universe       *reconcile.Universe
	reconciler     *reconcile.Reconciler
	exchange       ports.Exchange
	registry       ports.Registry
	sink           ports.Sink
	subscriber     Subscriber
	defaultProfile string
}

// Subscriber is implemented by the public book stream: on every registry
// reload the loop pushes the full enabled token set down to it, whether
// or not the set changed; no diff against the previous set is made.
type Subscriber interface {
	Subscribe(ctx context.Context, tokenIDs []string) error
}

// defaultProfile is the process-wide fallback strategy profile (from
// config.Strategy.DefaultProfile), used only when the registry's own
// default_profile is unset.
func New(log *slog.Logger, st *state.State, universe *reconcile.Universe, reconciler *reconcile.Reconciler, exchange ports.Exchange, registry ports.Registry, sink ports.Sink, subscriber Subscriber, defaultProfile string) *Loop {
	return &Loop{
		log:            log,
		state:          st,
		universe:       universe,
		reconciler:     reconciler,
		exchange:       exchange,
		registry:       registry,
		sink:           sink,
		subscriber:     subscriber,
		defaultProfile: defaultProfile,
	}
}

// Run reloads the registry once up front, then ticks the three cadences
// until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	l.reloadRegistry(ctx)

	pullTicker := time.NewTicker(pullInterval)
	registryTicker := time.NewTicker(registryInterval)
	snapshotTicker := time.NewTicker(snapshotInterval)
	defer pullTicker.Stop()
	defer registryTicker.Stop()
	defer snapshotTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pullTicker.C:
			l.pullAndMerge(ctx)
		case <-registryTicker.C:
			l.reloadRegistry(ctx)
		case <-snapshotTicker.C:
			l.snapshot(ctx)
		}
	}
}

// PullNow runs an out-of-band authoritative pull immediately, outside the
// regular ticker cadence. The private user stream's Reconnected signal
// wires into this: fills that landed during an outage produce no event,
// so the only way to learn about them is a full REST pull.
func (l *Loop) PullNow(ctx context.Context) {
	l.pullAndMerge(ctx)
}

// pullAndMerge fetches authoritative orders/positions, merges them
// pending-aware, sweeps stale pending intents, and re-triggers
// reconciliation for every token a sweep freed up.
func (l *Loop) pullAndMerge(ctx context.Context) {
	orders, err := l.exchange.ListOpenOrders(ctx)
	if err != nil {
		l.log.Warn("periodic pull: list open orders failed", "error", err)
		return
	}
	positions, err := l.exchange.ListPositions(ctx)
	if err != nil {
		l.log.Warn("periodic pull: list positions failed", "error", err)
		return
	}

	byToken := groupOrders(orders)
	for _, p := range positions {
		pair := byToken[p.TokenID]
		pending := l.state.Pending.NonEmpty(p.TokenID)
		changed := l.state.Positions.MergeAuthoritative(p.TokenID, domain.Position{TokenID: p.TokenID, Size: p.Size, AvgPrice: p.AvgPrice}, pair, pending)
		if changed {
			if conditionID, ok := l.universe.ConditionIDForToken(p.TokenID); ok {
				l.reconciler.Trigger(conditionID, reconcile.TriggerPeriodic)
			}
		}
	}

	touched := l.state.Pending.SweepExpired(time.Now())
	for _, tokenID := range touched {
		if conditionID, ok := l.universe.ConditionIDForToken(tokenID); ok {
			l.reconciler.Trigger(conditionID, reconcile.TriggerPeriodic)
		}
	}
}

// reloadRegistry reloads markets, trade configs and strategy parameters,
// swaps the Universe snapshot, and resubscribes the public stream to the
// full enabled token set. The set is not compared with the stream's
// current subscription, so the same set is resent on every reload.
func (l *Loop) reloadRegistry(ctx context.Context) {
	markets, err := l.registry.Markets(ctx)
	if err != nil {
		l.log.Warn("registry reload: markets failed", "error", err)
		return
	}
	trade, err := l.registry.TradeConfigs(ctx)
	if err != nil {
		l.log.Warn("registry reload: trade configs failed", "error", err)
		return
	}
	params, defaultProfile, err := l.registry.StrategyParameters(ctx)
	if err != nil {
		l.log.Warn("registry reload: strategy parameters failed", "error", err)
		return
	}
	if defaultProfile == "" {
		defaultProfile = l.defaultProfile
	}

	l.universe.Replace(markets, trade, params, defaultProfile)

	tokenIDs := make([]string, 0, len(markets)*2)
	for _, m := range markets {
		if !m.Enabled {
			continue
		}
		tokenIDs = append(tokenIDs, m.TokenA, m.TokenB)
	}
	if l.subscriber != nil {
		if err := l.subscriber.Subscribe(ctx, tokenIDs); err != nil {
			l.log.Warn("registry reload: resubscribe failed", "error", err)
		}
	}

	for _, m := range markets {
		l.reconciler.Trigger(m.ConditionID, reconcile.TriggerPeriodic)
	}
}

// snapshot writes the current reward/quote state to the sink.
func (l *Loop) snapshot(ctx context.Context) {
	now := time.Now()
	for _, conditionID := range l.universe.ConditionIDs() {
		view, ok := l.universe.Get(conditionID)
		if !ok {
			continue
		}
		pos := l.state.Positions.GetPosition(view.Market.TokenA)
		if l.sink != nil {
			_ = l.sink.RecordPosition(ctx, domain.PositionSnapshot{
				ConditionID: conditionID,
				TokenID:     view.Market.TokenA,
				Size:        pos.Size,
				AvgPrice:    pos.AvgPrice,
				TakenAt:     now,
			})
		}

		orders := l.state.Positions.GetOrders(view.Market.TokenA)
		l.recordOrder(ctx, conditionID, view.Market.TokenA, domain.SideBuy, orders.Buy, now)
		l.recordOrder(ctx, conditionID, view.Market.TokenA, domain.SideSell, orders.Sell, now)
	}
}

func (l *Loop) recordOrder(ctx context.Context, conditionID, tokenID string, side domain.Side, order *domain.OpenOrder, now time.Time) {
	if order == nil || l.sink == nil {
		return
	}
	_ = l.sink.RecordReward(ctx, domain.RewardSnapshot{
		ConditionID: conditionID,
		TokenID:     tokenID,
		Side:        side,
		Price:       order.Price,
		Size:        order.Size,
		TakenAt:     now,
	})
}

func groupOrders(orders []ports.ExchangeOrder) map[string]domain.OrderPair {
	out := make(map[string]domain.OrderPair, len(orders))
	for _, o := range orders {
		pair := out[o.TokenID]
		slot := &pair.Sell
		if o.Side == domain.SideBuy {
			slot = &pair.Buy
		}
		// several orders on one side collapse to their total size at the
		// size-weighted average price, keeping the first order's id.
		if prev := *slot; prev == nil {
			*slot = &domain.OpenOrder{OrderID: o.OrderID, Price: o.Price, Size: o.Size}
		} else if total := prev.Size.Add(o.Size); total.IsPositive() {
			vwap := prev.Price.Mul(prev.Size).Add(o.Price.Mul(o.Size)).Div(total)
			*slot = &domain.OpenOrder{OrderID: prev.OrderID, Price: vwap, Size: total}
		}
		out[o.TokenID] = pair
	}
	return out
}
