// Package reconcile implements the Reconciler: a per-market actor that
// serializes every trigger touching a condition_id (book change, private
// stream event, periodic tick) into a single quote/cancel/replace cycle
// against the exchange, with a risk-off interlock and revert-on-failure
// bookkeeping.
package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/ports"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
)

// TriggerKind identifies why a reconciliation cycle was requested. Only
// TriggerBookChange is subject to the rate limit; the others always run.
type TriggerKind int

const (
	TriggerBookChange TriggerKind = iota
	TriggerPrivate
	TriggerPeriodic
)

const bookChangeCooldown = 30 * time.Second

// Reconciler owns one actor per condition_id and fans triggers out to
// them, spawning actors lazily on first trigger.
type Reconciler struct {
	log       *slog.Logger
	universe  *Universe
	books     *state.BookStore
	positions *state.PositionStore
	pending   *state.PendingSet
	riskoff   ports.RiskOffStore
	vol       ports.VolatilitySource
	exchange  ports.Exchange
	sink      ports.Sink

	mu     sync.Mutex
	actors map[string]*actor
	wg     sync.WaitGroup
}

// New builds a Reconciler wired to the shared trading state and the
// external ports it drives.
func New(log *slog.Logger, universe *Universe, st *state.State, riskoff ports.RiskOffStore, vol ports.VolatilitySource, exchange ports.Exchange, sink ports.Sink) *Reconciler {
	return &Reconciler{
		log:       log,
		universe:  universe,
		books:     st.Books,
		positions: st.Positions,
		pending:   st.Pending,
		riskoff:   riskoff,
		vol:       vol,
		exchange:  exchange,
		sink:      sink,
		actors:    make(map[string]*actor),
	}
}

// Trigger requests a reconciliation cycle for a market. It never blocks:
// a cycle already running or queued for this market coalesces the new
// trigger into its single pending retry flag.
func (r *Reconciler) Trigger(conditionID string, kind TriggerKind) {
	r.actorFor(conditionID).enqueue(kind)
}

func (r *Reconciler) actorFor(conditionID string) *actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.actors[conditionID]
	if !ok {
		a = newActor(conditionID, r)
		r.actors[conditionID] = a
	}
	return a
}

// Run blocks until ctx is cancelled, then waits for every in-flight
// reconciliation cycle to finish before returning.
func (r *Reconciler) Run(ctx context.Context) {
	<-ctx.Done()
	r.wg.Wait()
}
