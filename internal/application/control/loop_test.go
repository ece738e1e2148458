package control_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/application/control"
	"github.com/aidenzou-az/polymarket-mm/internal/application/reconcile"
	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/ports"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/yanun0323/decimal"
)

func d(f float64) decimal.Decimal { return decimal.NewFromFloat(f) }

type fakeRegistry struct {
	markets  []domain.Market
	trade    map[string]domain.TradeConfig
	params   map[string]domain.StrategyParameters
	defaultP string
}

func (f *fakeRegistry) Markets(ctx context.Context) ([]domain.Market, error) { return f.markets, nil }
func (f *fakeRegistry) TradeConfigs(ctx context.Context) (map[string]domain.TradeConfig, error) {
	return f.trade, nil
}
func (f *fakeRegistry) StrategyParameters(ctx context.Context) (map[string]domain.StrategyParameters, string, error) {
	return f.params, f.defaultP, nil
}

type fakeExchange struct {
	orders    []ports.ExchangeOrder
	positions []ports.ExchangePosition
}

func (f *fakeExchange) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (string, error) {
	return "", nil
}
func (f *fakeExchange) CancelAllForToken(ctx context.Context, tokenID string) error { return nil }
func (f *fakeExchange) ListOpenOrders(ctx context.Context) ([]ports.ExchangeOrder, error) {
	return f.orders, nil
}
func (f *fakeExchange) ListPositions(ctx context.Context) ([]ports.ExchangePosition, error) {
	return f.positions, nil
}
func (f *fakeExchange) StablecoinBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeExchange) MergeComplementary(ctx context.Context, conditionID string, amount int64, negRisk bool) error {
	return nil
}

type fakeRiskOff struct{}

func (fakeRiskOff) Get(ctx context.Context, conditionID string) (domain.RiskOffRecord, bool, error) {
	return domain.RiskOffRecord{}, false, nil
}
func (fakeRiskOff) Put(ctx context.Context, record domain.RiskOffRecord) error { return nil }
func (fakeRiskOff) Clear(ctx context.Context, conditionID string) error       { return nil }

type fakeVol struct{}

func (fakeVol) Volatility(conditionID string) float64 { return 0 }

type fakeSink struct{}

func (fakeSink) RecordTrade(ctx context.Context, t domain.Trade) error               { return nil }
func (fakeSink) RecordReward(ctx context.Context, s domain.RewardSnapshot) error     { return nil }
func (fakeSink) RecordPosition(ctx context.Context, s domain.PositionSnapshot) error { return nil }

type fakeSubscriber struct {
	lastTokens []string
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, tokenIDs []string) error {
	f.lastTokens = tokenIDs
	return nil
}

func TestLoop_ReloadRegistrySubscribesEnabledTokens(t *testing.T) {
	st := state.New()
	universe := reconcile.NewUniverse()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	exch := &fakeExchange{}
	reconciler := reconcile.New(log, universe, st, fakeRiskOff{}, fakeVol{}, exch, fakeSink{})
	sub := &fakeSubscriber{}

	reg := &fakeRegistry{
		markets: []domain.Market{
			{ConditionID: "cond-1", TokenA: "yes", TokenB: "no", Enabled: true},
			{ConditionID: "cond-2", TokenA: "yes2", TokenB: "no2", Enabled: false},
		},
		trade:    map[string]domain.TradeConfig{},
		params:   map[string]domain.StrategyParameters{"default": {}},
		defaultP: "default",
	}

	loop := control.New(log, st, universe, reconciler, exch, reg, fakeSink{}, sub, "default")
	loop.Run(runOnceCtx())

	assert.ElementsMatch(t, []string{"yes", "no"}, sub.lastTokens)
	_, ok := universe.Get("cond-1")
	assert.True(t, ok)
}

func TestLoop_PullNowMergesAuthoritativePosition(t *testing.T) {
	st := state.New()
	universe := reconcile.NewUniverse()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	exch := &fakeExchange{
		positions: []ports.ExchangePosition{{TokenID: "yes", Size: d(15), AvgPrice: d(0.4)}},
	}
	reconciler := reconcile.New(log, universe, st, fakeRiskOff{}, fakeVol{}, exch, fakeSink{})

	loop := control.New(log, st, universe, reconciler, exch, &fakeRegistry{}, fakeSink{}, nil, "default")
	loop.PullNow(context.Background())

	pos := st.Positions.GetPosition("yes")
	assert.True(t, pos.Size.Equal(d(15)))
}

func TestLoop_PullAndMergeTriggersReconciliationOnSilentFill(t *testing.T) {
	st := state.New()
	universe := reconcile.NewUniverse()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	exch := &fakeExchange{
		positions: []ports.ExchangePosition{{TokenID: "yes", Size: d(15), AvgPrice: d(0.4)}},
	}
	placed := make(chan struct{}, 1)
	fired := &firingExchange{fakeExchange: exch, placed: placed}
	reconciler := reconcile.New(log, universe, st, fakeRiskOff{}, fakeVol{}, fired, fakeSink{})
	universe.Replace(
		[]domain.Market{{ConditionID: "cond-1", TokenA: "yes", TokenB: "no", Enabled: true, TickSize: 0.01, MinSize: 1, MaxSpread: 1}},
		map[string]domain.TradeConfig{"cond-1": {ConditionID: "cond-1", Enabled: true}},
		map[string]domain.StrategyParameters{"default": {}},
		"default",
	)
	st.Books.ApplySnapshot("yes", map[string]decimal.Decimal{"0.40": d(100)}, map[string]decimal.Decimal{"0.42": d(100)})

	loop := control.New(log, st, universe, reconciler, fired, &fakeRegistry{}, fakeSink{}, nil, "default")
	loop.PullNow(context.Background())

	select {
	case <-placed:
	case <-time.After(time.Second):
		t.Fatal("expected reconciliation cycle to run after a silent fill was merged")
	}
}

// firingExchange wraps fakeExchange and signals once CreateOrder is called,
// giving the test a deterministic point to synchronize on instead of a
// fixed sleep against the reconciler's background actor goroutine.
type firingExchange struct {
	*fakeExchange
	placed chan struct{}
}

func (f *firingExchange) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (string, error) {
	select {
	case f.placed <- struct{}{}:
	default:
	}
	return "order-x", nil
}

// runOnceCtx returns a context cancelled almost immediately: Run performs
// its initial registry reload synchronously before entering the select
// loop, so a pre-cancelled context still exercises that reload once.
func runOnceCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
