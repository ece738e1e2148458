package streamhandler_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/application/reconcile"
	"github.com/aidenzou-az/polymarket-mm/internal/application/streamhandler"
	"github.com/aidenzou-az/polymarket-mm/internal/domain"
	"github.com/aidenzou-az/polymarket-mm/internal/ports"
	"github.com/aidenzou-az/polymarket-mm/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/yanun0323/decimal"
)

type fakeExchange struct{}

func (fakeExchange) CreateOrder(ctx context.Context, req ports.CreateOrderRequest) (string, error) {
	return "", nil
}
func (fakeExchange) CancelAllForToken(ctx context.Context, tokenID string) error { return nil }
func (fakeExchange) ListOpenOrders(ctx context.Context) ([]ports.ExchangeOrder, error) {
	return nil, nil
}
func (fakeExchange) ListPositions(ctx context.Context) ([]ports.ExchangePosition, error) {
	return nil, nil
}
func (fakeExchange) StablecoinBalance(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (fakeExchange) MergeComplementary(ctx context.Context, conditionID string, amount int64, negRisk bool) error {
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

type fakeSink struct{ trades int }

func (f *fakeSink) RecordTrade(ctx context.Context, t domain.Trade) error               { f.trades++; return nil }
func (f *fakeSink) RecordReward(ctx context.Context, s domain.RewardSnapshot) error     { return nil }
func (f *fakeSink) RecordPosition(ctx context.Context, s domain.PositionSnapshot) error { return nil }

func setup() (*state.State, *reconcile.Universe, *streamhandler.Handler, *fakeSink) {
	st := state.New()
	universe := reconcile.NewUniverse()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &fakeSink{}
	reconciler := reconcile.New(log, universe, st, fakeRiskOff{}, fakeVol{}, fakeExchange{}, sink)
	universe.Replace(
		[]domain.Market{{ConditionID: "cond-1", TokenA: "yes", TokenB: "no", Enabled: true}},
		map[string]domain.TradeConfig{},
		map[string]domain.StrategyParameters{"default": {}},
		"default",
	)
	h := streamhandler.New(log, st, universe, reconciler, sink, nil, nil)
	return st, universe, h, sink
}

func TestHandler_BookSnapshotUpdatesStore(t *testing.T) {
	st, _, h, _ := setup()

	events := make(chan ports.BookEvent, 1)
	events <- ports.BookEvent{
		Type:    ports.BookSnapshot,
		AssetID: "yes",
		Bids:    map[string]string{"0.40": "100"},
		Asks:    map[string]string{"0.42": "100"},
	}
	close(events)

	ctx := context.Background()
	h.RunBook(ctx, events)

	bid, ask, _, _, ok := st.Books.Best("yes")
	assert.True(t, ok)
	assert.True(t, bid.Equal(decimal.NewFromFloat(0.40)))
	assert.True(t, ask.Equal(decimal.NewFromFloat(0.42)))
}

type fakeVolUpdater struct {
	conditionID string
	mid         float64
	calls       int
}

func (f *fakeVolUpdater) Update(conditionID string, mid float64, _ time.Time) {
	f.conditionID = conditionID
	f.mid = mid
	f.calls++
}

func TestHandler_BookSnapshotFeedsVolatilityUpdater(t *testing.T) {
	st := state.New()
	universe := reconcile.NewUniverse()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sink := &fakeSink{}
	reconciler := reconcile.New(log, universe, st, fakeRiskOff{}, fakeVol{}, fakeExchange{}, sink)
	universe.Replace(
		[]domain.Market{{ConditionID: "cond-1", TokenA: "yes", TokenB: "no", Enabled: true}},
		map[string]domain.TradeConfig{},
		map[string]domain.StrategyParameters{"default": {}},
		"default",
	)
	vol := &fakeVolUpdater{}
	h := streamhandler.New(log, st, universe, reconciler, sink, vol, nil)

	events := make(chan ports.BookEvent, 1)
	events <- ports.BookEvent{
		Type:    ports.BookSnapshot,
		AssetID: "yes",
		Bids:    map[string]string{"0.40": "100"},
		Asks:    map[string]string{"0.42": "100"},
	}
	close(events)

	h.RunBook(context.Background(), events)

	assert.Equal(t, 1, vol.calls)
	assert.Equal(t, "cond-1", vol.conditionID)
	assert.InDelta(t, 0.41, vol.mid, 0.0001)
}

func TestHandler_MakerTradeAppliesFillAndPending(t *testing.T) {
	st, _, h, sink := setup()

	events := make(chan ports.UserEvent, 1)
	events <- ports.UserEvent{
		Type:        ports.UserTrade,
		AssetID:     "yes",
		TradeID:     "trade-1",
		OrderID:     "order-1",
		Side:        "BUY",
		Price:       "0.40",
		SizeMatched: "20",
		IsMaker:     true,
	}
	close(events)

	h.RunUser(context.Background(), events, nil)

	pos := st.Positions.GetPosition("yes")
	assert.True(t, pos.Size.Equal(decimal.NewFromFloat(20)))
	assert.True(t, st.Pending.NonEmpty("yes"))
	assert.Equal(t, 1, sink.trades)
}

func TestHandler_ComplementaryMakerFillCreditsReverseToken(t *testing.T) {
	st, _, h, _ := setup()

	events := make(chan ports.UserEvent, 1)
	events <- ports.UserEvent{
		Type:          ports.UserTrade,
		AssetID:       "yes",
		TradeID:       "trade-2",
		OrderID:       "order-2",
		Side:          "BUY",
		Price:         "0.60",
		SizeMatched:   "8",
		IsMaker:       true,
		Complementary: true,
	}
	close(events)

	h.RunUser(context.Background(), events, nil)

	reverse := st.Positions.GetPosition("no")
	assert.True(t, reverse.Size.Equal(decimal.NewFromFloat(8)))
	yes := st.Positions.GetPosition("yes")
	assert.True(t, yes.Size.IsZero())
}
