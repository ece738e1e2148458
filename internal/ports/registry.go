package ports

import (
	"context"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
)

// Registry is the consumed market universe / trade configuration source.
// The core reads it but never writes to it.
type Registry interface {
	// Markets returns every configured market.
	Markets(ctx context.Context) ([]domain.Market, error)

	// TradeConfigs returns the per-market sizing configuration, keyed by
	// condition_id.
	TradeConfigs(ctx context.Context) (map[string]domain.TradeConfig, error)

	// StrategyParameters returns the strategy-profile bundles keyed by
	// profile name, plus the configured global default profile name.
	StrategyParameters(ctx context.Context) (map[string]domain.StrategyParameters, string, error)
}

// RiskOffStore is the owned, persisted per-market risk-off record store.
type RiskOffStore interface {
	Get(ctx context.Context, conditionID string) (domain.RiskOffRecord, bool, error)
	Put(ctx context.Context, record domain.RiskOffRecord) error
	Clear(ctx context.Context, conditionID string) error
}

// Sink is a pluggable, append-only, concurrency-safe output destination.
// No serialization format is mandated by the core.
type Sink interface {
	RecordTrade(ctx context.Context, t domain.Trade) error
	RecordReward(ctx context.Context, s domain.RewardSnapshot) error
	RecordPosition(ctx context.Context, s domain.PositionSnapshot) error
}
