package registry_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aidenzou-az/polymarket-mm/internal/adapters/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
default_profile: default
markets:
  - condition_id: cond-1
    token_a: yes-token
    token_b: no-token
    tick_size: 0.01
    min_size: 1
    max_spread: 0.05
    enabled: true
    trade_size: 50
    max_size: 500
    low_price_multiplier: 3
profiles:
  default:
    stop_loss_threshold: -8
    take_profit_threshold: 10
    volatility_threshold: 5
    spread_threshold: 0.05
    sleep_period_hours: 4
    hard_cap_shares: 250
`

func writeRegistry(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestYAMLRegistry_LoadsMarketsTradeConfigAndProfiles(t *testing.T) {
	r := registry.New(writeRegistry(t, sample))
	ctx := context.Background()

	markets, err := r.Markets(ctx)
	require.NoError(t, err)
	require.Len(t, markets, 1)
	assert.Equal(t, "cond-1", markets[0].ConditionID)
	assert.True(t, markets[0].Enabled)

	trade, err := r.TradeConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 50.0, trade["cond-1"].TradeSize)
	assert.Equal(t, 3, trade["cond-1"].LowPriceMultiplier)

	params, defaultProfile, err := r.StrategyParameters(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", defaultProfile)
	assert.Equal(t, -8.0, params["default"].StopLossThreshold)
}

func TestYAMLRegistry_MissingFileServesEmptySnapshot(t *testing.T) {
	r := registry.New(filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := r.Markets(context.Background())
	assert.NoError(t, err, "loadOrLast serves an empty snapshot rather than failing when nothing has loaded yet")
}
