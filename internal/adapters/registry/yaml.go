// Package registry implements ports.Registry by reading a single YAML
// file holding the market universe, per-market trade sizing, and
// strategy-profile parameter bundles. The core never writes to this
// file; reloads happen wholesale on the Periodic Control Loop's 60s
// cadence, keeping the file the single source of truth for an operator
// who wants to add a market or flip a switch without a restart.
package registry

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
)

// YAMLRegistry is a ports.Registry backed by a single YAML file on disk.
type YAMLRegistry struct {
	path string

	mu   sync.Mutex
	last file // last successfully parsed content, served if a reload fails
}

// file is the registry document: one markets list whose entries carry
// both the market parameters and the per-market trade config, plus the
// strategy profile bundles and the global default profile name.
type file struct {
	DefaultProfile string                         `yaml:"default_profile"`
	Markets        []yamlMarket                   `yaml:"markets"`
	Profiles       map[string]yamlStrategyProfile `yaml:"profiles"`
}

type yamlMarket struct {
	ConditionID     string  `yaml:"condition_id"`
	TokenA          string  `yaml:"token_a"`
	TokenB          string  `yaml:"token_b"`
	NegRisk         bool    `yaml:"neg_risk"`
	TickSize        float64 `yaml:"tick_size"`
	MinSize         float64 `yaml:"min_size"`
	MaxSpread       float64 `yaml:"max_spread"`
	StrategyProfile string  `yaml:"strategy_profile"`
	Enabled         bool    `yaml:"enabled"`

	TradeSize          float64 `yaml:"trade_size"`
	MaxSize            float64 `yaml:"max_size"`
	TradeEnabled       *bool   `yaml:"trade_enabled"`
	LowPriceMultiplier int     `yaml:"low_price_multiplier"`
}

type yamlStrategyProfile struct {
	StopLossThreshold   float64 `yaml:"stop_loss_threshold"`
	TakeProfitThreshold float64 `yaml:"take_profit_threshold"`
	VolatilityThreshold float64 `yaml:"volatility_threshold"`
	SpreadThreshold     float64 `yaml:"spread_threshold"`
	SleepPeriodHours    float64 `yaml:"sleep_period_hours"`
	HardCapShares       int     `yaml:"hard_cap_shares"`
}

// New returns a YAMLRegistry that reads path on every call; it holds no
// cached state until the first successful read.
func New(path string) *YAMLRegistry {
	return &YAMLRegistry{path: path}
}

func (r *YAMLRegistry) load() (file, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return file{}, fmt.Errorf("registry: read %q: %w", r.path, err)
	}
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return file{}, fmt.Errorf("registry: parse %q: %w", r.path, err)
	}

	r.mu.Lock()
	r.last = f
	r.mu.Unlock()
	return f, nil
}

// loadOrLast reads the file; on failure it serves the last good content
// rather than propagating a transient parse/IO error into the trading
// core (a bad edit to the registry file should not stop quoting).
func (r *YAMLRegistry) loadOrLast() file {
	f, err := r.load()
	if err == nil {
		return f
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

func (r *YAMLRegistry) Markets(ctx context.Context) ([]domain.Market, error) {
	f := r.loadOrLast()
	out := make([]domain.Market, 0, len(f.Markets))
	for _, m := range f.Markets {
		out = append(out, domain.Market{
			ConditionID:     m.ConditionID,
			TokenA:          m.TokenA,
			TokenB:          m.TokenB,
			NegRisk:         m.NegRisk,
			TickSize:        m.TickSize,
			MinSize:         m.MinSize,
			MaxSpread:       m.MaxSpread,
			StrategyProfile: m.StrategyProfile,
			Enabled:         m.Enabled,
		})
	}
	return out, nil
}

func (r *YAMLRegistry) TradeConfigs(ctx context.Context) (map[string]domain.TradeConfig, error) {
	f := r.loadOrLast()
	out := make(map[string]domain.TradeConfig, len(f.Markets))
	for _, m := range f.Markets {
		enabled := m.Enabled
		if m.TradeEnabled != nil {
			enabled = *m.TradeEnabled
		}
		out[m.ConditionID] = domain.TradeConfig{
			ConditionID:        m.ConditionID,
			TradeSize:          m.TradeSize,
			MaxSize:            m.MaxSize,
			Enabled:            enabled,
			LowPriceMultiplier: m.LowPriceMultiplier,
		}
	}
	return out, nil
}

func (r *YAMLRegistry) StrategyParameters(ctx context.Context) (map[string]domain.StrategyParameters, string, error) {
	f := r.loadOrLast()
	out := make(map[string]domain.StrategyParameters, len(f.Profiles))
	for name, p := range f.Profiles {
		if p.HardCapShares == 0 {
			p.HardCapShares = 250
		}
		out[name] = domain.StrategyParameters{
			Profile:              name,
			StopLossThreshold:    p.StopLossThreshold,
			TakeProfitThreshold:  p.TakeProfitThreshold,
			VolatilityThreshold:  p.VolatilityThreshold,
			SpreadThreshold:      p.SpreadThreshold,
			SleepPeriodHours:     p.SleepPeriodHours,
			HardCapShares:        p.HardCapShares,
		}
	}
	return out, f.DefaultProfile, nil
}
