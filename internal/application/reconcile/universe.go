package reconcile

import (
	"sync"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
)

// marketView bundles the registry-derived configuration for one market
// that a reconciliation cycle needs.
type marketView struct {
	Market domain.Market
	Trade  domain.TradeConfig
	Params domain.StrategyParameters
}

// Universe is the reconciler's read view of the Market Registry: a
// snapshot swapped in wholesale by the Periodic Control Loop every time
// it reloads markets, trade configs and strategy parameters. Readers
// never block a writer and vice versa beyond a single map swap.
type Universe struct {
	mu             sync.RWMutex
	views          map[string]marketView
	byToken        map[string]string // token id -> condition_id
	defaultProfile string
}

// NewUniverse returns an empty Universe.
func NewUniverse() *Universe {
	return &Universe{views: make(map[string]marketView), byToken: make(map[string]string)}
}

// Replace atomically swaps in a freshly loaded registry snapshot.
func (u *Universe) Replace(markets []domain.Market, trade map[string]domain.TradeConfig, params map[string]domain.StrategyParameters, defaultProfile string) {
	views := make(map[string]marketView, len(markets))
	byToken := make(map[string]string, len(markets)*2)
	for _, m := range markets {
		profile := m.EffectiveStrategyProfile(defaultProfile)
		views[m.ConditionID] = marketView{
			Market: m,
			Trade:  trade[m.ConditionID],
			Params: params[profile],
		}
		byToken[m.TokenA] = m.ConditionID
		byToken[m.TokenB] = m.ConditionID
	}

	u.mu.Lock()
	u.views = views
	u.byToken = byToken
	u.defaultProfile = defaultProfile
	u.mu.Unlock()
}

// ConditionIDForToken resolves the market owning a token id.
func (u *Universe) ConditionIDForToken(tokenID string) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	id, ok := u.byToken[tokenID]
	return id, ok
}

// Get returns the current view for a market, if the registry knows it.
func (u *Universe) Get(conditionID string) (marketView, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.views[conditionID]
	return v, ok
}

// ReverseToken returns the complementary token for a market given one of
// its two known tokens (a NegRisk-style YES/NO pair).
func (u *Universe) ReverseToken(conditionID, tokenID string) (string, bool) {
	u.mu.RLock()
	defer u.mu.RUnlock()
	v, ok := u.views[conditionID]
	if !ok {
		return "", false
	}
	switch tokenID {
	case v.Market.TokenA:
		return v.Market.TokenB, true
	case v.Market.TokenB:
		return v.Market.TokenA, true
	default:
		return "", false
	}
}

// ConditionIDs returns every market the registry currently carries.
func (u *Universe) ConditionIDs() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	ids := make([]string, 0, len(u.views))
	for id := range u.views {
		ids = append(ids, id)
	}
	return ids
}
