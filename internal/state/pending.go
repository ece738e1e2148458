package state

import (
	"sync"
	"time"

	"github.com/aidenzou-az/polymarket-mm/internal/domain"
)

// PendingSet is the Pending Intents Set: exchange trade ids observed on
// the private stream but not yet reconciled into authoritative position
// size, keyed by "{token}_{side}" as the original implementation keyed
// its `performing` dict. Reads and writes are atomic on single entries.
type PendingSet struct {
	mu      sync.Mutex
	byKey   map[string]map[string]domain.PendingIntent // key -> tradeID -> intent
}

// NewPendingSet returns an empty pending intents set.
func NewPendingSet() *PendingSet {
	return &PendingSet{byKey: make(map[string]map[string]domain.PendingIntent)}
}

func key(token string, side domain.Side) string {
	return token + "_" + string(side)
}

// Add records a trade id as pending for a token/side with the given
// expiry, and reports the key it was filed under.
func (p *PendingSet) Add(token string, side domain.Side, tradeID string, expiresAt time.Time) string {
	k := key(token, side)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.byKey[k] == nil {
		p.byKey[k] = make(map[string]domain.PendingIntent)
	}
	p.byKey[k][tradeID] = domain.PendingIntent{Key: k, TradeID: tradeID, Token: token, Side: side, ExpiresAt: expiresAt}
	return k
}

// Remove drops a trade id from the pending set, no-op if absent.
func (p *PendingSet) Remove(token string, side domain.Side, tradeID string) {
	k := key(token, side)
	p.mu.Lock()
	defer p.mu.Unlock()
	m := p.byKey[k]
	if m == nil {
		return
	}
	delete(m, tradeID)
	if len(m) == 0 {
		delete(p.byKey, k)
	}
}

// NonEmpty reports whether any trade id is pending for a token, across
// both sides.
func (p *PendingSet) NonEmpty(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
		if len(p.byKey[key(token, side)]) > 0 {
			return true
		}
	}
	return false
}

// SweepExpired evicts every entry whose expiry has passed, returning the
// tokens affected so callers can log or re-trigger reconciliation.
func (p *PendingSet) SweepExpired(now time.Time) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	touched := make(map[string]struct{})
	for k, m := range p.byKey {
		for tradeID, intent := range m {
			if intent.Expired(now) {
				delete(m, tradeID)
				touched[intent.Token] = struct{}{}
			}
		}
		if len(m) == 0 {
			delete(p.byKey, k)
		}
	}

	tokens := make([]string, 0, len(touched))
	for t := range touched {
		tokens = append(tokens, t)
	}
	return tokens
}
