package domain

import "time"

// PendingIntent is a locally-observed trade the core has seen on the
// private stream but not yet reconciled into authoritative position size.
// It suppresses size-accounting on the next full pull while the pull
// still contributes average-price drift.
type PendingIntent struct {
	Key       string // "{token}_{side}"
	TradeID   string
	Token     string
	Side      Side
	ExpiresAt time.Time
}

// Expired reports whether the intent has outlived its wall-clock expiry.
func (p PendingIntent) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
