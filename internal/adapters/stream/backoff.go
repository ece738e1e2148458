package stream

import (
	"math/rand"
	"time"
)

const (
	backoffBase = time.Second
	backoffCap  = 60 * time.Second
)

// backoff tracks the reconnect delay for one connection: exponential with
// a hard cap and full jitter, reset to the base after a clean run.
type backoff struct {
	attempt int
}

func (b *backoff) next() time.Duration {
	d := backoffBase << b.attempt
	if d > backoffCap || d <= 0 {
		d = backoffCap
	}
	b.attempt++
	// full jitter: sleep somewhere in [0, d)
	return time.Duration(rand.Int63n(int64(d)))
}

func (b *backoff) reset() {
	b.attempt = 0
}
