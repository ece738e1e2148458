package domain

import "errors"

// Sentinel error kinds, classified per the error handling policy: each
// carries its own retry/discard/fail behavior at the call site.
var (
	// ErrTransport covers websocket disconnects, REST timeouts, and
	// similar recoverable network failures. Retried with backoff.
	ErrTransport = errors.New("transport error")

	// ErrExchangeSemantic covers rejected order placement or an unknown
	// cancel target. Logged and not retried within the same cycle; no
	// pull is forced, so local state is corrected by the next periodic
	// pull.
	ErrExchangeSemantic = errors.New("exchange semantic error")

	// ErrState covers an ack for an order the store never placed, or a
	// fill for an untracked token. Discarded with a warning; the next
	// periodic pull is the source of truth.
	ErrState = errors.New("state error")

	// ErrInvariant covers a negative size or an undecodable wire value in
	// a book delta or trade/order event. The offending event is dropped;
	// the process is never aborted for a single bad event.
	ErrInvariant = errors.New("invariant violation")

	// ErrConfiguration covers missing market parameters, such as a
	// condition_id the Reconciler sees triggered but the current registry
	// snapshot does not carry. The affected market is skipped for that
	// cycle; the core does not crash.
	ErrConfiguration = errors.New("configuration error")
)

// Kind classifies err by which sentinel above it wraps, for structured
// logging at the call site. Returns "" if err matches none of them.
func Kind(err error) string {
	switch {
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrExchangeSemantic):
		return "exchange_semantic"
	case errors.Is(err, ErrState):
		return "state"
	case errors.Is(err, ErrInvariant):
		return "invariant"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return ""
	}
}
