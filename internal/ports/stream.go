package ports

import "context"

// BookEvent is a single message off the public book stream.
type BookEvent struct {
	Type    BookEventType
	AssetID string
	Bids    map[string]string // full snapshot, present when Type == BookSnapshot
	Asks    map[string]string
	Changes []PriceChange // present when Type == BookPriceChange
}

// BookEventType discriminates public stream messages.
type BookEventType string

const (
	BookSnapshot    BookEventType = "book"
	BookPriceChange BookEventType = "price_change"
)

// PriceChange is a single price-level delta.
type PriceChange struct {
	Side  string // "BUY" or "SELL"
	Price string
	Size  string
}

// BookStream is the consumed public book websocket. Implementations
// reconnect with exponential backoff internally; Events closes when the
// stream is permanently stopped via ctx cancellation.
type BookStream interface {
	// Subscribe replaces the current subscription set. Called with the
	// Market Registry's full enabled-token set on every registry reload.
	Subscribe(ctx context.Context, tokenIDs []string) error

	// Events yields decoded book events until ctx is done.
	Events(ctx context.Context) <-chan BookEvent

	Close() error
}

// UserEvent is a single message off the private user stream.
type UserEvent struct {
	Type        UserEventType
	AssetID     string
	TradeID     string
	OrderID     string
	Side        string
	Price       string
	Size        string
	SizeMatched string
	Status      string
	IsMaker     bool

	// Complementary reports that this fill matched the bot's own resting
	// order on the *complementary* outcome token (a NegRisk-style YES/NO
	// pair), not the token AssetID names. The consumer resolves the actual
	// token traded via the market's token pair rather than AssetID.
	Complementary bool
}

// UserEventType discriminates private stream messages.
type UserEventType string

const (
	UserTrade UserEventType = "trade"
	UserOrder UserEventType = "order"
)

// UserStream is the consumed private user websocket.
type UserStream interface {
	// Events yields decoded private events until ctx is done.
	Events(ctx context.Context) <-chan UserEvent

	Close() error
}
