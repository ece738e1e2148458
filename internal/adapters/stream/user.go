package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/aidenzou-az/polymarket-mm/internal/ports"
)

// Credentials is the API key triple used to authenticate the private user
// channel, plus the wallet address that owns every order this bot places.
// All four are read from the environment, never from the market registry
// or any other config file.
type Credentials struct {
	APIKey     string
	Secret     string
	Passphrase string
	Address    string
}

// UserStream is the gorilla/websocket-backed private user stream: trade
// fills and order state changes for the authenticated wallet.
type UserStream struct {
	log   *slog.Logger
	url   string
	creds Credentials

	send        chan []byte
	events      chan ports.UserEvent
	reconnected chan struct{}
	cancel      context.CancelFunc
}

func NewUserStream(log *slog.Logger, url string, creds Credentials) *UserStream {
	return &UserStream{
		log:         log,
		url:         url,
		creds:       creds,
		send:        make(chan []byte, 8),
		events:      make(chan ports.UserEvent, 256),
		reconnected: make(chan struct{}, 1),
	}
}

// Reconnected fires once per successful (re)connection, after
// authentication. Callers use it to force a full REST pull of open
// orders and positions, since fills during the outage produced no event.
func (s *UserStream) Reconnected() <-chan struct{} {
	return s.reconnected
}

func (s *UserStream) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	runForever(ctx, s.log, "user", s.url, s.send, s.authenticate, s.onMessage)
}

func (s *UserStream) Events(ctx context.Context) <-chan ports.UserEvent {
	return s.events
}

func (s *UserStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

type authRequest struct {
	Type string  `json:"type"`
	Auth authMsg `json:"auth"`
}

type authMsg struct {
	APIKey     string `json:"apiKey"`
	Secret     string `json:"secret"`
	Passphrase string `json:"passphrase"`
}

func (s *UserStream) authenticate(conn *websocket.Conn) error {
	if err := conn.WriteJSON(authRequest{
		Type: "user",
		Auth: authMsg{APIKey: s.creds.APIKey, Secret: s.creds.Secret, Passphrase: s.creds.Passphrase},
	}); err != nil {
		return err
	}
	select {
	case s.reconnected <- struct{}{}:
	default:
	}
	return nil
}

type wireUserEvent struct {
	EventType   string `json:"event_type"`
	AssetID     string `json:"asset_id"`
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	Size        string `json:"size"`
	SizeMatched string `json:"size_matched"`
	Status      string `json:"status"`
	Outcome     string `json:"outcome"` // the taker's outcome on this trade
	Maker       []struct {
		OrderID       string `json:"order_id"`
		MakerAddress  string `json:"maker_address"`
		Outcome       string `json:"outcome"`
		MatchedAmount string `json:"matched_amount"`
		Price         string `json:"price"`
	} `json:"maker_orders"`
	Owner string `json:"owner"`
}

func (s *UserStream) onMessage(raw []byte) {
	var frames []wireUserEvent
	if err := json.Unmarshal(raw, &frames); err != nil {
		var single wireUserEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			s.log.Warn("user stream: undecodable frame", "error", err)
			return
		}
		frames = []wireUserEvent{single}
	}

	for _, f := range frames {
		evt := ports.UserEvent{
			AssetID:     f.AssetID,
			TradeID:     f.ID,
			OrderID:     f.OrderID,
			Side:        f.Side,
			Price:       f.Price,
			Size:        f.Size,
			SizeMatched: f.SizeMatched,
			Status:      f.Status,
		}
		switch f.EventType {
		case "trade":
			evt.Type = ports.UserTrade
			s.classifyMaker(&evt, f)
		case "order":
			evt.Type = ports.UserOrder
		default:
			continue
		}
		select {
		case s.events <- evt:
		default:
			s.log.Warn("user stream: events channel full, dropping frame", "asset_id", f.AssetID)
		}
	}
}

// classifyMaker decides whether this wallet was the maker on a trade by
// scanning maker_orders for an address match, mirroring the original
// bot's own address-based check rather than an order-id self-comparison.
// A maker fill takes its size/price from the matching maker order, since
// the top-level row otherwise reports the taker's; when the matching
// maker order's outcome differs from the taker's, the fill landed on the
// complementary token and the side reported is the taker's, so it needs
// no flip — only Complementary, letting the caller resolve the actual
// token via the market's token pair. When the outcomes match, the fill is
// the mirror of the reported side.
func (s *UserStream) classifyMaker(evt *ports.UserEvent, f wireUserEvent) {
	if s.creds.Address == "" {
		return
	}
	for _, m := range f.Maker {
		if !strings.EqualFold(m.MakerAddress, s.creds.Address) {
			continue
		}
		evt.IsMaker = true
		if m.MatchedAmount != "" {
			evt.Size = m.MatchedAmount
		}
		if m.Price != "" {
			evt.Price = m.Price
		}
		if m.Outcome != "" && f.Outcome != "" {
			if m.Outcome == f.Outcome {
				evt.Side = flipSide(evt.Side)
			} else {
				evt.Complementary = true
			}
		}
		return
	}
}

func flipSide(side string) string {
	switch {
	case strings.EqualFold(side, "BUY"):
		return "SELL"
	case strings.EqualFold(side, "SELL"):
		return "BUY"
	default:
		return side
	}
}
