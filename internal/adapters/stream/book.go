package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/aidenzou-az/polymarket-mm/internal/ports"
)

// BookStream is the gorilla/websocket-backed public book stream. On every
// fresh connection it resubscribes to the current token set. It exposes
// no reconnect signal, so a reconnect of this stream does not force a
// REST pull; only the user stream's Reconnected signal does.
type BookStream struct {
	log *slog.Logger
	url string

	mu       sync.Mutex
	tokenIDs []string

	send   chan []byte
	events chan ports.BookEvent
	cancel context.CancelFunc
}

// NewBookStream returns a BookStream that has not yet connected; call Run
// to start the reconnect pump.
func NewBookStream(log *slog.Logger, url string) *BookStream {
	return &BookStream{
		log:    log,
		url:    url,
		send:   make(chan []byte, 8),
		events: make(chan ports.BookEvent, 256),
	}
}

// Run starts the reconnect pump and blocks until ctx is cancelled.
func (s *BookStream) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer close(s.events)
	runForever(ctx, s.log, "book", s.url, s.send, s.subscribeMessage, s.onMessage)
}

// Subscribe replaces the subscription set and, if connected, pushes the
// new subscription immediately; the next connection also resends it.
func (s *BookStream) Subscribe(ctx context.Context, tokenIDs []string) error {
	s.mu.Lock()
	s.tokenIDs = append([]string(nil), tokenIDs...)
	msg, err := json.Marshal(subscribeRequest{AssetsIDs: s.tokenIDs})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	select {
	case s.send <- msg:
	case <-ctx.Done():
		return ctx.Err()
	default:
		// send buffer full; onOpen sends the current set on the next connect.
	}
	return nil
}

func (s *BookStream) Events(ctx context.Context) <-chan ports.BookEvent {
	return s.events
}

func (s *BookStream) Close() error {
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

type subscribeRequest struct {
	AssetsIDs []string `json:"assets_ids"`
}

func (s *BookStream) subscribeMessage(conn *websocket.Conn) error {
	s.mu.Lock()
	ids := append([]string(nil), s.tokenIDs...)
	s.mu.Unlock()
	if len(ids) == 0 {
		return nil
	}
	return conn.WriteJSON(subscribeRequest{AssetsIDs: ids})
}

type wireBookEvent struct {
	EventType string            `json:"event_type"`
	AssetID   string            `json:"asset_id"`
	Bids      []wireLevel       `json:"bids"`
	Asks      []wireLevel       `json:"asks"`
	Changes   []wirePriceChange `json:"changes"`
}

type wireLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type wirePriceChange struct {
	Side  string `json:"side"`
	Price string `json:"price"`
	Size  string `json:"size"`
}

func (s *BookStream) onMessage(raw []byte) {
	var frames []wireBookEvent
	if err := json.Unmarshal(raw, &frames); err != nil {
		var single wireBookEvent
		if err := json.Unmarshal(raw, &single); err != nil {
			s.log.Warn("book stream: undecodable frame", "error", err)
			return
		}
		frames = []wireBookEvent{single}
	}

	for _, f := range frames {
		evt := ports.BookEvent{AssetID: f.AssetID}
		switch f.EventType {
		case "book":
			evt.Type = ports.BookSnapshot
			evt.Bids = levelsToMap(f.Bids)
			evt.Asks = levelsToMap(f.Asks)
		case "price_change":
			evt.Type = ports.BookPriceChange
			for _, c := range f.Changes {
				evt.Changes = append(evt.Changes, ports.PriceChange{Side: c.Side, Price: c.Price, Size: c.Size})
			}
		default:
			continue
		}
		select {
		case s.events <- evt:
		default:
			s.log.Warn("book stream: events channel full, dropping frame", "asset_id", f.AssetID)
		}
	}
}

func levelsToMap(levels []wireLevel) map[string]string {
	m := make(map[string]string, len(levels))
	for _, l := range levels {
		m[l.Price] = l.Size
	}
	return m
}
