// Package stream implements the public book and private user websocket
// clients: thin gorilla/websocket wrappers around a shared reconnect pump
// with exponential backoff, full jitter, and a caller-supplied resubscribe
// hook run on every fresh connection.
package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 20 * time.Second
)

// runForever dials url in a loop until ctx is cancelled. onOpen runs once
// per successful connection (subscribe/auth messages); onMessage runs for
// every decoded frame. A read or write failure tears the connection down
// and reconnects after a jittered exponential backoff, resetting once a
// connection survives one full ping interval.
func runForever(ctx context.Context, log *slog.Logger, name, url string, sendCh <-chan []byte, onOpen func(*websocket.Conn) error, onMessage func([]byte)) {
	var bo backoff

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			log.Warn("dial failed", "stream", name, "error", err)
			if !sleepCtx(ctx, bo.next()) {
				return
			}
			continue
		}
		log.Info("connected", "stream", name)

		if onOpen != nil {
			if err := onOpen(conn); err != nil {
				log.Warn("subscribe/auth failed", "stream", name, "error", err)
				conn.Close()
				if !sleepCtx(ctx, bo.next()) {
					return
				}
				continue
			}
		}

		connected := time.Now()
		runPumps(ctx, conn, sendCh, onMessage)
		conn.Close()

		if time.Since(connected) > pingInterval {
			bo.reset()
		}

		log.Warn("disconnected, reconnecting", "stream", name)
		if !sleepCtx(ctx, bo.next()) {
			return
		}
	}
}

// runPumps reads frames until ctx is cancelled or the connection errors,
// answering pings with a rolling read deadline.
func runPumps(ctx context.Context, conn *websocket.Conn, sendCh <-chan []byte, onMessage func([]byte)) {
	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case msg, ok := <-sendCh:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		onMessage(msg)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
