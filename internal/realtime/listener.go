package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// maxConnectAttempts bounds automatic reconnection. Once exhausted the
	// listener reports ErrRetriesExhausted and the caller must fall back to
	// re-fetching over HTTP to stay current.
	maxConnectAttempts = 5

	// reconnectBaseDelay is the first backoff interval; it doubles per
	// consecutive failure.
	reconnectBaseDelay = time.Second
)

// ErrRetriesExhausted is returned by Listener.Start after its reconnection
// budget runs out.
var ErrRetriesExhausted = errors.New("realtime: reconnect attempts exhausted")

// Listener is the client side of the realtime channel: it dials the board
// server's websocket endpoint and hands every newPost event to a handler.
// Missed events during a disconnect are never replayed; the session is
// expected to re-fetch current state after reconnecting.
type Listener struct {
	url     string
	handler func(Event)
	logger  *slog.Logger

	maxAttempts int
	baseDelay   time.Duration
}

// NewListener creates a listener for the given ws:// or wss:// URL. The
// handler is invoked sequentially from the read loop.
func NewListener(url string, handler func(Event), logger *slog.Logger) *Listener {
	return &Listener{
		url:         url,
		handler:     handler,
		logger:      logger,
		maxAttempts: maxConnectAttempts,
		baseDelay:   reconnectBaseDelay,
	}
}

// Start connects and processes events until ctx is cancelled, the
// connection closes cleanly, or the reconnection budget is exhausted.
// Transient errors trigger reconnection with doubling backoff; a successful
// connection resets the attempt counter.
func (l *Listener) Start(ctx context.Context) error {
	attempts := 0
	delay := l.baseDelay

	for {
		connected, err := l.subscribe(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			// Server closed the session cleanly.
			return nil
		}
		if connected {
			// The dial succeeded before the session dropped, so this is a
			// fresh outage, not another failed attempt in a row.
			attempts = 0
			delay = l.baseDelay
		}

		attempts++
		if attempts >= l.maxAttempts {
			l.logger.Error("giving up on realtime channel", "attempts", attempts, "error", err)
			return fmt.Errorf("%w: last error: %v", ErrRetriesExhausted, err)
		}

		l.logger.Warn("realtime connection error, reconnecting",
			"attempt", attempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
			delay *= 2
		}
	}
}

func (l *Listener) subscribe(ctx context.Context) (connected bool, _ error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close()

	l.logger.Info("connected to realtime channel", "url", l.url)

	// Tear the read loop down when the context is cancelled; ReadMessage
	// has no context parameter of its own.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true, ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return true, nil
			}
			return true, fmt.Errorf("read message: %w", err)
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			l.logger.Error("failed to parse event", "error", err)
			continue
		}
		if event.Type != EventNewPost {
			continue
		}

		l.handler(event)
	}
}
