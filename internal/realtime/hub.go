package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scamr/caboard/internal/domain"
	"github.com/scamr/caboard/internal/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size. Posts are short messages; anything
	// larger is a misbehaving client.
	maxMessageSize = 8192

	sendBufferSize      = 64
	broadcastBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub maintains the registry of connected sessions and relays newPost
// events to every session. It is the only shared mutable state on the
// server side of the realtime channel; the registry is mutated only on
// connect and disconnect and read only while relaying.
//
// The hub is created at process start and injected into whatever needs to
// emit; there is no ambient singleton.
type Hub struct {
	sessions   map[*session]bool
	broadcast  chan []byte
	register   chan *session
	unregister chan *session
	logger     *slog.Logger
	metrics    *metrics.Metrics
	mu         sync.RWMutex
}

// session is one connected websocket client.
type session struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a hub. Call Run before serving connections.
func NewHub(logger *slog.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		sessions:   make(map[*session]bool),
		broadcast:  make(chan []byte, broadcastBufferSize),
		register:   make(chan *session),
		unregister: make(chan *session),
		logger:     logger,
		metrics:    m,
	}
}

// Run drives the hub's event loop until ctx is cancelled. Registration,
// teardown, and fan-out all happen here, one event at a time.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case s := <-h.register:
			h.mu.Lock()
			h.sessions[s] = true
			count := len(h.sessions)
			h.mu.Unlock()
			h.metrics.WSConnections.Inc()
			h.logger.Info("session connected", "sessions", count)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.sessions[s]; ok {
				delete(h.sessions, s)
				close(s.send)
				h.metrics.WSConnections.Dec()
			}
			count := len(h.sessions)
			h.mu.Unlock()
			h.logger.Info("session disconnected", "sessions", count)

		case message := <-h.broadcast:
			h.relay(message)
		}
	}
}

// relay fans one message out to every session. A session that cannot keep
// up is evicted rather than allowed to stall the others.
func (h *Hub) relay(message []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.sessions {
		select {
		case s.send <- message:
			h.metrics.BroadcastsSent.Inc()
		default:
			close(s.send)
			delete(h.sessions, s)
			h.metrics.WSConnections.Dec()
			h.metrics.BroadcastsDropped.Inc()
			h.logger.Warn("evicted slow session")
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.sessions {
		close(s.send)
		s.conn.Close()
		delete(h.sessions, s)
		h.metrics.WSConnections.Dec()
	}
}

// BroadcastPost emits a newPost event to all connected sessions, the
// submitter's own session included; reconciliation on the client absorbs
// the redelivery. Implements domain.Broadcaster.
func (h *Hub) BroadcastPost(post *domain.Post) error {
	event := Event{
		Type:      EventNewPost,
		Post:      *post,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal newPost event: %w", err)
	}

	select {
	case h.broadcast <- payload:
		return nil
	default:
		h.metrics.BroadcastsDropped.Inc()
		return fmt.Errorf("broadcast queue full, dropping post %d", post.ID)
	}
}

// SessionCount reports how many sessions are currently registered.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// ServeWS upgrades an HTTP request into a hub session.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade websocket connection", "error", err)
		return
	}

	s := &session{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register <- s

	go s.writePump()
	go s.readPump()
}

// readPump pumps inbound frames from the connection to the hub. A client
// may send its own newPost events (a confirmed post plus provisional ID),
// which are relayed to all sessions unchanged.
func (s *session) readPump() {
	defer func() {
		s.hub.unregister <- s
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.hub.logger.Error("websocket read error", "error", err)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			s.hub.logger.Warn("ignoring malformed event", "error", err)
			continue
		}
		if event.Type != EventNewPost {
			s.hub.logger.Warn("ignoring unknown event type", "type", event.Type)
			continue
		}

		select {
		case s.hub.broadcast <- message:
		default:
			s.hub.metrics.BroadcastsDropped.Inc()
			s.hub.logger.Warn("broadcast queue full, dropping inbound event")
		}
	}
}

// writePump pumps messages from the hub to the connection and keeps the
// connection alive with pings.
func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
