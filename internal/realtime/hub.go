// Package realtime pushes demand change notifications to connected
// dashboard clients over WebSocket. The hub subscribes to the event
// bus; clients only listen.
package realtime

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/fbastos/demandboard/internal/event"
)

// writeTimeout bounds each per-client push. A client that cannot keep
// up is dropped rather than allowed to stall the bus consumer.
const writeTimeout = 5 * time.Second

// Notice is the envelope sent to dashboard clients.
type Notice struct {
	Type       string    `json:"type"` // "demand_event"
	EventType  string    `json:"event_type"`
	DemandID   string    `json:"demand_id"`
	Summary    string    `json:"summary"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Hub manages WebSocket connections and broadcasts demand events.
type Hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]struct{})}
}

// ServeHTTP upgrades to WebSocket and keeps the connection registered
// until the client goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.Printf("realtime: websocket accept: %v", err)
		return
	}
	defer conn.CloseNow()

	h.add(conn)
	defer h.remove(conn)

	// Clients are listen-only; reading just detects disconnects and
	// discards anything they send.
	ctx := r.Context()
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return
		}
	}
}

// HandleEvent implements eventbus.Handler: every demand event becomes
// a broadcast notice.
func (h *Hub) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	h.broadcast(ctx, Notice{
		Type:       "demand_event",
		EventType:  evt.EventType,
		DemandID:   evt.DemandID,
		Summary:    evt.Summary,
		OccurredAt: evt.OccurredAt,
	})
	return nil
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = struct{}{}
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, conn)
}

func (h *Hub) broadcast(ctx context.Context, notice Notice) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := wsjson.Write(wctx, c, notice)
		cancel()
		if err != nil {
			log.Printf("realtime: dropping slow client: %v", err)
			c.CloseNow()
			h.remove(c)
		}
	}
}
