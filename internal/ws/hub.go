package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/models"
	"messenger-service/internal/observability"
)

// Hub is the presence registry and fan-out dispatcher: it maps a user
// identity to at most one live websocket connection and delivers events
// best-effort to whoever is currently connected. It is constructed at
// server start and injected; connection handlers write to it, dispatch
// paths only read.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*client
}

type client struct {
	conn *websocket.Conn
	info ConnInfo
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[string]*client)}
}

// Register binds a user to a connection. A user holds at most one live
// connection; a newer registration closes and replaces the previous one.
func (h *Hub) Register(userID string, conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	prev, ok := h.clients[userID]
	h.clients[userID] = &client{conn: conn, info: info}
	h.mu.Unlock()

	if ok && prev.conn != nil && prev.conn != conn {
		prev.conn.Close()
	}
}

// Unregister removes the user's binding, but only if it still points at the
// given connection; a replacement registered in the meantime stays.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cl, ok := h.clients[userID]; ok && cl.conn == conn {
		delete(h.clients, userID)
	}
}

// Lookup returns the user's live connection, if any. Pure map read.
func (h *Hub) Lookup(userID string) (*websocket.Conn, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cl, ok := h.clients[userID]
	if !ok {
		return nil, false
	}
	return cl.conn, true
}

// SendToUser delivers an event to the user's live connection. Offline users
// are silently skipped; delivery is at-most-once with no queuing or retry.
func (h *Hub) SendToUser(userID string, event models.Event) {
	h.mu.RLock()
	cl, ok := h.clients[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload, _ := json.Marshal(event)
	if err := cl.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		cl.conn.Close()
		h.Unregister(userID, cl.conn)
		h.publishWSError(cl.info, event.Type, err)
		return
	}
	observability.IncWSEvent("presence", event.Type)
}

// FanOut pushes the event to every listed participant that is currently
// connected.
func (h *Hub) FanOut(participants []primitive.ObjectID, event models.Event) {
	for _, p := range participants {
		h.SendToUser(p.Hex(), event)
	}
}

func (h *Hub) publishWSError(info ConnInfo, eventType string, err error) {
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "presence",
			"event":       "ws_error",
			"event_type":  eventType,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.presence",
		observability.NewEnvelope("ws_events", "ws_error", payload), headers)
	observability.IncWSEvent("presence", "ws_error")
}
