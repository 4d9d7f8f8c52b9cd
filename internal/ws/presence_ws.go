package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messenger-service/internal/auth"
	"messenger-service/internal/observability"
)

// PresenceHandler upgrades the per-user presence socket and maintains the
// hub registration for its lifetime.
type PresenceHandler struct {
	hub      *Hub
	verifier *auth.Verifier
}

// NewPresenceHandler constructs a PresenceHandler.
func NewPresenceHandler(hub *Hub, verifier *auth.Verifier) *PresenceHandler {
	return &PresenceHandler{hub: hub, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle authenticates, upgrades and registers the connection.
func (h *PresenceHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messenger-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	userID, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	traceID := span.SpanContext().TraceID().String()
	meta := observability.MetadataFromRequest(c.Request)
	requestID := meta.RequestID
	info := ConnInfo{
		ConnID:      uuid.NewString(),
		UserID:      userID,
		DeviceID:    meta.DeviceID,
		IP:          meta.IP,
		RequestID:   requestID,
		TraceID:     traceID,
		ConnectedAt: time.Now(),
	}
	h.hub.Register(userID, conn, info)

	observability.IncWSActive("presence")
	observability.IncWSEvent("presence", "ws_connect")
	_ = observability.PublishEvent(ctx, "ws_events.presence",
		observability.NewEnvelope("ws_events", "ws_connect", lifecyclePayload(info, "ws_connect", 0, "")),
		observability.BuildHeaders(requestID, traceID))

	// Keep connection alive and clean on close.
	go func() {
		var closeReason string
		defer func() {
			h.hub.Unregister(userID, conn)
			observability.DecWSActive("presence")
			observability.IncWSEvent("presence", "ws_disconnect")
			_ = observability.PublishEvent(ctx, "ws_events.presence",
				observability.NewEnvelope("ws_events", "ws_disconnect", lifecyclePayload(info, "ws_disconnect", time.Since(info.ConnectedAt).Milliseconds(), closeReason)),
				observability.BuildHeaders(requestID, traceID))
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					observability.IncWSEvent("presence", "ws_error")
				}
				return
			}
		}
	}()
}

func (h *PresenceHandler) validateToken(header string) (string, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.Verify(parts[1])
	}
	return "", auth.ErrInvalidToken
}

func lifecyclePayload(info ConnInfo, event string, durationMS int64, reason string) map[string]interface{} {
	return map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "presence",
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": durationMS,
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"user_id":   info.UserID,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}
}
