package ws

import (
	"testing"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/models"
)

func TestHubRegisterAndLookup(t *testing.T) {
	hub := NewHub()

	hub.Register("u1", nil, ConnInfo{ConnID: "c1", UserID: "u1"})
	if _, ok := hub.Lookup("u1"); !ok {
		t.Fatalf("expected user to be registered")
	}

	hub.Unregister("u1", nil)
	if _, ok := hub.Lookup("u1"); ok {
		t.Fatalf("expected user to be unregistered")
	}
}

func TestHubStaleUnregisterKeepsReplacement(t *testing.T) {
	hub := NewHub()
	replacement := new(websocket.Conn)

	hub.Register("u1", nil, ConnInfo{ConnID: "c1", UserID: "u1"})
	hub.Register("u1", replacement, ConnInfo{ConnID: "c2", UserID: "u1"})

	// The first connection's deferred cleanup must not evict the newer one.
	hub.Unregister("u1", nil)
	if conn, ok := hub.Lookup("u1"); !ok || conn != replacement {
		t.Fatalf("expected replacement connection to survive stale unregister")
	}
}

func TestHubSendToOfflineUserIsNoop(t *testing.T) {
	hub := NewHub()
	hub.SendToUser("missing", models.RemovedFromGroupEvent("abc"))
}

func TestHubFanOutSkipsOfflineParticipants(t *testing.T) {
	hub := NewHub()
	hub.FanOut([]primitive.ObjectID{primitive.NewObjectID(), primitive.NewObjectID()}, models.RemovedFromGroupEvent("abc"))
}
