package models

// Event kinds pushed over the presence socket.
const (
	EventNewMessage          = "newMessage"
	EventConversationUpdated = "conversationUpdated"
	EventAddedToGroup        = "addedToGroup"
	EventRemovedFromGroup    = "removedFromGroup"
)

// Event is the closed set of payloads delivered to connected clients.
// Exactly one payload field is populated per event type.
type Event struct {
	Type           string            `json:"type"`
	Message        *Message          `json:"message,omitempty"`
	Conversation   *ConversationView `json:"conversation,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
}

// NewMessageEvent wraps a freshly appended message.
func NewMessageEvent(msg Message) Event {
	return Event{Type: EventNewMessage, Message: &msg}
}

// ConversationUpdatedEvent signals a roster or metadata change to current members.
func ConversationUpdatedEvent(view ConversationView) Event {
	return Event{Type: EventConversationUpdated, Conversation: &view}
}

// AddedToGroupEvent tells a newly added member to insert the conversation.
func AddedToGroupEvent(view ConversationView) Event {
	return Event{Type: EventAddedToGroup, Conversation: &view}
}

// RemovedFromGroupEvent tells a removed member to discard the conversation.
func RemovedFromGroupEvent(conversationID string) Event {
	return Event{Type: EventRemovedFromGroup, ConversationID: conversationID}
}
