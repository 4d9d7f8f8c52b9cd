package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageKind discriminates user text, image attachments and
// server-synthesized announcements.
type MessageKind string

const (
	MessageText   MessageKind = "text"
	MessageImage  MessageKind = "image"
	MessageSystem MessageKind = "system"
)

// Message is an immutable entry in a conversation's log. For system
// messages SenderID carries the acting user for audit display only.
type Message struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID primitive.ObjectID `bson:"conversation_id" json:"conversation_id"`
	SenderID       primitive.ObjectID `bson:"sender_id" json:"sender_id"`
	Kind           MessageKind        `bson:"kind" json:"kind"`
	Text           string             `bson:"text,omitempty" json:"text,omitempty"`
	ImageURL       string             `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
}
