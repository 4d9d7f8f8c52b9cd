package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"messenger-service/internal/models"
)

// MessageRepository defines interactions with the append-only message log.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID primitive.ObjectID, kind models.MessageKind, text, imageURL string) (models.Message, error)
	ListForConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error)
}

// MessageRepo is a mongo-backed implementation.
type MessageRepo struct {
	messages *mongo.Collection
}

// NewMessageRepo constructs a MessageRepo.
func NewMessageRepo(database *mongo.Database) *MessageRepo {
	return &MessageRepo{messages: database.Collection("messages")}
}

// Create persists a message. Messages are immutable once written.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID primitive.ObjectID, kind models.MessageKind, text, imageURL string) (models.Message, error) {
	msg := models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Kind:           kind,
		Text:           text,
		ImageURL:       imageURL,
		CreatedAt:      time.Now().UTC(),
	}
	if _, err := r.messages.InsertOne(ctx, msg); err != nil {
		return models.Message{}, err
	}
	return msg, nil
}

// ListForConversation returns the full log, oldest first.
func (r *MessageRepo) ListForConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	cur, err := r.messages.Find(ctx, bson.M{"conversation_id": conversationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
