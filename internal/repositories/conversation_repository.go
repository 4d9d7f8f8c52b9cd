package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"messenger-service/internal/models"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotGroupAdmin        = errors.New("actor is not the group admin")
)

// ConversationDetail is the aggregation output for view building: the raw
// conversation plus resolved participant profiles and the latest message
// (empty slice when the log is empty).
type ConversationDetail struct {
	models.Conversation `bson:",inline"`
	Profiles            []models.UserProfile `bson:"profiles"`
	LastMessage         []models.Message     `bson:"last_message"`
}

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	FindOrCreateDirect(ctx context.Context, userID, otherID primitive.ObjectID) (models.Conversation, bool, error)
	Get(ctx context.Context, conversationID primitive.ObjectID) (models.Conversation, error)
	CreateGroup(ctx context.Context, adminID primitive.ObjectID, name string, participantIDs []primitive.ObjectID) (models.Conversation, error)
	SetGroupDetails(ctx context.Context, conversationID, actorID primitive.ObjectID, name, pic *string) error
	AddMembers(ctx context.Context, conversationID, actorID primitive.ObjectID, memberIDs []primitive.ObjectID) error
	RemoveMember(ctx context.Context, conversationID, actorID, memberID primitive.ObjectID) error
	RemoveParticipant(ctx context.Context, conversationID, userID primitive.ObjectID) error
	SetGroupAdmin(ctx context.Context, conversationID, prevAdminID, nextAdminID primitive.ObjectID) error
	HideForUser(ctx context.Context, conversationID, userID primitive.ObjectID) error
	UnhideForUser(ctx context.Context, conversationID, userID primitive.ObjectID) error
	AppendMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) error
	ListDetailsForUser(ctx context.Context, userID primitive.ObjectID) ([]ConversationDetail, error)
	GetDetail(ctx context.Context, conversationID primitive.ObjectID) (ConversationDetail, error)
}

// ConversationRepo is a mongo-backed implementation of ConversationRepository.
type ConversationRepo struct {
	conversations *mongo.Collection
	users         *mongo.Collection
	messages      *mongo.Collection
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(database *mongo.Database) *ConversationRepo {
	return &ConversationRepo{
		conversations: database.Collection("conversations"),
		users:         database.Collection("users"),
		messages:      database.Collection("messages"),
	}
}

// directKey normalizes a participant pair into the unique-index key.
func directKey(a, b primitive.ObjectID) string {
	if b.Hex() < a.Hex() {
		a, b = b, a
	}
	return a.Hex() + ":" + b.Hex()
}

// FindOrCreateDirect returns the unique non-group conversation for the pair,
// creating it when absent. The second return reports whether a new document
// was created. A concurrent create is detected via the unique direct_key
// index and resolved by re-reading.
func (r *ConversationRepo) FindOrCreateDirect(ctx context.Context, userID, otherID primitive.ObjectID) (models.Conversation, bool, error) {
	key := directKey(userID, otherID)

	var conv models.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"direct_key": key}).Decode(&conv)
	if err == nil {
		return conv, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, false, err
	}

	now := time.Now().UTC()
	conv = models.Conversation{
		ID:           primitive.NewObjectID(),
		IsGroup:      false,
		Participants: []primitive.ObjectID{userID, otherID},
		DirectKey:    key,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.conversations.InsertOne(ctx, conv); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			var existing models.Conversation
			if err := r.conversations.FindOne(ctx, bson.M{"direct_key": key}).Decode(&existing); err != nil {
				return models.Conversation{}, false, err
			}
			return existing, false, nil
		}
		return models.Conversation{}, false, err
	}
	return conv, true, nil
}

// Get fetches a conversation by id.
func (r *ConversationRepo) Get(ctx context.Context, conversationID primitive.ObjectID) (models.Conversation, error) {
	var conv models.Conversation
	err := r.conversations.FindOne(ctx, bson.M{"_id": conversationID}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// CreateGroup inserts a group conversation with the admin included in the
// participant set.
func (r *ConversationRepo) CreateGroup(ctx context.Context, adminID primitive.ObjectID, name string, participantIDs []primitive.ObjectID) (models.Conversation, error) {
	participants := make([]primitive.ObjectID, 0, len(participantIDs)+1)
	seen := map[primitive.ObjectID]struct{}{}
	for _, id := range participantIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		participants = append(participants, id)
	}
	if _, ok := seen[adminID]; !ok {
		participants = append(participants, adminID)
	}

	now := time.Now().UTC()
	conv := models.Conversation{
		ID:           primitive.NewObjectID(),
		IsGroup:      true,
		Participants: participants,
		GroupName:    name,
		GroupAdmin:   adminID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.conversations.InsertOne(ctx, conv); err != nil {
		return models.Conversation{}, err
	}
	return conv, nil
}

// adminUpdate runs an update gated on the actor still holding the admin role.
// The filter carries the admin check so a concurrent handoff turns the write
// into a no-op instead of racing a separate permission read.
func (r *ConversationRepo) adminUpdate(ctx context.Context, conversationID, actorID primitive.ObjectID, update bson.M) error {
	filter := bson.M{"_id": conversationID, "is_group": true, "group_admin": actorID}
	res, err := r.conversations.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		if err := r.conversations.FindOne(ctx, bson.M{"_id": conversationID}).Err(); errors.Is(err, mongo.ErrNoDocuments) {
			return ErrConversationNotFound
		}
		return ErrNotGroupAdmin
	}
	return nil
}

// SetGroupDetails applies a partial metadata update; nil fields are untouched.
func (r *ConversationRepo) SetGroupDetails(ctx context.Context, conversationID, actorID primitive.ObjectID, name, pic *string) error {
	set := bson.M{"updated_at": time.Now().UTC()}
	if name != nil {
		set["group_name"] = *name
	}
	if pic != nil {
		set["group_pic"] = *pic
	}
	return r.adminUpdate(ctx, conversationID, actorID, bson.M{"$set": set})
}

// AddMembers unions the member ids into the participant set (admin only).
func (r *ConversationRepo) AddMembers(ctx context.Context, conversationID, actorID primitive.ObjectID, memberIDs []primitive.ObjectID) error {
	return r.adminUpdate(ctx, conversationID, actorID, bson.M{
		"$addToSet": bson.M{"participants": bson.M{"$each": memberIDs}},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveMember pulls the member from the participant set (admin only).
func (r *ConversationRepo) RemoveMember(ctx context.Context, conversationID, actorID, memberID primitive.ObjectID) error {
	return r.adminUpdate(ctx, conversationID, actorID, bson.M{
		"$pull": bson.M{"participants": memberID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// RemoveParticipant pulls a user from the participant set without an admin
// gate; used by the leave path.
func (r *ConversationRepo) RemoveParticipant(ctx context.Context, conversationID, userID primitive.ObjectID) error {
	res, err := r.conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, bson.M{
		"$pull": bson.M{"participants": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// SetGroupAdmin hands the admin role over, conditional on the previous admin
// still holding it.
func (r *ConversationRepo) SetGroupAdmin(ctx context.Context, conversationID, prevAdminID, nextAdminID primitive.ObjectID) error {
	_, err := r.conversations.UpdateOne(ctx,
		bson.M{"_id": conversationID, "group_admin": prevAdminID},
		bson.M{"$set": bson.M{"group_admin": nextAdminID, "updated_at": time.Now().UTC()}},
	)
	return err
}

// HideForUser adds the user to the hidden set; idempotent.
func (r *ConversationRepo) HideForUser(ctx context.Context, conversationID, userID primitive.ObjectID) error {
	res, err := r.conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, bson.M{
		"$addToSet": bson.M{"hidden_for": userID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// UnhideForUser clears the user from the hidden set; other participants'
// visibility is untouched.
func (r *ConversationRepo) UnhideForUser(ctx context.Context, conversationID, userID primitive.ObjectID) error {
	_, err := r.conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, bson.M{
		"$pull": bson.M{"hidden_for": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// AppendMessage records a message id onto the conversation's log reference.
func (r *ConversationRepo) AppendMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) error {
	res, err := r.conversations.UpdateOne(ctx, bson.M{"_id": conversationID}, bson.M{
		"$push": bson.M{"messages": messageID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrConversationNotFound
	}
	return nil
}

// detailPipeline resolves display-safe participant profiles and the latest
// message in a single aggregation round trip.
func detailPipeline(match bson.M) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$lookup", Value: bson.M{
			"from": "users",
			"let":  bson.M{"ids": "$participants"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$in": bson.A{"$_id", "$$ids"}}}},
				bson.M{"$project": bson.M{"full_name": 1, "profile_pic": 1}},
			},
			"as": "profiles",
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from": "messages",
			"let":  bson.M{"conv": "$_id"},
			"pipeline": bson.A{
				bson.M{"$match": bson.M{"$expr": bson.M{"$eq": bson.A{"$conversation_id", "$$conv"}}}},
				bson.M{"$sort": bson.M{"created_at": -1}},
				bson.M{"$limit": 1},
			},
			"as": "last_message",
		}}},
	}
}

// ListDetailsForUser returns every conversation visible to the user, ordered
// by the latest message timestamp descending. Conversations without messages
// take the zero time as effective recency and sort last.
func (r *ConversationRepo) ListDetailsForUser(ctx context.Context, userID primitive.ObjectID) ([]ConversationDetail, error) {
	pipeline := detailPipeline(bson.M{
		"participants": userID,
		"hidden_for":   bson.M{"$ne": userID},
	})
	pipeline = append(pipeline,
		bson.D{{Key: "$addFields", Value: bson.M{
			"last_at": bson.M{"$ifNull": bson.A{
				bson.M{"$arrayElemAt": bson.A{"$last_message.created_at", 0}},
				time.Time{},
			}},
		}}},
		bson.D{{Key: "$sort", Value: bson.M{"last_at": -1}}},
	)

	cur, err := r.conversations.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var details []ConversationDetail
	if err := cur.All(ctx, &details); err != nil {
		return nil, err
	}
	return details, nil
}

// GetDetail resolves a single conversation.
func (r *ConversationRepo) GetDetail(ctx context.Context, conversationID primitive.ObjectID) (ConversationDetail, error) {
	cur, err := r.conversations.Aggregate(ctx, detailPipeline(bson.M{"_id": conversationID}))
	if err != nil {
		return ConversationDetail{}, err
	}
	defer cur.Close(ctx)

	var details []ConversationDetail
	if err := cur.All(ctx, &details); err != nil {
		return ConversationDetail{}, err
	}
	if len(details) == 0 {
		return ConversationDetail{}, ErrConversationNotFound
	}
	return details[0], nil
}
