package views

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

// Builder assembles client-facing conversation representations from the
// directory's aggregation output.
type Builder struct {
	convRepo repositories.ConversationRepository
}

// NewBuilder constructs a Builder.
func NewBuilder(convRepo repositories.ConversationRepository) *Builder {
	return &Builder{convRepo: convRepo}
}

// Sidebar returns the user's visible conversations ordered by recency, each
// with the requesting user stripped from the participant list.
func (b *Builder) Sidebar(ctx context.Context, userID primitive.ObjectID) ([]models.ConversationView, error) {
	details, err := b.convRepo.ListDetailsForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	views := make([]models.ConversationView, 0, len(details))
	for _, d := range details {
		views = append(views, assemble(d, &userID))
	}
	return views, nil
}

// Detail resolves a single conversation with all participants included; used
// on read paths and to build fan-out payloads after mutations.
func (b *Builder) Detail(ctx context.Context, conversationID primitive.ObjectID) (models.ConversationView, error) {
	detail, err := b.convRepo.GetDetail(ctx, conversationID)
	if err != nil {
		return models.ConversationView{}, err
	}
	return assemble(detail, nil), nil
}

// assemble maps a ConversationDetail into a view, optionally excluding one
// user from the participant list.
func assemble(d repositories.ConversationDetail, exclude *primitive.ObjectID) models.ConversationView {
	participants := make([]models.UserProfile, 0, len(d.Profiles))
	for _, p := range d.Profiles {
		if exclude != nil && p.ID == *exclude {
			continue
		}
		participants = append(participants, p)
	}

	view := models.ConversationView{
		ID:           d.ID.Hex(),
		IsGroup:      d.IsGroup,
		Participants: participants,
		GroupName:    d.GroupName,
		GroupPic:     d.GroupPic,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.IsGroup && !d.GroupAdmin.IsZero() {
		view.GroupAdmin = d.GroupAdmin.Hex()
	}
	if len(d.LastMessage) > 0 {
		msg := d.LastMessage[0]
		view.LastMessage = &msg
	}
	return view
}
