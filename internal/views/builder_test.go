package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

func TestAssembleAttachesLastMessageAndAdmin(t *testing.T) {
	admin := primitive.NewObjectID()
	member := primitive.NewObjectID()
	convID := primitive.NewObjectID()
	msg := models.Message{ID: primitive.NewObjectID(), ConversationID: convID, SenderID: member, Text: "hi", CreatedAt: time.Now()}

	detail := repositories.ConversationDetail{
		Conversation: models.Conversation{
			ID:           convID,
			IsGroup:      true,
			GroupName:    "trip",
			GroupAdmin:   admin,
			Participants: []primitive.ObjectID{admin, member},
		},
		Profiles: []models.UserProfile{
			{ID: admin, FullName: "Ann"},
			{ID: member, FullName: "Bob"},
		},
		LastMessage: []models.Message{msg},
	}

	view := assemble(detail, nil)
	require.Equal(t, convID.Hex(), view.ID)
	require.Equal(t, admin.Hex(), view.GroupAdmin)
	require.Len(t, view.Participants, 2)
	require.NotNil(t, view.LastMessage)
	require.Equal(t, "hi", view.LastMessage.Text)
}

func TestAssembleExcludesRequestingUser(t *testing.T) {
	me := primitive.NewObjectID()
	other := primitive.NewObjectID()

	detail := repositories.ConversationDetail{
		Conversation: models.Conversation{
			ID:           primitive.NewObjectID(),
			Participants: []primitive.ObjectID{me, other},
		},
		Profiles: []models.UserProfile{
			{ID: me, FullName: "Ann"},
			{ID: other, FullName: "Bob"},
		},
	}

	view := assemble(detail, &me)
	require.Len(t, view.Participants, 1)
	require.Equal(t, "Bob", view.Participants[0].FullName)
	require.Nil(t, view.LastMessage)
}
