package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/media"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) FindOrCreateDirect(ctx context.Context, userID, otherID primitive.ObjectID) (models.Conversation, bool, error) {
	args := m.Called(ctx, userID, otherID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Bool(1), args.Error(2)
}

func (m *ConversationRepositoryMock) Get(ctx context.Context, conversationID primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, conversationID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) CreateGroup(ctx context.Context, adminID primitive.ObjectID, name string, participantIDs []primitive.ObjectID) (models.Conversation, error) {
	args := m.Called(ctx, adminID, name, participantIDs)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ConversationRepositoryMock) SetGroupDetails(ctx context.Context, conversationID, actorID primitive.ObjectID, name, pic *string) error {
	args := m.Called(ctx, conversationID, actorID, name, pic)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) AddMembers(ctx context.Context, conversationID, actorID primitive.ObjectID, memberIDs []primitive.ObjectID) error {
	args := m.Called(ctx, conversationID, actorID, memberIDs)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) RemoveMember(ctx context.Context, conversationID, actorID, memberID primitive.ObjectID) error {
	args := m.Called(ctx, conversationID, actorID, memberID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) RemoveParticipant(ctx context.Context, conversationID, userID primitive.ObjectID) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) SetGroupAdmin(ctx context.Context, conversationID, prevAdminID, nextAdminID primitive.ObjectID) error {
	args := m.Called(ctx, conversationID, prevAdminID, nextAdminID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) HideForUser(ctx context.Context, conversationID, userID primitive.ObjectID) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) UnhideForUser(ctx context.Context, conversationID, userID primitive.ObjectID) error {
	args := m.Called(ctx, conversationID, userID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) AppendMessage(ctx context.Context, conversationID, messageID primitive.ObjectID) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

func (m *ConversationRepositoryMock) ListDetailsForUser(ctx context.Context, userID primitive.ObjectID) ([]repositories.ConversationDetail, error) {
	args := m.Called(ctx, userID)
	var list []repositories.ConversationDetail
	if val := args.Get(0); val != nil {
		list = val.([]repositories.ConversationDetail)
	}
	return list, args.Error(1)
}

func (m *ConversationRepositoryMock) GetDetail(ctx context.Context, conversationID primitive.ObjectID) (repositories.ConversationDetail, error) {
	args := m.Called(ctx, conversationID)
	var detail repositories.ConversationDetail
	if val := args.Get(0); val != nil {
		detail = val.(repositories.ConversationDetail)
	}
	return detail, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) Create(ctx context.Context, conversationID, senderID primitive.ObjectID, kind models.MessageKind, text, imageURL string) (models.Message, error) {
	args := m.Called(ctx, conversationID, senderID, kind, text, imageURL)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForConversation(ctx context.Context, conversationID primitive.ObjectID) ([]models.Message, error) {
	args := m.Called(ctx, conversationID)
	var list []models.Message
	if val := args.Get(0); val != nil {
		list = val.([]models.Message)
	}
	return list, args.Error(1)
}

type UserRepositoryMock struct {
	mock.Mock
}

func (m *UserRepositoryMock) Profiles(ctx context.Context, ids []primitive.ObjectID) ([]models.UserProfile, error) {
	args := m.Called(ctx, ids)
	var profiles []models.UserProfile
	if val := args.Get(0); val != nil {
		profiles = val.([]models.UserProfile)
	}
	return profiles, args.Error(1)
}

type UploaderMock struct {
	mock.Mock
}

func (m *UploaderMock) Upload(ctx context.Context, dataURL string) (string, error) {
	args := m.Called(ctx, dataURL)
	return args.String(0), args.Error(1)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.UserRepository = (*UserRepositoryMock)(nil)
var _ media.Uploader = (*UploaderMock)(nil)
