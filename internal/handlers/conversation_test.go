package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/views"
	"messenger-service/internal/ws"
)

var (
	testUserID  = primitive.NewObjectID()
	testOtherID = primitive.NewObjectID()
	testThirdID = primitive.NewObjectID()
)

func setupConversationRouter(handler *ConversationHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", testUserID.Hex())
		c.Next()
	})
	r.POST("/conversations", handler.FindOrCreate)
	r.GET("/conversations", handler.Sidebar)
	r.GET("/conversations/:conversation_id", handler.Detail)
	r.DELETE("/conversations/:conversation_id", handler.HideOrLeave)
	return r
}

func newConversationHandler(convRepo *mocks.ConversationRepositoryMock, messageRepo *mocks.MessageRepositoryMock, userRepo *mocks.UserRepositoryMock) *ConversationHandler {
	return NewConversationHandler(convRepo, messageRepo, userRepo, views.NewBuilder(convRepo), ws.NewHub(), nil)
}

func directDetail(convID primitive.ObjectID) repositories.ConversationDetail {
	return repositories.ConversationDetail{
		Conversation: models.Conversation{
			ID:           convID,
			Participants: []primitive.ObjectID{testUserID, testOtherID},
		},
		Profiles: []models.UserProfile{
			{ID: testUserID, FullName: "Ann"},
			{ID: testOtherID, FullName: "Bob"},
		},
	}
}

func TestFindOrCreateCreatesConversation(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := newConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	conv := models.Conversation{ID: convID, Participants: []primitive.ObjectID{testUserID, testOtherID}}
	convRepo.On("FindOrCreateDirect", mock.Anything, testUserID, testOtherID).Return(conv, true, nil).Once()
	convRepo.On("GetDetail", mock.Anything, convID).Return(directDetail(convID), nil).Once()

	body := bytes.NewBufferString(`{"receiver_id":"` + testOtherID.Hex() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var view models.ConversationView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	require.Equal(t, convID.Hex(), view.ID)
	convRepo.AssertExpectations(t)
}

func TestFindOrCreateUnhidesExistingConversation(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := newConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	conv := models.Conversation{
		ID:           convID,
		Participants: []primitive.ObjectID{testUserID, testOtherID},
		HiddenFor:    []primitive.ObjectID{testUserID},
	}
	convRepo.On("FindOrCreateDirect", mock.Anything, testUserID, testOtherID).Return(conv, false, nil).Once()
	convRepo.On("UnhideForUser", mock.Anything, convID, testUserID).Return(nil).Once()
	convRepo.On("GetDetail", mock.Anything, convID).Return(directDetail(convID), nil).Once()

	body := bytes.NewBufferString(`{"receiver_id":"` + testOtherID.Hex() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestFindOrCreateRejectsSelfConversation(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := newConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupConversationRouter(handler)

	body := bytes.NewBufferString(`{"receiver_id":"` + testUserID.Hex() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/conversations", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	convRepo.AssertNotCalled(t, "FindOrCreateDirect", mock.Anything, mock.Anything, mock.Anything)
}

func TestSidebarStripsRequestingUser(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := newConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	convRepo.On("ListDetailsForUser", mock.Anything, testUserID).Return([]repositories.ConversationDetail{directDetail(convID)}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []models.ConversationView `json:"conversations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conversations, 1)
	require.Len(t, resp.Conversations[0].Participants, 1)
	require.Equal(t, "Bob", resp.Conversations[0].Participants[0].FullName)
	convRepo.AssertExpectations(t)
}

func TestDetailRejectsNonParticipant(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := newConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	conv := models.Conversation{ID: convID, Participants: []primitive.ObjectID{testOtherID, testThirdID}}
	convRepo.On("Get", mock.Anything, convID).Return(conv, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+convID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestHideOrLeaveNotFound(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := newConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	convRepo.On("Get", mock.Anything, convID).Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	convRepo.AssertExpectations(t)
}

func TestHideDirectConversation(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	handler := newConversationHandler(convRepo, new(mocks.MessageRepositoryMock), new(mocks.UserRepositoryMock))
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	conv := models.Conversation{ID: convID, Participants: []primitive.ObjectID{testUserID, testOtherID}}
	convRepo.On("Get", mock.Anything, convID).Return(conv, nil).Once()
	convRepo.On("HideForUser", mock.Anything, convID, testUserID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "hidden", resp["status"])
	convRepo.AssertExpectations(t)
}

func TestLeaveGroupHandsOffAdminRole(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := newConversationHandler(convRepo, messageRepo, userRepo)
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	msgID := primitive.NewObjectID()
	conv := models.Conversation{
		ID:           convID,
		IsGroup:      true,
		Participants: []primitive.ObjectID{testUserID, testOtherID, testThirdID},
		GroupAdmin:   testUserID,
	}
	convRepo.On("Get", mock.Anything, convID).Return(conv, nil).Once()
	convRepo.On("RemoveParticipant", mock.Anything, convID, testUserID).Return(nil).Once()
	convRepo.On("SetGroupAdmin", mock.Anything, convID, testUserID, testOtherID).Return(nil).Once()
	userRepo.On("Profiles", mock.Anything, []primitive.ObjectID{testUserID, testOtherID}).Return([]models.UserProfile{
		{ID: testUserID, FullName: "Ann"},
		{ID: testOtherID, FullName: "Bob"},
	}, nil).Once()
	messageRepo.On("Create", mock.Anything, convID, testUserID, models.MessageSystem, "Ann left the group. Bob is the new group admin", "").Return(models.Message{ID: msgID}, nil).Once()
	convRepo.On("AppendMessage", mock.Anything, convID, msgID).Return(nil).Once()
	convRepo.On("GetDetail", mock.Anything, convID).Return(directDetail(convID), nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "left", resp["status"])
	convRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestLeaveGroupAsLastMember(t *testing.T) {
	convRepo := new(mocks.ConversationRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := newConversationHandler(convRepo, messageRepo, userRepo)
	router := setupConversationRouter(handler)

	convID := primitive.NewObjectID()
	msgID := primitive.NewObjectID()
	conv := models.Conversation{
		ID:           convID,
		IsGroup:      true,
		Participants: []primitive.ObjectID{testUserID},
		GroupAdmin:   testUserID,
	}
	convRepo.On("Get", mock.Anything, convID).Return(conv, nil).Once()
	convRepo.On("RemoveParticipant", mock.Anything, convID, testUserID).Return(nil).Once()
	userRepo.On("Profiles", mock.Anything, []primitive.ObjectID{testUserID}).Return([]models.UserProfile{
		{ID: testUserID, FullName: "Ann"},
	}, nil).Once()
	messageRepo.On("Create", mock.Anything, convID, testUserID, models.MessageSystem, "Ann left the group", "").Return(models.Message{ID: msgID}, nil).Once()
	convRepo.On("AppendMessage", mock.Anything, convID, msgID).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/conversations/"+convID.Hex(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	convRepo.AssertExpectations(t)
	convRepo.AssertNotCalled(t, "SetGroupAdmin", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	convRepo.AssertNotCalled(t, "GetDetail", mock.Anything, mock.Anything)
}
