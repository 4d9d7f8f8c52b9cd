package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/views"
	"messenger-service/internal/ws"
)

// ConversationHandler manages the conversation directory endpoints.
type ConversationHandler struct {
	convRepo    repositories.ConversationRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	builder     *views.Builder
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewConversationHandler constructs a ConversationHandler.
func NewConversationHandler(convRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, builder *views.Builder, hub *ws.Hub, audit *telemetry.AuditEmitter) *ConversationHandler {
	return &ConversationHandler{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		builder:     builder,
		hub:         hub,
		audit:       audit,
	}
}

// FindOrCreate returns the unique direct conversation with the receiver,
// creating it when absent. Finding a conversation the requester had hidden
// un-hides it for the requester only.
func (h *ConversationHandler) FindOrCreate(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		ReceiverID string `json:"receiver_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	receiverID, err := primitive.ObjectIDFromHex(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid receiver id"})
		return
	}
	if receiverID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot start a conversation with yourself"})
		return
	}

	conv, created, err := h.convRepo.FindOrCreateDirect(c.Request.Context(), userID, receiverID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	if !created && conv.HiddenForUser(userID) {
		if err := h.convRepo.UnhideForUser(c.Request.Context(), conv.ID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not restore conversation"})
			return
		}
	}

	view, err := h.builder.Detail(c.Request.Context(), conv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.emitAudit(c, "INFO", "conversation.create", "Direct conversation created")
	}
	c.JSON(status, view)
}

// Sidebar returns the caller's visible conversations ordered by recency.
func (h *ConversationHandler) Sidebar(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conversations, err := h.builder.Sidebar(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Detail returns a single resolved conversation.
func (h *ConversationHandler) Detail(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conv, err := h.convRepo.Get(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	view, err := h.builder.Detail(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// HideOrLeave hides a direct conversation for the caller, or removes the
// caller from a group with admin handoff when the departing member held the
// role. The conversation document itself is never deleted.
func (h *ConversationHandler) HideOrLeave(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	conv, err := h.convRepo.Get(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant"})
		return
	}

	if !conv.IsGroup {
		if err := h.convRepo.HideForUser(c.Request.Context(), conversationID, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not hide conversation"})
			return
		}
		h.emitAudit(c, "INFO", "conversation.hide", "Conversation hidden")
		c.JSON(http.StatusOK, gin.H{"status": "hidden"})
		return
	}

	h.leaveGroup(c, conv, userID)
}

func (h *ConversationHandler) leaveGroup(c *gin.Context, conv models.Conversation, userID primitive.ObjectID) {
	remaining := make([]primitive.ObjectID, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p != userID {
			remaining = append(remaining, p)
		}
	}

	if err := h.convRepo.RemoveParticipant(c.Request.Context(), conv.ID, userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not leave group"})
		return
	}

	// Admin handoff goes to the first remaining participant in array order.
	// An empty group keeps its last admin value and is never deleted.
	var newAdmin primitive.ObjectID
	promoted := false
	if conv.GroupAdmin == userID && len(remaining) > 0 {
		newAdmin = remaining[0]
		promoted = true
		if err := h.convRepo.SetGroupAdmin(c.Request.Context(), conv.ID, userID, newAdmin); err != nil {
			log.Printf("admin handoff failed for conversation %s: %v", conv.ID.Hex(), err)
		}
	}

	nameIDs := []primitive.ObjectID{userID}
	if promoted {
		nameIDs = append(nameIDs, newAdmin)
	}
	names := displayNames(c.Request.Context(), h.userRepo, nameIDs)

	text := names[userID] + " left the group"
	if promoted {
		text += ". " + names[newAdmin] + " is the new group admin"
	}
	h.appendSystemMessage(c, conv.ID, userID, text)

	if len(remaining) > 0 {
		if view, err := h.builder.Detail(c.Request.Context(), conv.ID); err != nil {
			log.Printf("could not build conversation view for fan-out: %v", err)
		} else {
			h.hub.FanOut(remaining, models.ConversationUpdatedEvent(view))
		}
	}

	h.emitAudit(c, "INFO", "group.leave", "Member left group")
	c.JSON(http.StatusOK, gin.H{"status": "left"})
}

// appendSystemMessage records a server-synthesized announcement with the
// acting user as sender for audit display. Failures are logged, not rolled
// back: the membership mutation already happened.
func (h *ConversationHandler) appendSystemMessage(c *gin.Context, conversationID, actorID primitive.ObjectID, text string) {
	msg, err := h.messageRepo.Create(c.Request.Context(), conversationID, actorID, models.MessageSystem, text, "")
	if err != nil {
		log.Printf("could not record system message for conversation %s: %v", conversationID.Hex(), err)
		return
	}
	if err := h.convRepo.AppendMessage(c.Request.Context(), conversationID, msg.ID); err != nil {
		log.Printf("could not link system message %s: %v", msg.ID.Hex(), err)
	}
}

func (h *ConversationHandler) emitAudit(c *gin.Context, level, action, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, action, text, requestIDFromContext(c), userIDFromContext(c))
}
