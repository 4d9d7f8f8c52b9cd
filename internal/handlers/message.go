package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/media"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

// MessageHandler manages the message log endpoints.
type MessageHandler struct {
	convRepo    repositories.ConversationRepository
	messageRepo repositories.MessageRepository
	uploader    media.Uploader
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewMessageHandler constructs a MessageHandler.
func NewMessageHandler(convRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository, uploader media.Uploader, hub *ws.Hub, audit *telemetry.AuditEmitter) *MessageHandler {
	return &MessageHandler{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		uploader:    uploader,
		hub:         hub,
		audit:       audit,
	}
}

// List returns the conversation's full log, oldest first.
func (h *MessageHandler) List(c *gin.Context) {
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

	msgs, err := h.messageRepo.ListForConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// Send appends a message to the conversation log and pushes a newMessage
// event to every participant's live connection, including the sender's own
// session.
func (h *MessageHandler) Send(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		Text  string `json:"text"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Text == "" && req.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message text or image is required"})
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

	kind := models.MessageText
	var imageURL string
	if req.Image != "" {
		imageURL, err = h.uploader.Upload(c.Request.Context(), req.Image)
		if err != nil {
			h.emitAudit(c, "ERROR", "message.send", "image upload failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not upload image"})
			return
		}
		kind = models.MessageImage
	}

	msg, err := h.messageRepo.Create(c.Request.Context(), conversationID, userID, kind, req.Text, imageURL)
	if err != nil {
		h.emitAudit(c, "ERROR", "message.send", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	// Linking the message onto the conversation log may fail after the
	// message itself persisted; that inconsistency is logged, not rolled back.
	if err := h.convRepo.AppendMessage(c.Request.Context(), conversationID, msg.ID); err != nil {
		log.Printf("could not link message %s to conversation %s: %v", msg.ID.Hex(), conversationID.Hex(), err)
	}

	h.hub.FanOut(conv.Participants, models.NewMessageEvent(msg))

	h.emitAudit(c, "INFO", "message.send", "Message sent")
	c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) emitAudit(c *gin.Context, level, action, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, action, text, requestIDFromContext(c), userIDFromContext(c))
}
