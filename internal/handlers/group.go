package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/media"
	"messenger-service/internal/models"
	"messenger-service/internal/repositories"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/views"
	"messenger-service/internal/ws"
)

// GroupHandler manages group conversation endpoints.
type GroupHandler struct {
	convRepo    repositories.ConversationRepository
	messageRepo repositories.MessageRepository
	userRepo    repositories.UserRepository
	uploader    media.Uploader
	builder     *views.Builder
	hub         *ws.Hub
	audit       *telemetry.AuditEmitter
}

// NewGroupHandler constructs a GroupHandler.
func NewGroupHandler(convRepo repositories.ConversationRepository, messageRepo repositories.MessageRepository, userRepo repositories.UserRepository, uploader media.Uploader, builder *views.Builder, hub *ws.Hub, audit *telemetry.AuditEmitter) *GroupHandler {
	return &GroupHandler{
		convRepo:    convRepo,
		messageRepo: messageRepo,
		userRepo:    userRepo,
		uploader:    uploader,
		builder:     builder,
		hub:         hub,
		audit:       audit,
	}
}

// Create handles POST /groups. A group needs a name and at least two other
// participants, giving a minimum size of three including the admin.
func (h *GroupHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		GroupName      string   `json:"group_name"`
		ParticipantIDs []string `json:"participant_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.emitAudit(c, "ERROR", "group.create", "invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if strings.TrimSpace(req.GroupName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name is required"})
		return
	}
	if len(req.ParticipantIDs) < 2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a group needs at least 2 other members"})
		return
	}

	participantIDs := make([]primitive.ObjectID, 0, len(req.ParticipantIDs))
	for _, raw := range req.ParticipantIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid participant id"})
			return
		}
		participantIDs = append(participantIDs, id)
	}

	conv, err := h.convRepo.CreateGroup(c.Request.Context(), userID, strings.TrimSpace(req.GroupName), participantIDs)
	if err != nil {
		h.emitAudit(c, "ERROR", "group.create", "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create group"})
		return
	}

	view, err := h.builder.Detail(c.Request.Context(), conv.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.emitAudit(c, "INFO", "group.create", "Group created")
	c.JSON(http.StatusCreated, view)
}

// UpdateDetails handles PUT /groups/:conversation_id/update. Only supplied
// fields change; a picture payload is resolved through the media uploader
// before persistence.
func (h *GroupHandler) UpdateDetails(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		GroupName *string `json:"group_name"`
		GroupPic  *string `json:"group_pic"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.GroupName == nil && req.GroupPic == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "nothing to update"})
		return
	}
	if req.GroupName != nil && strings.TrimSpace(*req.GroupName) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group name cannot be empty"})
		return
	}

	var picURL *string
	if req.GroupPic != nil {
		url, err := h.uploader.Upload(c.Request.Context(), *req.GroupPic)
		if err != nil {
			h.emitAudit(c, "ERROR", "group.update", "picture upload failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "could not upload group picture"})
			return
		}
		picURL = &url
	}

	if err := h.convRepo.SetGroupDetails(c.Request.Context(), conversationID, userID, req.GroupName, picURL); err != nil {
		h.respondMutationError(c, "group.update", err)
		return
	}

	view, err := h.builder.Detail(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.fanOutToParticipants(c, conversationID, models.ConversationUpdatedEvent(view))
	h.emitAudit(c, "INFO", "group.update", "Group details updated")
	c.JSON(http.StatusOK, view)
}

// AddMembers handles POST /groups/:conversation_id/add-members. Existing
// members get a conversationUpdated event; the new members receive a
// distinct addedToGroup event so their sidebars insert the conversation.
func (h *GroupHandler) AddMembers(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		MemberIDs []string `json:"member_ids" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.MemberIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "member ids are required"})
		return
	}

	memberIDs := make([]primitive.ObjectID, 0, len(req.MemberIDs))
	for _, raw := range req.MemberIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
			return
		}
		memberIDs = append(memberIDs, id)
	}

	// Snapshot the prior roster so the two event audiences can be told apart.
	before, err := h.convRepo.Get(c.Request.Context(), conversationID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}

	if err := h.convRepo.AddMembers(c.Request.Context(), conversationID, userID, memberIDs); err != nil {
		h.respondMutationError(c, "group.add_members", err)
		return
	}

	added := make([]primitive.ObjectID, 0, len(memberIDs))
	for _, id := range memberIDs {
		if !before.HasParticipant(id) {
			added = append(added, id)
		}
	}

	if len(added) > 0 {
		names := displayNames(c.Request.Context(), h.userRepo, append([]primitive.ObjectID{userID}, added...))
		addedNames := make([]string, 0, len(added))
		for _, id := range added {
			addedNames = append(addedNames, names[id])
		}
		text := names[userID] + " added " + strings.Join(addedNames, ", ") + " to the group"
		h.appendSystemMessage(c, conversationID, userID, text)
	}

	view, err := h.builder.Detail(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.hub.FanOut(before.Participants, models.ConversationUpdatedEvent(view))
	for _, id := range added {
		h.hub.SendToUser(id.Hex(), models.AddedToGroupEvent(view))
	}

	h.emitAudit(c, "INFO", "group.add_members", "Members added to group")
	c.JSON(http.StatusOK, view)
}

// RemoveMember handles POST /groups/:conversation_id/remove-member. The
// admin cannot remove themselves through this path; that is the leave flow.
func (h *GroupHandler) RemoveMember(c *gin.Context) {
	conversationID, ok := parseConversationID(c)
	if !ok {
		return
	}
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req struct {
		MemberID string `json:"member_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid member id"})
		return
	}
	if memberID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "admin cannot remove themselves"})
		return
	}

	if err := h.convRepo.RemoveMember(c.Request.Context(), conversationID, userID, memberID); err != nil {
		h.respondMutationError(c, "group.remove_member", err)
		return
	}

	names := displayNames(c.Request.Context(), h.userRepo, []primitive.ObjectID{userID, memberID})
	h.appendSystemMessage(c, conversationID, userID, names[userID]+" removed "+names[memberID]+" from the group")

	view, err := h.builder.Detail(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load group"})
		return
	}

	h.fanOutToParticipants(c, conversationID, models.ConversationUpdatedEvent(view))
	h.hub.SendToUser(memberID.Hex(), models.RemovedFromGroupEvent(conversationID.Hex()))

	h.emitAudit(c, "INFO", "group.remove_member", "Member removed from group")
	c.JSON(http.StatusOK, view)
}

func (h *GroupHandler) respondMutationError(c *gin.Context, action string, err error) {
	switch {
	case errors.Is(err, repositories.ErrConversationNotFound):
		h.emitAudit(c, "ERROR", action, "conversation not found")
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
	case errors.Is(err, repositories.ErrNotGroupAdmin):
		h.emitAudit(c, "ERROR", action, "not allowed")
		c.JSON(http.StatusForbidden, gin.H{"error": "only the group admin may do this"})
	default:
		h.emitAudit(c, "ERROR", action, "internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not update group"})
	}
}

// fanOutToParticipants delivers the event to the conversation's current
// roster; a stale read here only narrows the best-effort audience.
func (h *GroupHandler) fanOutToParticipants(c *gin.Context, conversationID primitive.ObjectID, event models.Event) {
	conv, err := h.convRepo.Get(c.Request.Context(), conversationID)
	if err != nil {
		log.Printf("could not load participants for fan-out: %v", err)
		return
	}
	h.hub.FanOut(conv.Participants, event)
}

func (h *GroupHandler) appendSystemMessage(c *gin.Context, conversationID, actorID primitive.ObjectID, text string) {
	msg, err := h.messageRepo.Create(c.Request.Context(), conversationID, actorID, models.MessageSystem, text, "")
	if err != nil {
		log.Printf("could not record system message for conversation %s: %v", conversationID.Hex(), err)
		return
	}
	if err := h.convRepo.AppendMessage(c.Request.Context(), conversationID, msg.ID); err != nil {
		log.Printf("could not link system message %s: %v", msg.ID.Hex(), err)
	}
}

func (h *GroupHandler) emitAudit(c *gin.Context, level, action, text string) {
	if h.audit == nil {
		return
	}
	h.audit.Emit(c.Request.Context(), level, action, text, requestIDFromContext(c), userIDFromContext(c))
}
