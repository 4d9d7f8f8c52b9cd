package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"messenger-service/internal/repositories"
)

// currentUserID reads the authenticated identity injected by the auth
// middleware. Responds 401 and returns false when absent or malformed.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing user identity"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// parseConversationID parses the :conversation_id path parameter.
func parseConversationID(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("conversation_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return primitive.NilObjectID, false
	}
	return id, true
}

// displayNames bulk-resolves display names, falling back to the raw id for
// users the profile lookup cannot find.
func displayNames(ctx context.Context, userRepo repositories.UserRepository, ids []primitive.ObjectID) map[primitive.ObjectID]string {
	names := make(map[primitive.ObjectID]string, len(ids))
	for _, id := range ids {
		names[id] = id.Hex()
	}
	profiles, err := userRepo.Profiles(ctx, ids)
	if err != nil {
		return names
	}
	for _, p := range profiles {
		if p.FullName != "" {
			names[p.ID] = p.FullName
		}
	}
	return names
}
