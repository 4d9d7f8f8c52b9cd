package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a direct or group conversation document.
//
// Group fields (GroupName, GroupPic, GroupAdmin) are only meaningful when
// IsGroup is set. HiddenFor tracks users that removed the conversation from
// their own sidebar; the document itself is never deleted. DirectKey is the
// normalized sorted participant pair for non-group conversations and backs
// the uniqueness index on direct pairs.
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	IsGroup      bool                 `bson:"is_group" json:"is_group"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	Messages     []primitive.ObjectID `bson:"messages" json:"-"`
	GroupName    string               `bson:"group_name,omitempty" json:"group_name,omitempty"`
	GroupPic     string               `bson:"group_pic,omitempty" json:"group_pic,omitempty"`
	GroupAdmin   primitive.ObjectID   `bson:"group_admin,omitempty" json:"group_admin,omitempty"`
	HiddenFor    []primitive.ObjectID `bson:"hidden_for,omitempty" json:"-"`
	DirectKey    string               `bson:"direct_key,omitempty" json:"-"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// HasParticipant reports whether the user belongs to the conversation.
func (c Conversation) HasParticipant(userID primitive.ObjectID) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}

// HiddenForUser reports whether the user hid the conversation.
func (c Conversation) HiddenForUser(userID primitive.ObjectID) bool {
	for _, h := range c.HiddenFor {
		if h == userID {
			return true
		}
	}
	return false
}

// ConversationView is the client-facing conversation representation with
// participants resolved to display-safe profiles and the most recent
// message attached.
type ConversationView struct {
	ID           string        `json:"id"`
	IsGroup      bool          `json:"is_group"`
	Participants []UserProfile `json:"participants"`
	GroupName    string        `json:"group_name,omitempty"`
	GroupPic     string        `json:"group_pic,omitempty"`
	GroupAdmin   string        `json:"group_admin,omitempty"`
	LastMessage  *Message      `json:"last_message,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}
