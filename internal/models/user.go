package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// UserProfile is the display-safe projection of a user document. Credential
// fields are never projected out of storage.
type UserProfile struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	FullName   string             `bson:"full_name" json:"full_name"`
	ProfilePic string             `bson:"profile_pic,omitempty" json:"profile_pic,omitempty"`
}
