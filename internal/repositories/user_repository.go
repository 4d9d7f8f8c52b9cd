package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"messenger-service/internal/models"
)

// UserRepository resolves user identities to display-safe profiles. Users are
// owned by the auth layer; this repository only ever reads the projection.
type UserRepository interface {
	Profiles(ctx context.Context, ids []primitive.ObjectID) ([]models.UserProfile, error)
}

// UserRepo is a mongo-backed implementation.
type UserRepo struct {
	users *mongo.Collection
}

// NewUserRepo constructs a UserRepo.
func NewUserRepo(database *mongo.Database) *UserRepo {
	return &UserRepo{users: database.Collection("users")}
}

// Profiles bulk-fetches profiles, preserving the order of the requested ids.
// Unknown ids are silently skipped.
func (r *UserRepo) Profiles(ctx context.Context, ids []primitive.ObjectID) ([]models.UserProfile, error) {
	if len(ids) == 0 {
		return []models.UserProfile{}, nil
	}

	cur, err := r.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"full_name": 1, "profile_pic": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var fetched []models.UserProfile
	if err := cur.All(ctx, &fetched); err != nil {
		return nil, err
	}

	byID := make(map[primitive.ObjectID]models.UserProfile, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	profiles := make([]models.UserProfile, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}
