package db

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens the Mongo connection and bootstraps indexes.
func Connect(ctx context.Context) (*mongo.Database, error) {
	uri := getEnv("MONGO_URI", "mongodb://localhost:27017")
	name := getEnv("MONGO_DB", "messenger")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	database := client.Database(name)
	if err := ensureIndexes(ctx, database); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return database, nil
}

func ensureIndexes(ctx context.Context, database *mongo.Database) error {
	// Uniqueness over the normalized participant pair turns the concurrent
	// find-or-create race on direct conversations into a detectable conflict.
	_, err := database.Collection("conversations").Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "direct_key", Value: 1}},
			Options: options.Index().
				SetName("direct_key_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"direct_key": bson.M{"$exists": true}}),
		},
		{
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetName("participants_idx"),
		},
	})
	if err != nil {
		return err
	}

	_, err = database.Collection("messages").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
		Options: options.Index().SetName("conversation_created_idx"),
	})
	if err != nil {
		return err
	}

	log.Println("database indexes ensured")
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
