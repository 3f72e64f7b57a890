package shop

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const profileDocID = "shop"

// MongoRepository stores the profile as a single document in "settings".
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository constructs a document store repository.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{col: database.Collection("settings")}
}

// Load implements Repository.
func (r *MongoRepository) Load(ctx context.Context) (Profile, error) {
	var p Profile
	err := r.col.FindOne(ctx, bson.M{"_id": profileDocID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Profile{}, ErrNotConfigured
	}
	return p, err
}

// Store implements Repository.
func (r *MongoRepository) Store(ctx context.Context, p Profile) error {
	_, err := r.col.UpdateOne(ctx, bson.M{"_id": profileDocID}, bson.M{"$set": p}, options.Update().SetUpsert(true))
	return err
}
