package users

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores users in the "users" collection. A unique index on
// email is created by docstore.EnsureIndexes.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository constructs a document store repository.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{col: database.Collection("users")}
}

// List returns users ordered by name.
func (r *MongoRepository) List(ctx context.Context, filter Filter) ([]User, error) {
	query := bson.M{}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(term), "$options": "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"email": pattern}}
	}
	if filter.Role != "" {
		query["role"] = string(filter.Role)
	}
	cur, err := r.col.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "email", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("users: list: %w", err)
	}
	var out []User
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("users: decode list: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) findOne(ctx context.Context, filter bson.M) (User, error) {
	var u User
	if err := r.col.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

// Get fetches a user by id.
func (r *MongoRepository) Get(ctx context.Context, id string) (User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByEmail fetches a user by normalised email.
func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, bson.M{"email": NormalizeEmail(email)})
}

// Create inserts a user.
func (r *MongoRepository) Create(ctx context.Context, u User) (User, error) {
	u.Email = NormalizeEmail(u.Email)
	u.UpdatedAt = u.CreatedAt
	if _, err := r.col.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return User{}, ErrEmailInUse
		}
		return User{}, fmt.Errorf("users: create: %w", err)
	}
	return u, nil
}

// Update writes the mutable fields of u.
func (r *MongoRepository) Update(ctx context.Context, u User) (User, error) {
	set := bson.M{
		"name":         u.Name,
		"passwordHash": u.PasswordHash,
		"role":         string(u.Role),
		"status":       string(u.Status),
		"updatedAt":    time.Now().UTC(),
	}
	var updated User
	err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("users: update: %w", err)
	}
	return updated, nil
}

// Delete removes a user.
func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("users: delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert replaces the document by id, inserting when missing.
func (r *MongoRepository) Upsert(ctx context.Context, u User) error {
	u.Email = NormalizeEmail(u.Email)
	if _, err := r.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("users: upsert: %w", err)
	}
	return nil
}

var _ Repository = (*MongoRepository)(nil)
