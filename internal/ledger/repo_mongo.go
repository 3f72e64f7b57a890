package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepository stores bills in the "bills" collection.
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository constructs a document store repository.
func NewMongoRepository(database *mongo.Database) *MongoRepository {
	return &MongoRepository{col: database.Collection("bills")}
}

// Append inserts a bill.
func (r *MongoRepository) Append(ctx context.Context, b Bill) error {
	if _, err := r.col.InsertOne(ctx, b); err != nil {
		return fmt.Errorf("ledger: append: %w", err)
	}
	return nil
}

// List returns bills oldest first. With a limit, the newest bills are kept.
func (r *MongoRepository) List(ctx context.Context, filter ListFilter) ([]Bill, error) {
	query := bson.M{}
	window := bson.M{}
	if !filter.From.IsZero() {
		window["$gte"] = filter.From
	}
	if !filter.To.IsZero() {
		window["$lt"] = filter.To
	}
	if len(window) > 0 {
		query["createdAt"] = window
	}
	if filter.Limit <= 0 {
		return r.find(ctx, query, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(filter.Limit))
	bills, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	slices.Reverse(bills)
	return bills, nil
}

// Get fetches a bill by id.
func (r *MongoRepository) Get(ctx context.Context, id string) (Bill, error) {
	var b Bill
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Bill{}, ErrNotFound
		}
		return Bill{}, fmt.Errorf("ledger: get: %w", err)
	}
	return b, nil
}

// Recent returns the newest n bills.
func (r *MongoRepository) Recent(ctx context.Context, n int) ([]Bill, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(n))
	return r.find(ctx, bson.M{}, opts)
}

// Upsert writes the bill by id.
func (r *MongoRepository) Upsert(ctx context.Context, b Bill) error {
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": b.ID}, b, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("ledger: upsert: %w", err)
	}
	return nil
}

func (r *MongoRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]Bill, error) {
	cur, err := r.col.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("ledger: find: %w", err)
	}
	var out []Bill
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("ledger: decode: %w", err)
	}
	return out, nil
}

var _ Repository = (*MongoRepository)(nil)
