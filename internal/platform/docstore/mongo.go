// Package docstore connects to the MongoDB document store.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store holds a connected client and the application database.
type Store struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// New connects to uri and pings the primary.
func New(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, errors.New("platform/docstore: uri required")
	}
	if database == "" {
		return nil, errors.New("platform/docstore: database required")
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOpts := options.Client().ApplyURI(uri).
		SetServerSelectionTimeout(5 * time.Second).
		SetAppName("odyssey-pos")
	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("platform/docstore: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("platform/docstore: ping: %w", err)
	}
	return &Store{Client: client, Database: client.Database(database)}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.Client == nil {
		return nil
	}
	return s.Client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the repositories rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	if s == nil || s.Database == nil {
		return nil
	}
	products := s.Database.Collection("products")
	if _, err := products.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "barcode", Value: 1}}, Options: options.Index().SetSparse(true)},
		{Keys: bson.D{{Key: "category", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("platform/docstore: product indexes: %w", err)
	}
	bills := s.Database.Collection("bills")
	if _, err := bills.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("platform/docstore: bill indexes: %w", err)
	}
	users := s.Database.Collection("users")
	if _, err := users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return fmt.Errorf("platform/docstore: user indexes: %w", err)
	}
	return nil
}
