package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// SessionRepository keeps a durable record of login sessions for auditing.
type SessionRepository interface {
	CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGSessions implements SessionRepository using PostgreSQL.
type PGSessions struct {
	pool *pgxpool.Pool
}

// NewPGSessions constructs a PostgreSQL session log.
func NewPGSessions(pool *pgxpool.Pool) *PGSessions {
	return &PGSessions{pool: pool}
}

// CreateSession persists a new login session.
func (r *PGSessions) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua)
VALUES ($1, $2, NOW(), $3, NULLIF($4, ''), NULLIF($5, ''))`, id, userID, expiresAt.UTC(), ip, ua)
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (r *PGSessions) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

// MongoSessions implements SessionRepository on the "sessions" collection.
type MongoSessions struct {
	col *mongo.Collection
}

// NewMongoSessions constructs a document store session log.
func NewMongoSessions(database *mongo.Database) *MongoSessions {
	return &MongoSessions{col: database.Collection("sessions")}
}

// CreateSession persists a new login session.
func (r *MongoSessions) CreateSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	_, err := r.col.InsertOne(ctx, bson.M{
		"_id":       id,
		"userId":    userID,
		"createdAt": time.Now().UTC(),
		"expiresAt": expiresAt.UTC(),
		"ip":        ip,
		"ua":        ua,
	})
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	return nil
}

// DeleteSession removes a session record.
func (r *MongoSessions) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("auth: delete session: %w", err)
	}
	return nil
}

var (
	_ SessionRepository = (*PGSessions)(nil)
	_ SessionRepository = (*MongoSessions)(nil)
)
