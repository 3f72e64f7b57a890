package shared

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-pos/internal/platform/db"
)

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyGuard claims request keys so duplicates can be rejected.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// IdempotencyStore persists processed keys.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

func validateKey(key, module string) error {
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	return nil
}

// CheckAndInsert ensures key uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if err := validateKey(key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, key, module, time.Now())
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Cleanup removes entries older than retention.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}

// Delete removes a key, typically used to roll back failed processing.
func (s *IdempotencyStore) Delete(ctx context.Context, key, module string) error {
	if s == nil {
		return nil
	}
	if err := validateKey(key, module); err != nil {
		return err
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1 AND module = $2`, key, module)
	return err
}

// RedisIdempotency claims keys with SETNX and a retention TTL.
type RedisIdempotency struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisIdempotency constructs a Redis backed guard.
func NewRedisIdempotency(client *redis.Client, ttl time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotency{client: client, ttl: ttl}
}

func (s *RedisIdempotency) redisKey(key, module string) string {
	return "idem:" + module + ":" + key
}

// CheckAndInsert claims the key or returns ErrIdempotencyConflict.
func (s *RedisIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if err := validateKey(key, module); err != nil {
		return err
	}
	ok, err := s.client.SetNX(ctx, s.redisKey(key, module), time.Now().UTC().Format(time.RFC3339), s.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Delete releases a claimed key.
func (s *RedisIdempotency) Delete(ctx context.Context, key, module string) error {
	if err := validateKey(key, module); err != nil {
		return err
	}
	return s.client.Del(ctx, s.redisKey(key, module)).Err()
}

var (
	_ IdempotencyGuard = (*IdempotencyStore)(nil)
	_ IdempotencyGuard = (*RedisIdempotency)(nil)
)
