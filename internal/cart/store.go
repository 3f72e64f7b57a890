package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists one cart per user as JSON in Redis.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore constructs a Store. Carts expire after ttl of inactivity.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(userID string) string {
	return "pos:cart:" + userID
}

// Load returns the user's cart, empty when none is stored.
func (s *Store) Load(ctx context.Context, userID string) (Cart, error) {
	raw, err := s.client.Get(ctx, key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, nil
		}
		return Cart{}, fmt.Errorf("cart: load: %w", err)
	}
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		return Cart{}, fmt.Errorf("cart: decode: %w", err)
	}
	return New(lines), nil
}

// Save stores c, deleting the key when the cart is empty.
func (s *Store) Save(ctx context.Context, userID string, c Cart) error {
	if c.IsEmpty() {
		return s.Clear(ctx, userID)
	}
	data, err := json.Marshal(c.Lines())
	if err != nil {
		return fmt.Errorf("cart: encode: %w", err)
	}
	if err := s.client.Set(ctx, key(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("cart: save: %w", err)
	}
	return nil
}

// Clear removes the user's cart.
func (s *Store) Clear(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, key(userID)).Err(); err != nil {
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}
