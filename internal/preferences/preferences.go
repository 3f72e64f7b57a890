// Package preferences stores per-user display and billing flags in Redis.
package preferences

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	fieldTaxEnabled = "taxEnabled"
	fieldDarkMode   = "darkMode"
)

// ErrUserRequired indicates a missing user id.
var ErrUserRequired = errors.New("preferences: user id required")

// Preferences holds the flags for one user.
type Preferences struct {
	TaxEnabled bool `json:"taxEnabled"`
	DarkMode   bool `json:"darkMode"`
}

// Defaults returns the preferences of a user who never saved any.
func Defaults() Preferences {
	return Preferences{TaxEnabled: true, DarkMode: false}
}

// Patch carries optional updates.
type Patch struct {
	TaxEnabled *bool `json:"taxEnabled,omitempty"`
	DarkMode   *bool `json:"darkMode,omitempty"`
}

// Store persists preferences in a Redis hash per user.
type Store struct {
	client *redis.Client
}

// NewStore constructs a Store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func key(userID string) string {
	return "pos:prefs:" + userID
}

// Get returns the stored preferences merged over the defaults.
func (s *Store) Get(ctx context.Context, userID string) (Preferences, error) {
	if userID == "" {
		return Preferences{}, ErrUserRequired
	}
	prefs := Defaults()
	values, err := s.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return Preferences{}, fmt.Errorf("preferences: get: %w", err)
	}
	if raw, ok := values[fieldTaxEnabled]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			prefs.TaxEnabled = v
		}
	}
	if raw, ok := values[fieldDarkMode]; ok {
		if v, err := strconv.ParseBool(raw); err == nil {
			prefs.DarkMode = v
		}
	}
	return prefs, nil
}

// Set applies patch and returns the resulting preferences.
func (s *Store) Set(ctx context.Context, userID string, patch Patch) (Preferences, error) {
	if userID == "" {
		return Preferences{}, ErrUserRequired
	}
	fields := map[string]any{}
	if patch.TaxEnabled != nil {
		fields[fieldTaxEnabled] = strconv.FormatBool(*patch.TaxEnabled)
	}
	if patch.DarkMode != nil {
		fields[fieldDarkMode] = strconv.FormatBool(*patch.DarkMode)
	}
	if len(fields) > 0 {
		if err := s.client.HSet(ctx, key(userID), fields).Err(); err != nil {
			return Preferences{}, fmt.Errorf("preferences: set: %w", err)
		}
	}
	return s.Get(ctx, userID)
}

// TaxEnabled reports the tax flag for userID.
func (s *Store) TaxEnabled(ctx context.Context, userID string) (bool, error) {
	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return prefs.TaxEnabled, nil
}
