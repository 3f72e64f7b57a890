package shop

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidProfile wraps validation failures.
var ErrInvalidProfile = errors.New("shop: invalid profile")

// Service reads and merges the shop profile.
type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New(), now: time.Now}
}

// Get returns the stored profile, or the defaults.
func (s *Service) Get(ctx context.Context) (Profile, error) {
	p, err := s.repo.Load(ctx)
	if errors.Is(err, ErrNotConfigured) {
		return Defaults(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("shop: load: %w", err)
	}
	if p.Name == "" {
		p.Name = DefaultName
	}
	return p, nil
}

// Save merges patch into the stored profile.
func (s *Service) Save(ctx context.Context, patch Patch) (Profile, error) {
	patch = patch.Trimmed()
	if err := s.validate.Struct(patch); err != nil {
		return Profile{}, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	current, err := s.Get(ctx)
	if err != nil {
		return Profile{}, err
	}
	next := patch.Merge(current)
	next.UpdatedAt = s.now().UTC()
	if err := s.repo.Store(ctx, next); err != nil {
		return Profile{}, fmt.Errorf("shop: store: %w", err)
	}
	return next, nil
}

// Replace overwrites the profile, used by restore.
func (s *Service) Replace(ctx context.Context, profile Profile) error {
	return s.repo.Store(ctx, profile)
}
