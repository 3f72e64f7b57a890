package ledger

import (
	"context"
	"fmt"
)

// DefaultListLimit bounds the HTTP bill listing.
const DefaultListLimit = 500

// Service exposes the append-only ledger.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append validates and stores a bill.
func (s *Service) Append(ctx context.Context, bill Bill) error {
	if err := bill.Validate(); err != nil {
		return err
	}
	return s.repo.Append(ctx, bill)
}

// List returns bills in creation order. A Limit keeps the newest bills.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Bill, error) {
	if !filter.From.IsZero() && !filter.To.IsZero() && !filter.From.Before(filter.To) {
		return nil, fmt.Errorf("%w: from must precede to", ErrInvalidBill)
	}
	return s.repo.List(ctx, filter)
}

// Get returns a bill by id.
func (s *Service) Get(ctx context.Context, id string) (Bill, error) {
	return s.repo.Get(ctx, id)
}

// Recent returns the newest n bills.
func (s *Service) Recent(ctx context.Context, n int) ([]Bill, error) {
	if n <= 0 {
		return []Bill{}, nil
	}
	return s.repo.Recent(ctx, n)
}
