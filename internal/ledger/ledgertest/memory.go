// Package ledgertest provides an in-memory bill repository for tests.
package ledgertest

import (
	"context"
	"sort"
	"sync"

	"github.com/odyssey-erp/odyssey-pos/internal/ledger"
)

// Repository keeps bills in insertion order.
type Repository struct {
	mu    sync.Mutex
	bills []ledger.Bill
	// FailAppend makes Append fail with the given error.
	FailAppend error
}

// New returns a repository seeded with bills.
func New(bills ...ledger.Bill) *Repository {
	return &Repository{bills: append([]ledger.Bill(nil), bills...)}
}

// Count returns the number of stored bills.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bills)
}

// Append implements ledger.Repository.
func (r *Repository) Append(_ context.Context, b ledger.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailAppend != nil {
		return r.FailAppend
	}
	r.bills = append(r.bills, b)
	return nil
}

func (r *Repository) sorted() []ledger.Bill {
	out := append([]ledger.Bill(nil), r.bills...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// List implements ledger.Repository.
func (r *Repository) List(_ context.Context, filter ledger.ListFilter) ([]ledger.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ledger.Bill
	for _, b := range r.sorted() {
		if filter.Match(b) {
			out = append(out, b)
		}
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[len(out)-filter.Limit:]
	}
	return out, nil
}

// Get implements ledger.Repository.
func (r *Repository) Get(_ context.Context, id string) (ledger.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bills {
		if b.ID == id {
			return b, nil
		}
	}
	return ledger.Bill{}, ledger.ErrNotFound
}

// Recent implements ledger.Repository.
func (r *Repository) Recent(_ context.Context, n int) ([]ledger.Bill, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := r.sorted()
	out := make([]ledger.Bill, 0, n)
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

// Upsert implements ledger.Repository.
func (r *Repository) Upsert(_ context.Context, b ledger.Bill) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.bills {
		if r.bills[i].ID == b.ID {
			r.bills[i] = b
			return nil
		}
	}
	r.bills = append(r.bills, b)
	return nil
}

var _ ledger.Repository = (*Repository)(nil)
