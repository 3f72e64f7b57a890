// Package catalogtest provides an in-memory catalog repository for tests.
package catalogtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/catalog"
)

// Repository is a mutex guarded map implementing catalog.Repository.
type Repository struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	// FailWrites makes every stock write fail with the given error.
	FailWrites error
	// BeforeRead runs at the start of GetMany, outside the lock.
	BeforeRead func()
}

// New returns a repository seeded with products.
func New(products ...catalog.Product) *Repository {
	r := &Repository{products: make(map[string]catalog.Product)}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

// Quantity returns the stored quantity of id, or -1 when absent.
func (r *Repository) Quantity(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return -1
	}
	return p.Quantity
}

// List implements catalog.Repository.
func (r *Repository) List(_ context.Context, filter catalog.Filter) ([]catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catalog.Product
	for _, p := range r.products {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Get implements catalog.Repository.
func (r *Repository) Get(_ context.Context, id string) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

// GetMany implements catalog.Repository.
func (r *Repository) GetMany(_ context.Context, ids []string) (map[string]catalog.Product, error) {
	if r.BeforeRead != nil {
		r.BeforeRead()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]catalog.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// FindByBarcode implements catalog.Repository.
func (r *Repository) FindByBarcode(_ context.Context, code string) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Barcode == code {
			return p, nil
		}
	}
	return catalog.Product{}, catalog.ErrNotFound
}

// Categories implements catalog.Repository.
func (r *Repository) Categories(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := map[string]struct{}{}
	var out []string
	for _, p := range r.products {
		if p.Category == "" {
			continue
		}
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	sort.Strings(out)
	return out, nil
}

// Create implements catalog.Repository.
func (r *Repository) Create(_ context.Context, p catalog.Product) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return p, nil
}

// Update implements catalog.Repository.
func (r *Repository) Update(_ context.Context, id string, patch catalog.Patch) (catalog.Product, catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	before, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.Product{}, catalog.ErrNotFound
	}
	after := patch.Apply(before)
	after.UpdatedAt = time.Now().UTC()
	r.products[id] = after
	return before, after, nil
}

// Delete implements catalog.Repository.
func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

// DecrementIfAvailable implements catalog.Repository.
func (r *Repository) DecrementIfAvailable(_ context.Context, id string, qty int) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return catalog.Product{}, r.FailWrites
	}
	p, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if p.Quantity < qty {
		return catalog.Product{}, catalog.ErrInsufficientStock
	}
	p.Quantity -= qty
	r.products[id] = p
	return p, nil
}

// SetQuantity implements catalog.Repository.
func (r *Repository) SetQuantity(_ context.Context, id string, qty int) (catalog.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWrites != nil {
		return catalog.Product{}, r.FailWrites
	}
	p, ok := r.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	p.Quantity = qty
	r.products[id] = p
	return p, nil
}

// Upsert implements catalog.Repository.
func (r *Repository) Upsert(_ context.Context, p catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

var _ catalog.Repository = (*Repository)(nil)
