// Package userstest provides an in-memory user repository for tests.
package userstest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

// Repository implements users.Repository over a map.
type Repository struct {
	mu    sync.Mutex
	users map[string]users.User
}

// New returns a repository seeded with accounts.
func New(seed ...users.User) *Repository {
	r := &Repository{users: make(map[string]users.User)}
	for _, u := range seed {
		u.Email = users.NormalizeEmail(u.Email)
		r.users[u.ID] = u
	}
	return r
}

// Count returns the number of stored accounts.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

func (r *Repository) List(_ context.Context, filter users.Filter) ([]users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []users.User
	for _, u := range r.users {
		if filter.Match(u) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Email < out[j].Email
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (r *Repository) Get(_ context.Context, id string) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	return u, nil
}

func (r *Repository) FindByEmail(_ context.Context, email string) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	email = users.NormalizeEmail(email)
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return users.User{}, users.ErrNotFound
}

func (r *Repository) Create(_ context.Context, u users.User) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = users.NormalizeEmail(u.Email)
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return users.User{}, users.ErrEmailInUse
		}
	}
	u.UpdatedAt = u.CreatedAt
	r.users[u.ID] = u
	return u, nil
}

func (r *Repository) Update(_ context.Context, u users.User) (users.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.users[u.ID]
	if !ok {
		return users.User{}, users.ErrNotFound
	}
	u.Email = current.Email
	u.CreatedAt = current.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.users[u.ID] = u
	return u, nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return users.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

func (r *Repository) Upsert(_ context.Context, u users.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Email = users.NormalizeEmail(u.Email)
	r.users[u.ID] = u
	return nil
}

var _ users.Repository = (*Repository)(nil)
