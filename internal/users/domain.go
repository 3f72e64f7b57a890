package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
)

// MinPasswordLength is the shortest password accepted for an account.
const MinPasswordLength = 6

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("users: user not found")
	// ErrEmailInUse indicates another account already owns the email.
	ErrEmailInUse = errors.New("users: email already in use")
	// ErrWeakPassword indicates the password is shorter than MinPasswordLength.
	ErrWeakPassword = errors.New("users: password too short")
	// ErrSelfDelete prevents an admin from removing their own account.
	ErrSelfDelete = errors.New("users: cannot delete own account")
	// ErrInvalidUser wraps validation failures.
	ErrInvalidUser = errors.New("users: invalid user")
)

// Status marks whether an account may sign in.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// User is a staff account.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"passwordHash"`
	Role         rbac.Role `json:"role" bson:"role"`
	Status       Status    `json:"status" bson:"status"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Active reports whether the account may sign in.
func (u User) Active() bool {
	return u.Status != StatusDisabled
}

// NormalizeEmail lowercases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Filter narrows user listings.
type Filter struct {
	Search string
	Role   rbac.Role
}

// Match reports whether u satisfies the filter.
func (f Filter) Match(u User) bool {
	if term := strings.ToLower(strings.TrimSpace(f.Search)); term != "" {
		if !strings.Contains(strings.ToLower(u.Name), term) && !strings.Contains(strings.ToLower(u.Email), term) {
			return false
		}
	}
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	return true
}

// Input carries the fields of a new account.
type Input struct {
	Name  string `json:"name" validate:"required,max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
	Role  string `json:"role" validate:"omitempty,oneof=Admin Cashier"`
}

// Patch carries a partial account update. The email is not editable.
type Patch struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=Admin Cashier"`
	Status   *string `json:"status,omitempty" validate:"omitempty,oneof=active disabled"`
	Password *string `json:"password,omitempty"`
}

// Apply returns a copy of u with the non-password fields applied.
func (p Patch) Apply(u User) User {
	if p.Name != nil {
		u.Name = strings.TrimSpace(*p.Name)
	}
	if p.Role != nil {
		u.Role = rbac.ParseRole(*p.Role)
	}
	if p.Status != nil {
		u.Status = Status(*p.Status)
	}
	return u
}

// Repository persists accounts.
type Repository interface {
	List(ctx context.Context, filter Filter) ([]User, error)
	Get(ctx context.Context, id string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	// Create returns ErrEmailInUse when the email is taken.
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	Delete(ctx context.Context, id string) error
	Upsert(ctx context.Context, user User) error
}
