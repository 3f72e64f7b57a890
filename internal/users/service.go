package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-pos/internal/rbac"
	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// ErrDisabled is returned by RoleOf for accounts that may no longer act.
var ErrDisabled = errors.New("users: account disabled")

// HashPassword checks the minimum length and returns a bcrypt hash.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("users: hash password: %w", err)
	}
	return string(hash), nil
}

// Service handles user business logic.
type Service struct {
	repo     Repository
	validate *validator.Validate
	audit    shared.AuditRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// ServiceOption customises Service.
type ServiceOption func(*Service)

// WithAudit records account changes.
func WithAudit(recorder shared.AuditRecorder) ServiceOption {
	return func(s *Service) { s.audit = recorder }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// NewService builds Service instance.
func NewService(repo Repository, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{repo: repo, validate: validator.New(), logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns users matching filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]User, error) {
	return s.repo.List(ctx, filter)
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.Get(ctx, id)
}

// Add creates an account with the given password. A missing role means Cashier.
func (s *Service) Add(ctx context.Context, actorID string, in Input, password string) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return User{}, err
	}
	user := User{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         rbac.ParseRole(in.Role),
		Status:       StatusActive,
		CreatedAt:    s.now().UTC(),
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return User{}, err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actorID,
		Action:   "user.create",
		Entity:   "user",
		EntityID: created.ID,
		Meta:     map[string]any{"email": created.Email, "role": string(created.Role)},
	})
	return created, nil
}

// Update applies patch. The email stays as registered.
func (s *Service) Update(ctx context.Context, actorID, id string, patch Patch) (User, error) {
	if err := s.validate.Struct(patch); err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrInvalidUser, err)
	}
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	next := patch.Apply(current)
	if strings.TrimSpace(next.Name) == "" {
		return User{}, fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	if patch.Password != nil {
		hash, err := HashPassword(*patch.Password)
		if err != nil {
			return User{}, err
		}
		next.PasswordHash = hash
	}
	updated, err := s.repo.Update(ctx, next)
	if err != nil {
		return User{}, err
	}
	meta := map[string]any{}
	if current.Role != updated.Role {
		meta["role"] = string(updated.Role)
	}
	if current.Status != updated.Status {
		meta["status"] = string(updated.Status)
	}
	if patch.Password != nil {
		meta["password"] = "changed"
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actorID,
		Action:   "user.update",
		Entity:   "user",
		EntityID: id,
		Meta:     meta,
	})
	return updated, nil
}

// Delete removes an account other than the actor's own.
func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if actorID != "" && actorID == id {
		return ErrSelfDelete
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	shared.RecordAudit(ctx, s.audit, s.logger, shared.AuditLog{
		ActorID:  actorID,
		Action:   "user.delete",
		Entity:   "user",
		EntityID: id,
	})
	return nil
}

// RoleOf satisfies rbac.RoleLookup so role changes apply to live sessions.
func (s *Service) RoleOf(ctx context.Context, userID string) (string, error) {
	u, err := s.repo.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if !u.Active() {
		return "", ErrDisabled
	}
	return string(u.Role), nil
}

var _ rbac.RoleLookup = (*Service)(nil)
