package auth

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
	"github.com/odyssey-erp/odyssey-pos/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	accounts users.Repository
	sessions SessionRepository
	tokens   *Tokens
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a new Service. sessions may be nil when no durable
// session log is kept.
func NewService(accounts users.Repository, sessions SessionRepository, tokens *Tokens, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{accounts: accounts, sessions: sessions, tokens: tokens, logger: logger, now: time.Now}
}

// SignupInput carries the fields of the signup form.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

var validate = validator.New()

func validEmail(email string) bool {
	return validate.Var(email, "required,email,max=254") == nil
}

// Signup creates an account and returns it. The caller chooses the role;
// anything other than Admin becomes Cashier.
func (s *Service) Signup(ctx context.Context, in SignupInput) (users.User, error) {
	email := users.NormalizeEmail(in.Email)
	if !validEmail(email) {
		return users.User{}, ErrInvalidEmail
	}
	hash, err := users.HashPassword(in.Password)
	if err != nil {
		return users.User{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}
	created, err := s.accounts.Create(ctx, users.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         rbac.ParseRole(in.Role),
		Status:       users.StatusActive,
		CreatedAt:    s.now().UTC(),
	})
	if err != nil {
		return users.User{}, err
	}
	s.logger.Info("account created", slog.String("user_id", created.ID), slog.String("role", string(created.Role)))
	return created, nil
}

// Login validates email/password credentials.
func (s *Service) Login(ctx context.Context, email, password string) (users.User, error) {
	email = users.NormalizeEmail(email)
	if !validEmail(email) {
		return users.User{}, ErrInvalidEmail
	}
	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return users.User{}, ErrUserNotFound
		}
		return users.User{}, fmt.Errorf("auth: lookup: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return users.User{}, ErrWrongPassword
	}
	if !user.Active() {
		return users.User{}, ErrInactive
	}
	return user, nil
}

// User returns the account behind an authenticated principal.
func (s *Service) User(ctx context.Context, id string) (users.User, error) {
	return s.accounts.Get(ctx, id)
}

// IssueToken signs a bearer token for user.
func (s *Service) IssueToken(user users.User) (string, time.Time, error) {
	if s.tokens == nil {
		return "", time.Time{}, errors.New("auth: tokens not configured")
	}
	return s.tokens.IssueToken(user)
}

// ParseToken verifies a bearer token.
func (s *Service) ParseToken(raw string) (Claims, error) {
	if s.tokens == nil {
		return Claims{}, ErrInvalidToken
	}
	return s.tokens.ParseToken(raw)
}

// RegisterSession persists the session metadata.
func (s *Service) RegisterSession(ctx context.Context, id, userID string, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		return nil
	}
	return s.sessions.CreateSession(ctx, id, userID, expiresAt, ip, ua)
}

// Logout deletes the durable session record.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if s.sessions == nil || sessionID == "" {
		return nil
	}
	return s.sessions.DeleteSession(ctx, sessionID)
}
