package rbac

import (
	"context"
	"errors"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// ErrUnknownRole indicates the user's stored role is not recognised.
var ErrUnknownRole = errors.New("rbac: unknown role")

// RoleLookup resolves the current role of a user. Roles can change after a
// session was issued, so the middleware consults the store when one is wired.
type RoleLookup interface {
	RoleOf(ctx context.Context, userID string) (string, error)
}

// Service resolves effective permissions.
type Service struct {
	lookup RoleLookup
}

// NewService constructs the service. lookup may be nil, in which case the
// role carried by the principal is trusted.
func NewService(lookup RoleLookup) *Service {
	return &Service{lookup: lookup}
}

// EffectivePermissions returns the permissions held by principal.
func (s *Service) EffectivePermissions(ctx context.Context, principal shared.Principal) ([]string, error) {
	role := Role(principal.Role)
	if s != nil && s.lookup != nil {
		raw, err := s.lookup.RoleOf(ctx, principal.UserID)
		if err != nil {
			return nil, err
		}
		role = Role(raw)
	}
	if !role.Valid() {
		return nil, ErrUnknownRole
	}
	return Permissions(role), nil
}
