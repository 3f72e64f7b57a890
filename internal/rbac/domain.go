package rbac

import (
	"strings"

	"github.com/odyssey-erp/odyssey-pos/internal/shared"
)

// Role is a fixed permission grouping.
type Role string

const (
	// RoleAdmin holds every permission.
	RoleAdmin Role = "Admin"
	// RoleCashier may only sell.
	RoleCashier Role = "Cashier"
)

// ParseRole normalises raw into a known role. Unknown values fall back to Cashier.
func ParseRole(raw string) Role {
	if strings.EqualFold(strings.TrimSpace(raw), string(RoleAdmin)) {
		return RoleAdmin
	}
	return RoleCashier
}

// Valid reports whether r names a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleCashier
}

var rolePermissions = map[Role][]string{
	RoleAdmin:   shared.POSScopes(),
	RoleCashier: {shared.PermSell},
}

// Permissions returns the permissions granted to role.
func Permissions(role Role) []string {
	perms := rolePermissions[role]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// Can reports whether role grants perm.
func Can(role Role, perm string) bool {
	perm = strings.ToLower(strings.TrimSpace(perm))
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
