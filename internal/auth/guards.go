package auth

import (
	"github.com/inkpress/inkpress/internal/shared"
	"github.com/inkpress/inkpress/internal/users"
)

// RequireAdmin permits only the admin role.
func RequireAdmin(user CurrentUser) error {
	if user.Role != users.RoleAdmin {
		return shared.ErrForbidden
	}
	return nil
}

// RequireRoles permits the identity when its role is a member of the allowed
// set. Membership is the only comparison; roles carry no ordering.
func RequireRoles(user CurrentUser, allowed ...users.Role) error {
	for _, role := range allowed {
		if user.Role == role {
			return nil
		}
	}
	return shared.ErrForbidden
}
