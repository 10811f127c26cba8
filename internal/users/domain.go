// Package users implements user accounts: credential storage, the account
// lifecycle from registration through email verification to password reset,
// and the business rules guarding login.
package users

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's access level. Roles are checked by set membership only
// and are never ordered.
type Role string

// Valid roles, matching the user_role database enum.
const (
	RoleAdmin       Role = "admin"
	RoleEditor      Role = "editor"
	RoleAuthor      Role = "author"
	RoleContributor Role = "contributor"
	RoleSubscriber  Role = "subscriber"
)

// ParseRole maps a stored string to a Role, reporting whether it is known.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleEditor, RoleAuthor, RoleContributor, RoleSubscriber:
		return Role(s), true
	}
	return "", false
}

// User is the persisted account entity. Rows are mutated only through the
// Repository; the password hash never leaves this package in a response.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string

	DisplayName   *string
	Bio           *string
	AvatarURL     *string
	SocialTwitter *string
	SocialGithub  *string
	WebsiteURL    *string

	Role          Role
	IsActive      bool
	EmailVerified bool

	// A token and its expiry are either both set or both absent. The pair
	// is cleared atomically when the token is consumed.
	EmailVerificationToken     *string
	EmailVerificationExpiresAt *time.Time
	PasswordResetToken         *string
	PasswordResetExpiresAt     *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanWrite reports whether the user may create or edit content.
func (u *User) CanWrite() bool {
	return u.Role == RoleAdmin || u.Role == RoleEditor || u.Role == RoleAuthor
}

// DisplayNameOrUsername falls back to the username when no display name is set.
func (u *User) DisplayNameOrUsername() string {
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}
