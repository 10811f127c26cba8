// Package auth exposes the HTTP authentication surface: registration and
// login flows, session identity resolution, and role guards for protected
// routes.
package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkpress/inkpress/internal/shared"
	"github.com/inkpress/inkpress/internal/users"
)

// CurrentUser is the typed identity reconstructed from session claims.
type CurrentUser struct {
	ID       uuid.UUID
	Username string
	Role     users.Role
}

// CurrentUserFromSession assembles the identity from the three session
// claims. The identity exists only when all three are present and parse;
// partial presence is treated identically to total absence.
func CurrentUserFromSession(sess *shared.Session) (CurrentUser, error) {
	if sess == nil {
		return CurrentUser{}, shared.ErrUnauthorized
	}

	rawID := sess.Get(shared.SessionKeyUserID)
	username := sess.Get(shared.SessionKeyUsername)
	rawRole := sess.Get(shared.SessionKeyUserRole)
	if rawID == "" || username == "" || rawRole == "" {
		return CurrentUser{}, shared.ErrUnauthorized
	}

	id, err := uuid.Parse(rawID)
	if err != nil {
		return CurrentUser{}, shared.ErrUnauthorized
	}
	role, ok := users.ParseRole(rawRole)
	if !ok {
		return CurrentUser{}, shared.ErrUnauthorized
	}

	return CurrentUser{ID: id, Username: username, Role: role}, nil
}

type currentUserContextKey struct{}

// ContextWithCurrentUser stores the resolved identity in the context.
func ContextWithCurrentUser(ctx context.Context, user CurrentUser) context.Context {
	return context.WithValue(ctx, currentUserContextKey{}, user)
}

// CurrentUserFromContext extracts the identity placed by the session guard.
func CurrentUserFromContext(ctx context.Context) (CurrentUser, bool) {
	user, ok := ctx.Value(currentUserContextKey{}).(CurrentUser)
	return user, ok
}
