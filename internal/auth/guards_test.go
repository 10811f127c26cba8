package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/inkpress/inkpress/internal/shared"
	"github.com/inkpress/inkpress/internal/users"
)

func TestRequireAdmin(t *testing.T) {
	require.NoError(t, RequireAdmin(CurrentUser{Role: users.RoleAdmin}))

	for _, role := range []users.Role{users.RoleEditor, users.RoleAuthor, users.RoleContributor, users.RoleSubscriber} {
		err := RequireAdmin(CurrentUser{Role: role})
		require.ErrorIs(t, err, shared.ErrForbidden, "role %s", role)
	}
}

func TestRequireRoles(t *testing.T) {
	writer := CurrentUser{Role: users.RoleAuthor}

	require.NoError(t, RequireRoles(writer, users.RoleAdmin, users.RoleEditor, users.RoleAuthor))
	require.ErrorIs(t, RequireRoles(writer, users.RoleAdmin, users.RoleEditor), shared.ErrForbidden)
	require.ErrorIs(t, RequireRoles(writer), shared.ErrForbidden)
}

func TestCurrentUserFromSession(t *testing.T) {
	id := uuid.New()

	fullSession := func() *shared.Session {
		sess := &shared.Session{}
		sess.Set(shared.SessionKeyUserID, id.String())
		sess.Set(shared.SessionKeyUsername, "alice")
		sess.Set(shared.SessionKeyUserRole, string(users.RoleEditor))
		return sess
	}

	user, err := CurrentUserFromSession(fullSession())
	require.NoError(t, err)
	require.Equal(t, id, user.ID)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, users.RoleEditor, user.Role)

	// Partial or malformed claims resolve exactly like an anonymous session.
	cases := map[string]func(*shared.Session){
		"missing id":       func(s *shared.Session) { s.Delete(shared.SessionKeyUserID) },
		"missing username": func(s *shared.Session) { s.Delete(shared.SessionKeyUsername) },
		"missing role":     func(s *shared.Session) { s.Delete(shared.SessionKeyUserRole) },
		"malformed id":     func(s *shared.Session) { s.Set(shared.SessionKeyUserID, "not-a-uuid") },
		"unknown role":     func(s *shared.Session) { s.Set(shared.SessionKeyUserRole, "superuser") },
	}
	for name, mutate := range cases {
		sess := fullSession()
		mutate(sess)
		_, err := CurrentUserFromSession(sess)
		require.ErrorIs(t, err, shared.ErrUnauthorized, name)
	}

	_, err = CurrentUserFromSession(nil)
	require.ErrorIs(t, err, shared.ErrUnauthorized)

	_, err = CurrentUserFromSession(&shared.Session{})
	require.ErrorIs(t, err, shared.ErrUnauthorized)
}
