package users

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, valid := range []string{"admin", "editor", "author", "contributor", "subscriber"} {
		role, ok := ParseRole(valid)
		require.True(t, ok, valid)
		require.Equal(t, Role(valid), role)
	}

	for _, invalid := range []string{"", "Admin", "superuser", "ADMIN "} {
		_, ok := ParseRole(invalid)
		require.False(t, ok, invalid)
	}
}

func TestCanWrite(t *testing.T) {
	expectations := map[Role]bool{
		RoleAdmin:       true,
		RoleEditor:      true,
		RoleAuthor:      true,
		RoleContributor: false,
		RoleSubscriber:  false,
	}
	for role, want := range expectations {
		u := &User{Role: role}
		require.Equal(t, want, u.CanWrite(), role)
	}
}

func TestDisplayNameOrUsername(t *testing.T) {
	u := &User{Username: "alice"}
	require.Equal(t, "alice", u.DisplayNameOrUsername())

	empty := ""
	u.DisplayName = &empty
	require.Equal(t, "alice", u.DisplayNameOrUsername())

	name := "Alice W."
	u.DisplayName = &name
	require.Equal(t, "Alice W.", u.DisplayNameOrUsername())
}
