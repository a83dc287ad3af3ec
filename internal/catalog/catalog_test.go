package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLegacySeparator(t *testing.T) {
	require.Equal(t, Permission("inventory.view"), Normalize("inventory:view"))
	require.Equal(t, Permission("users.view"), Normalize("  users.view "))
	// Case is preserved, not folded.
	require.Equal(t, Permission("Users.View"), Normalize("Users.View"))
}

func TestParseRejectsUnknown(t *testing.T) {
	_, err := Parse("not-in-catalog")
	require.ErrorIs(t, err, ErrUnknownPermission)

	_, err = Parse("Roles.Edit")
	require.ErrorIs(t, err, ErrUnknownPermission)

	p, err := Parse("roles:edit")
	require.NoError(t, err)
	require.Equal(t, PermRolesEdit, p)
}

func TestDescribeAndAll(t *testing.T) {
	require.NotEmpty(t, Describe(PermAuditView))
	require.Empty(t, Describe(Permission("nope")))

	defs := All()
	require.Len(t, defs, len(registry))
	for i := 1; i < len(defs); i++ {
		require.Less(t, string(defs[i-1].Permission), string(defs[i].Permission))
	}
}
