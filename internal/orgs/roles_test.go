package orgs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrgRole_Priority(t *testing.T) {
	require.Equal(t, 1, RoleMember.Priority())
	require.Equal(t, 2, RoleModerator.Priority())
	require.Equal(t, 3, RoleAdmin.Priority())
	require.Equal(t, 4, RoleOwner.Priority())
}

func TestOrgRole_HasAtLeastPriority(t *testing.T) {
	require.True(t, RoleOwner.HasAtLeastPriority(RoleAdmin))
	require.True(t, RoleAdmin.HasAtLeastPriority(RoleAdmin))
	require.False(t, RoleModerator.HasAtLeastPriority(RoleAdmin))
	require.False(t, RoleMember.HasAtLeastPriority(RoleModerator))
	require.True(t, RoleMember.HasAtLeastPriority(RoleMember))
}

func TestOrgRole_IsValid(t *testing.T) {
	require.True(t, RoleMember.IsValid())
	require.True(t, RoleOwner.IsValid())
	require.False(t, OrgRole("SUPERADMIN").IsValid())
	require.False(t, OrgRole("").IsValid())
}

func TestRoleFromString(t *testing.T) {
	role, err := RoleFromString("admin")
	require.NoError(t, err)
	require.Equal(t, RoleAdmin, role)

	role, err = RoleFromString("  Moderator ")
	require.NoError(t, err)
	require.Equal(t, RoleModerator, role)

	_, err = RoleFromString("janitor")
	require.ErrorIs(t, err, ErrRoleNotFound)

	_, err = RoleFromString("")
	require.ErrorIs(t, err, ErrRoleNotFound)
}

func TestAction_RequiredRole(t *testing.T) {
	require.Equal(t, RoleAdmin, ActionAddMember.RequiredRole())
	require.Equal(t, RoleAdmin, ActionRemoveMember.RequiredRole())
	require.Equal(t, RoleAdmin, ActionDeleteTicket.RequiredRole())
	require.Equal(t, RoleModerator, ActionUpdateTicket.RequiredRole())
	require.Equal(t, RoleAdmin, ActionDeleteComment.RequiredRole())
	require.Equal(t, RoleAdmin, ActionUpdateComment.RequiredRole())
}
