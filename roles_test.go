package adminkit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	adminkit "github.com/ottovalles/go-adminkit"
)

func TestIsValidRole(t *testing.T) {
	for _, role := range adminkit.GetAllRoles() {
		assert.True(t, adminkit.IsValidRole(role), role)
	}
	assert.False(t, adminkit.IsValidRole("superuser"))
	assert.False(t, adminkit.IsValidRole(""))
}

func TestParseRole(t *testing.T) {
	role, ok := adminkit.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, adminkit.RoleAdmin, role)

	_, ok = adminkit.ParseRole("root")
	assert.False(t, ok)
}

func TestRoleIsAtLeast(t *testing.T) {
	assert.True(t, adminkit.RoleIsAtLeast(adminkit.RoleOwner, adminkit.RoleAdmin))
	assert.True(t, adminkit.RoleIsAtLeast(adminkit.RoleAdmin, adminkit.RoleAdmin))
	assert.False(t, adminkit.RoleIsAtLeast(adminkit.RoleMember, adminkit.RoleAdmin))
	assert.False(t, adminkit.RoleIsAtLeast(adminkit.RoleGuest, adminkit.RoleMember))
	assert.False(t, adminkit.RoleIsAtLeast("unknown", adminkit.RoleGuest))
}

func TestRoleAllowed(t *testing.T) {
	t.Run("explicit match", func(t *testing.T) {
		assert.True(t, adminkit.RoleAllowed(adminkit.RoleMember, []adminkit.UserRole{adminkit.RoleMember}))
	})

	t.Run("admin passes every route", func(t *testing.T) {
		assert.True(t, adminkit.RoleAllowed(adminkit.RoleAdmin, []adminkit.UserRole{adminkit.RoleMember}))
		assert.True(t, adminkit.RoleAllowed(adminkit.RoleOwner, []adminkit.UserRole{adminkit.RoleMember}))
	})

	t.Run("below required and below admin fails", func(t *testing.T) {
		assert.False(t, adminkit.RoleAllowed(adminkit.RoleGuest, []adminkit.UserRole{adminkit.RoleMember}))
		assert.False(t, adminkit.RoleAllowed(adminkit.RoleMember, []adminkit.UserRole{adminkit.RoleOwner}))
	})

	t.Run("admin does not match an owner-only rule explicitly but passes as super-role", func(t *testing.T) {
		assert.True(t, adminkit.RoleAllowed(adminkit.RoleAdmin, []adminkit.UserRole{adminkit.RoleOwner}))
	})
}
