package adminkit

// UserRole is the user's role
type UserRole = string

const (
	// RoleGuest can only look at the public surface
	RoleGuest UserRole = "guest"
	// RoleMember is a collaborator (i.e. view, edit)
	RoleMember UserRole = "member"
	// RoleAdmin is the site administrator; it is the implicit super-role for
	// route checks
	RoleAdmin UserRole = "admin"
	// RoleOwner is the site owner
	RoleOwner UserRole = "owner"
)

// IsValid checks if the role is one of the predefined valid roles
func IsValidRole(r UserRole) bool {
	switch r {
	case RoleGuest, RoleMember, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

// RoleIsAtLeast checks if role meets the minimum required level
func RoleIsAtLeast(r, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleGuest:  0,
		RoleMember: 1,
		RoleAdmin:  2,
		RoleOwner:  3,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, IsValidRole(role)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleGuest,
		RoleMember,
		RoleAdmin,
		RoleOwner,
	}
}

// RoleAllowed reports whether role satisfies a route's required set. Roles at
// or above the implicit super-role (admin) pass every route.
func RoleAllowed(role UserRole, required []UserRole) bool {
	for _, r := range required {
		if role == r {
			return true
		}
	}
	return RoleIsAtLeast(role, RoleAdmin)
}
