package orgs

import "strings"

// OrgRole represents a member's ranked role within an organization
type OrgRole string

const (
	RoleMember    OrgRole = "MEMBER"
	RoleModerator OrgRole = "MODERATOR"
	RoleAdmin     OrgRole = "ADMIN"
	RoleOwner     OrgRole = "OWNER"
)

// rolePriorities defines the role hierarchy (higher number = more permissions).
// The ordering is total: no two roles share a priority.
var rolePriorities = map[OrgRole]int{
	RoleMember:    1,
	RoleModerator: 2,
	RoleAdmin:     3,
	RoleOwner:     4,
}

var roleDescriptions = map[OrgRole]string{
	RoleMember:    "Can create tickets",
	RoleModerator: "Can edit tickets",
	RoleAdmin:     "Can edit and delete tickets, comments and members",
	RoleOwner:     "All permissions",
}

// Priority returns the role's rank in the hierarchy.
// Returns 0 for unknown roles, below every valid role.
func (r OrgRole) Priority() int {
	return rolePriorities[r]
}

// Description returns the human-readable summary of the role's permissions
func (r OrgRole) Description() string {
	return roleDescriptions[r]
}

// IsValid returns true if the role is one of the defined variants
func (r OrgRole) IsValid() bool {
	_, ok := rolePriorities[r]
	return ok
}

// HasAtLeastPriority returns true if the role ranks at or above required.
// Exact rank satisfies the requirement.
func (r OrgRole) HasAtLeastPriority(required OrgRole) bool {
	return rolePriorities[r] >= rolePriorities[required]
}

// RoleFromString parses a role name case-insensitively.
// Returns ErrRoleNotFound for unrecognized input.
func RoleFromString(s string) (OrgRole, error) {
	role := OrgRole(strings.ToUpper(strings.TrimSpace(s)))
	if !role.IsValid() {
		return "", ErrRoleNotFound
	}
	return role, nil
}
