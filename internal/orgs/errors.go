package orgs

import (
	"errors"
	"fmt"
)

var (
	// ErrOrgNotFound is returned when an organization is not found
	ErrOrgNotFound = errors.New("organization not found")

	// ErrMemberNotFound is returned when a membership is not found by ID
	ErrMemberNotFound = errors.New("member not found")

	// ErrNotMember is returned when a user has no membership in an organization
	ErrNotMember = errors.New("user is not a member of this organization")

	// ErrUserNotFound is returned when no account exists for an email
	ErrUserNotFound = errors.New("user not found")

	// ErrAlreadyMember is returned when adding a user who already belongs to the organization
	ErrAlreadyMember = errors.New("user is already a member of this organization")

	// ErrRoleNotFound is returned when a role string cannot be parsed
	ErrRoleNotFound = errors.New("role not found")

	// ErrNotOrgCreator is returned when an operation is reserved for the organization creator
	ErrNotOrgCreator = errors.New("only the organization creator can do this")
)

// Member-removal policy violations. The messages are user facing and the
// evaluation order in AuthorizeMemberRemoval is fixed; see that method.
var (
	ErrCannotRemoveOwner             = errors.New("cannot remove the owner")
	ErrCannotRemoveSelf              = errors.New("cannot remove yourself")
	ErrCannotRemoveEqualOrHigherRank = errors.New("cannot remove someone with equal or higher rank")
	ErrCannotRemoveFromOtherOrg      = errors.New("cannot remove this user")
)

// Role-update policy violations. The creator's OWNER role is pinned: it can
// neither be taken from the creator nor granted to anyone else.
var (
	ErrCannotChangeOwnerRole = errors.New("cannot change the owner's role")
	ErrCannotAssignOwnerRole = errors.New("cannot assign the owner role")
)

// UnauthorizedActionError is returned when the actor's rank is below the
// minimum role an action requires.
type UnauthorizedActionError struct {
	Required OrgRole
}

func (e *UnauthorizedActionError) Error() string {
	return fmt.Sprintf("action requires the %s role or above", e.Required)
}

// IsUnauthorizedAction reports whether err is an UnauthorizedActionError,
// returning it for access to the required role.
func IsUnauthorizedAction(err error) (*UnauthorizedActionError, bool) {
	var uae *UnauthorizedActionError
	if errors.As(err, &uae) {
		return uae, true
	}
	return nil, false
}
