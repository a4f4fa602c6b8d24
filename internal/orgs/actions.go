package orgs

// Action represents a protected operation within an organization
type Action string

const (
	ActionAddMember     Action = "ADD_MEMBER"
	ActionRemoveMember  Action = "REMOVE_MEMBER"
	ActionDeleteTicket  Action = "DELETE_TICKET"
	ActionUpdateTicket  Action = "UPDATE_TICKET"
	ActionDeleteComment Action = "DELETE_COMMENT"
	ActionUpdateComment Action = "UPDATE_COMMENT"
)

// actionRequiredRoles maps each action to the minimum role it requires.
// Exhaustive over the Action constants.
var actionRequiredRoles = map[Action]OrgRole{
	ActionAddMember:     RoleAdmin,
	ActionRemoveMember:  RoleAdmin,
	ActionDeleteTicket:  RoleAdmin,
	ActionUpdateTicket:  RoleModerator,
	ActionDeleteComment: RoleAdmin,
	ActionUpdateComment: RoleAdmin,
}

// RequiredRole returns the minimum role needed to perform the action
func (a Action) RequiredRole() OrgRole {
	return actionRequiredRoles[a]
}
