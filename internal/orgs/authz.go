package orgs

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Engine answers "may this member perform this action here". It is
// stateless: every decision is computed from a fresh snapshot of the
// memberships and organizations it reads through its stores, so repeated
// calls with unchanged inputs yield the same decision.
type Engine struct {
	members MembershipStore
	orgs    OrgStore
}

// NewEngine creates an authorization engine over the given stores
func NewEngine(members MembershipStore, orgs OrgStore) *Engine {
	return &Engine{members: members, orgs: orgs}
}

// Authorize decides whether the acting membership may perform action
// within the organization. The actor passes if their role ranks at or
// above the action's required role, or if they are the organization's
// creator. The creator bypass grants rank only; it never shields the
// creator as a removal target, which is AuthorizeMemberRemoval's job.
//
// Returns ErrMemberNotFound or ErrOrgNotFound when the inputs don't
// resolve, and *UnauthorizedActionError on a rank denial.
func (e *Engine) Authorize(ctx context.Context, action Action, actorMembershipID, orgID uuid.UUID) error {
	actor, err := e.members.FindByID(ctx, actorMembershipID)
	if err != nil {
		return err
	}

	org, err := e.orgs.FindByID(ctx, orgID)
	if err != nil {
		return err
	}

	required := action.RequiredRole()
	hasRank := actor.Role.HasAtLeastPriority(required)
	isCreator := org.CreatedByUserID == actor.UserID

	if !hasRank && !isCreator {
		log.Debug().
			Str("membership_id", actor.ID.String()).
			Str("org_id", orgID.String()).
			Str("action", string(action)).
			Str("role", string(actor.Role)).
			Str("required_role", string(required)).
			Msg("Action denied: insufficient rank")
		return &UnauthorizedActionError{Required: required}
	}

	return nil
}

// AuthorizeMemberRemoval decides whether remover may remove target.
// Pure; both memberships are snapshots the caller loaded (and locked)
// itself.
//
// The rules are evaluated in a fixed order and the first violation wins.
// The order is deliberate business policy: it decides which message a
// caller sees when several rules are violated at once, so it must not be
// rearranged.
func (e *Engine) AuthorizeMemberRemoval(remover, target *Membership) error {
	required := ActionRemoveMember.RequiredRole()

	switch {
	case !remover.Role.HasAtLeastPriority(required):
		return &UnauthorizedActionError{Required: required}
	case target.Role == RoleOwner:
		return ErrCannotRemoveOwner
	case target.ID == remover.ID:
		return ErrCannotRemoveSelf
	case target.Role.HasAtLeastPriority(remover.Role):
		return ErrCannotRemoveEqualOrHigherRank
	case target.OrgID != remover.OrgID:
		return ErrCannotRemoveFromOtherOrg
	}

	return nil
}

// AuthorizeResourceAction decides whether the acting membership may
// perform action on a resource (ticket or comment) that belongs to orgID
// and was authored by authorMembershipID. The actor passes on rank, or
// as the resource's author regardless of rank (self-authorship bypass).
func (e *Engine) AuthorizeResourceAction(ctx context.Context, action Action, actorMembershipID, authorMembershipID, orgID uuid.UUID) error {
	actor, err := e.members.FindByID(ctx, actorMembershipID)
	if err != nil {
		return err
	}

	// An actor from another organization never sees the resource.
	if actor.OrgID != orgID {
		return ErrMemberNotFound
	}

	required := action.RequiredRole()
	if actor.Role.HasAtLeastPriority(required) {
		return nil
	}
	if actor.ID == authorMembershipID {
		return nil
	}

	log.Debug().
		Str("membership_id", actor.ID.String()).
		Str("org_id", orgID.String()).
		Str("action", string(action)).
		Str("required_role", string(required)).
		Msg("Resource action denied: not author and insufficient rank")
	return &UnauthorizedActionError{Required: required}
}

// AuthorizeRoleUpdate decides whether actor may change member roles in
// org. Changing roles requires ADMIN rank; the creator bypasses the rank
// check. Pure.
func (e *Engine) AuthorizeRoleUpdate(actor *Membership, org *Org) error {
	if actor.Role.HasAtLeastPriority(RoleAdmin) {
		return nil
	}
	if org.CreatedByUserID == actor.UserID {
		return nil
	}
	return &UnauthorizedActionError{Required: RoleAdmin}
}
