package orgs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeMembershipStore struct {
	members map[uuid.UUID]*Membership
}

func (f *fakeMembershipStore) FindByID(_ context.Context, membershipID uuid.UUID) (*Membership, error) {
	m, ok := f.members[membershipID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	return m, nil
}

func (f *fakeMembershipStore) FindByUserAndOrg(_ context.Context, userID, orgID uuid.UUID) (*Membership, error) {
	for _, m := range f.members {
		if m.UserID == userID && m.OrgID == orgID {
			return m, nil
		}
	}
	return nil, ErrNotMember
}

func (f *fakeMembershipStore) ExistsByID(_ context.Context, membershipID uuid.UUID) (bool, error) {
	_, ok := f.members[membershipID]
	return ok, nil
}

type fakeOrgStore struct {
	orgs map[uuid.UUID]*Org
}

func (f *fakeOrgStore) FindByID(_ context.Context, orgID uuid.UUID) (*Org, error) {
	o, ok := f.orgs[orgID]
	if !ok {
		return nil, ErrOrgNotFound
	}
	return o, nil
}

func (f *fakeOrgStore) ExistsByID(_ context.Context, orgID uuid.UUID) (bool, error) {
	_, ok := f.orgs[orgID]
	return ok, nil
}

// testFixture is one organization with a creator and one membership per role
type testFixture struct {
	engine    *Engine
	org       *Org
	owner     *Membership // the creator's membership
	admin     *Membership
	moderator *Membership
	member    *Membership
	members   *fakeMembershipStore
	orgs      *fakeOrgStore
}

func newTestFixture() *testFixture {
	orgID := uuid.New()
	creatorUserID := uuid.New()

	org := &Org{ID: orgID, Name: "acme", CreatedByUserID: creatorUserID}

	owner := &Membership{ID: uuid.New(), OrgID: orgID, UserID: creatorUserID, Role: RoleOwner}
	admin := &Membership{ID: uuid.New(), OrgID: orgID, UserID: uuid.New(), Role: RoleAdmin}
	moderator := &Membership{ID: uuid.New(), OrgID: orgID, UserID: uuid.New(), Role: RoleModerator}
	member := &Membership{ID: uuid.New(), OrgID: orgID, UserID: uuid.New(), Role: RoleMember}

	members := &fakeMembershipStore{members: map[uuid.UUID]*Membership{
		owner.ID:     owner,
		admin.ID:     admin,
		moderator.ID: moderator,
		member.ID:    member,
	}}
	orgs := &fakeOrgStore{orgs: map[uuid.UUID]*Org{orgID: org}}

	return &testFixture{
		engine:    NewEngine(members, orgs),
		org:       org,
		owner:     owner,
		admin:     admin,
		moderator: moderator,
		member:    member,
		members:   members,
		orgs:      orgs,
	}
}

func (f *testFixture) addMember(role OrgRole) *Membership {
	m := &Membership{ID: uuid.New(), OrgID: f.org.ID, UserID: uuid.New(), Role: role}
	f.members.members[m.ID] = m
	return m
}

func TestEngine_Authorize_RankGrants(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.engine.Authorize(ctx, ActionAddMember, f.admin.ID, f.org.ID))
	require.NoError(t, f.engine.Authorize(ctx, ActionAddMember, f.owner.ID, f.org.ID))
	require.NoError(t, f.engine.Authorize(ctx, ActionUpdateTicket, f.moderator.ID, f.org.ID))
	require.NoError(t, f.engine.Authorize(ctx, ActionDeleteTicket, f.admin.ID, f.org.ID))
}

func TestEngine_Authorize_RankDenies(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	err := f.engine.Authorize(ctx, ActionAddMember, f.moderator.ID, f.org.ID)
	required, ok := IsUnauthorizedAction(err)
	require.True(t, ok)
	require.Equal(t, RoleAdmin, required.Required)

	err = f.engine.Authorize(ctx, ActionUpdateTicket, f.member.ID, f.org.ID)
	required, ok = IsUnauthorizedAction(err)
	require.True(t, ok)
	require.Equal(t, RoleModerator, required.Required)
}

func TestEngine_Authorize_CreatorBypassesRank(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	// Creator carrying only MEMBER rank still passes every action.
	f.owner.Role = RoleMember
	require.NoError(t, f.engine.Authorize(ctx, ActionAddMember, f.owner.ID, f.org.ID))
	require.NoError(t, f.engine.Authorize(ctx, ActionDeleteComment, f.owner.ID, f.org.ID))
}

func TestEngine_Authorize_UnknownInputs(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	err := f.engine.Authorize(ctx, ActionAddMember, uuid.New(), f.org.ID)
	require.ErrorIs(t, err, ErrMemberNotFound)

	err = f.engine.Authorize(ctx, ActionAddMember, f.admin.ID, uuid.New())
	require.ErrorIs(t, err, ErrOrgNotFound)
}

func TestEngine_Authorize_RepeatedCallsAgree(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, f.engine.Authorize(ctx, ActionUpdateTicket, f.moderator.ID, f.org.ID))
	}
	for i := 0; i < 3; i++ {
		err := f.engine.Authorize(ctx, ActionDeleteTicket, f.moderator.ID, f.org.ID)
		_, ok := IsUnauthorizedAction(err)
		require.True(t, ok)
	}
}

func TestEngine_AuthorizeMemberRemoval_Allowed(t *testing.T) {
	f := newTestFixture()

	require.NoError(t, f.engine.AuthorizeMemberRemoval(f.admin, f.member))
	require.NoError(t, f.engine.AuthorizeMemberRemoval(f.admin, f.moderator))
	require.NoError(t, f.engine.AuthorizeMemberRemoval(f.owner, f.admin))
}

func TestEngine_AuthorizeMemberRemoval_RankCheckedFirst(t *testing.T) {
	f := newTestFixture()

	// A member targeting the owner violates both the rank rule and the
	// owner protection; the rank refusal wins.
	err := f.engine.AuthorizeMemberRemoval(f.member, f.owner)
	required, ok := IsUnauthorizedAction(err)
	require.True(t, ok)
	require.Equal(t, RoleAdmin, required.Required)

	err = f.engine.AuthorizeMemberRemoval(f.moderator, f.member)
	_, ok = IsUnauthorizedAction(err)
	require.True(t, ok)
}

func TestEngine_AuthorizeMemberRemoval_OwnerProtected(t *testing.T) {
	f := newTestFixture()

	err := f.engine.AuthorizeMemberRemoval(f.admin, f.owner)
	require.ErrorIs(t, err, ErrCannotRemoveOwner)

	// Self-removal by the owner reports the owner protection, not the
	// self rule; target OWNER is checked before self.
	err = f.engine.AuthorizeMemberRemoval(f.owner, f.owner)
	require.ErrorIs(t, err, ErrCannotRemoveOwner)
}

func TestEngine_AuthorizeMemberRemoval_SelfProtected(t *testing.T) {
	f := newTestFixture()

	err := f.engine.AuthorizeMemberRemoval(f.admin, f.admin)
	require.ErrorIs(t, err, ErrCannotRemoveSelf)
}

func TestEngine_AuthorizeMemberRemoval_EqualOrHigherRank(t *testing.T) {
	f := newTestFixture()
	otherAdmin := f.addMember(RoleAdmin)

	err := f.engine.AuthorizeMemberRemoval(f.admin, otherAdmin)
	require.ErrorIs(t, err, ErrCannotRemoveEqualOrHigherRank)
}

func TestEngine_AuthorizeMemberRemoval_CrossOrg(t *testing.T) {
	f := newTestFixture()

	stranger := &Membership{ID: uuid.New(), OrgID: uuid.New(), UserID: uuid.New(), Role: RoleMember}
	err := f.engine.AuthorizeMemberRemoval(f.admin, stranger)
	require.ErrorIs(t, err, ErrCannotRemoveFromOtherOrg)
}

func TestEngine_AuthorizeResourceAction_AuthorBypass(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	// A plain member may update and delete their own resource even though
	// the actions require MODERATOR and ADMIN rank.
	require.NoError(t, f.engine.AuthorizeResourceAction(ctx, ActionUpdateTicket, f.member.ID, f.member.ID, f.org.ID))
	require.NoError(t, f.engine.AuthorizeResourceAction(ctx, ActionDeleteTicket, f.member.ID, f.member.ID, f.org.ID))
	require.NoError(t, f.engine.AuthorizeResourceAction(ctx, ActionUpdateComment, f.member.ID, f.member.ID, f.org.ID))
}

func TestEngine_AuthorizeResourceAction_RankOverOthersContent(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	require.NoError(t, f.engine.AuthorizeResourceAction(ctx, ActionUpdateTicket, f.moderator.ID, f.member.ID, f.org.ID))
	require.NoError(t, f.engine.AuthorizeResourceAction(ctx, ActionDeleteComment, f.admin.ID, f.member.ID, f.org.ID))

	// A moderator may not delete someone else's ticket.
	err := f.engine.AuthorizeResourceAction(ctx, ActionDeleteTicket, f.moderator.ID, f.member.ID, f.org.ID)
	required, ok := IsUnauthorizedAction(err)
	require.True(t, ok)
	require.Equal(t, RoleAdmin, required.Required)

	// A member may not touch someone else's comment.
	err = f.engine.AuthorizeResourceAction(ctx, ActionUpdateComment, f.member.ID, f.moderator.ID, f.org.ID)
	_, ok = IsUnauthorizedAction(err)
	require.True(t, ok)
}

func TestEngine_AuthorizeResourceAction_CrossOrgActor(t *testing.T) {
	f := newTestFixture()
	ctx := context.Background()

	otherOrgID := uuid.New()
	f.orgs.orgs[otherOrgID] = &Org{ID: otherOrgID, Name: "globex", CreatedByUserID: uuid.New()}

	err := f.engine.AuthorizeResourceAction(ctx, ActionUpdateTicket, f.admin.ID, f.member.ID, otherOrgID)
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestEngine_AuthorizeRoleUpdate(t *testing.T) {
	f := newTestFixture()

	require.NoError(t, f.engine.AuthorizeRoleUpdate(f.admin, f.org))
	require.NoError(t, f.engine.AuthorizeRoleUpdate(f.owner, f.org))

	// Creator bypass without rank.
	f.owner.Role = RoleMember
	require.NoError(t, f.engine.AuthorizeRoleUpdate(f.owner, f.org))

	err := f.engine.AuthorizeRoleUpdate(f.moderator, f.org)
	required, ok := IsUnauthorizedAction(err)
	require.True(t, ok)
	require.Equal(t, RoleAdmin, required.Required)
}
