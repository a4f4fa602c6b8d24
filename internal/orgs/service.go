package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Service provides organization lifecycle and membership operations
type Service struct {
	pool   *pgxpool.Pool
	store  *Store
	engine *Engine
}

// NewService creates a new organization service
func NewService(pool *pgxpool.Pool) *Service {
	store := NewStore(pool)
	return &Service{
		pool:   pool,
		store:  store,
		engine: NewEngine(store, orgStoreAdapter{store: store}),
	}
}

// NewEngineFromPool wires an authorization engine over pgx-backed stores.
// Used by the ticket and comment services, which share the engine but own
// their persistence.
func NewEngineFromPool(pool *pgxpool.Pool) *Engine {
	store := NewStore(pool)
	return NewEngine(store, orgStoreAdapter{store: store})
}

// Engine returns the service's authorization engine
func (s *Service) Engine() *Engine {
	return s.engine
}

// GetByID retrieves an organization by ID
func (s *Service) GetByID(ctx context.Context, orgID uuid.UUID) (*Org, error) {
	return s.store.FindOrgByID(ctx, orgID)
}

// RequireMember resolves the user's membership in the organization.
// Returns ErrNotMember if the user does not belong to it.
func (s *Service) RequireMember(ctx context.Context, orgID, userID uuid.UUID) (*Membership, error) {
	return s.store.FindByUserAndOrg(ctx, userID, orgID)
}

// ListForUser retrieves all organizations a user belongs to, with their
// role in each, newest first.
func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]OrgWithRole, error) {
	query := `
		SELECT o.id, o.name, o.created_by_user_id, o.created_at, o.updated_at, m.role
		FROM orgs o
		INNER JOIN org_memberships m ON o.id = m.org_id
		WHERE m.user_id = $1
		ORDER BY o.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := s.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list user orgs: %w", err)
	}
	defer rows.Close()

	var result []OrgWithRole
	for rows.Next() {
		var org OrgWithRole
		err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.CreatedByUserID,
			&org.CreatedAt,
			&org.UpdatedAt,
			&org.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan org: %w", err)
		}
		result = append(result, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating org rows: %w", err)
	}

	return result, nil
}

// CreateWithOwner creates a new organization and its creator's OWNER
// membership in one transaction. The invariant established here holds for
// the organization's lifetime: the creator's membership is OWNER at
// creation and role updates never change that (see UpdateMemberRole).
func (s *Service) CreateWithOwner(ctx context.Context, name string, creatorUserID uuid.UUID) (*Org, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var org Org
	query := `
		INSERT INTO orgs (name, created_by_user_id)
		VALUES ($1, $2)
		RETURNING id, name, created_by_user_id, created_at, updated_at
	`

	err = tx.QueryRow(ctx, query, name, creatorUserID).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedByUserID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}

	memberQuery := `
		INSERT INTO org_memberships (org_id, user_id, role)
		VALUES ($1, $2, $3)
	`

	if _, err := tx.Exec(ctx, memberQuery, org.ID, creatorUserID, RoleOwner); err != nil {
		return nil, fmt.Errorf("failed to create owner membership: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &org, nil
}

// UpdateName changes an organization's display name.
// Reserved for the organization creator.
func (s *Service) UpdateName(ctx context.Context, orgID, actorUserID uuid.UUID, name string) (*Org, error) {
	org, err := s.store.FindOrgByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org.CreatedByUserID != actorUserID {
		return nil, ErrNotOrgCreator
	}

	query := `
		UPDATE orgs
		SET name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, created_by_user_id, created_at, updated_at
	`

	var updated Org
	err = s.pool.QueryRow(ctx, query, orgID, name).Scan(
		&updated.ID,
		&updated.Name,
		&updated.CreatedByUserID,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}

	return &updated, nil
}

// Delete removes an organization with all of its comments, tickets and
// memberships, in that order, in one transaction. The ordering respects
// the RESTRICT constraints on publisher references. Reserved for the
// organization creator. Returns the deleted organization's ID.
func (s *Service) Delete(ctx context.Context, orgID, actorUserID uuid.UUID) (uuid.UUID, error) {
	org, err := s.store.FindOrgByID(ctx, orgID)
	if err != nil {
		return uuid.Nil, err
	}
	if org.CreatedByUserID != actorUserID {
		return uuid.Nil, ErrNotOrgCreator
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, `
		DELETE FROM ticket_comments
		WHERE ticket_id IN (SELECT id FROM tickets WHERE org_id = $1)
	`, orgID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete organization comments: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM tickets WHERE org_id = $1`, orgID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete organization tickets: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM org_memberships WHERE org_id = $1`, orgID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete organization memberships: %w", err)
	}

	tag, err := tx.Exec(ctx, `DELETE FROM orgs WHERE id = $1`, orgID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete organization: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, ErrOrgNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return orgID, nil
}

// ListMembers retrieves members of an organization, oldest first.
// A non-empty emailFilter narrows the result to matching emails.
func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID, emailFilter string, limit, offset int) ([]MemberInfo, error) {
	exists, err := s.store.OrgExistsByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOrgNotFound
	}

	query := `
		SELECT m.id, m.user_id, u.email, m.role, m.created_at
		FROM org_memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.org_id = $1
		  AND ($2 = '' OR u.email ILIKE '%' || $2 || '%')
		ORDER BY m.created_at ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := s.pool.Query(ctx, query, orgID, emailFilter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []MemberInfo
	for rows.Next() {
		var member MemberInfo
		err := rows.Scan(
			&member.MembershipID,
			&member.UserID,
			&member.Email,
			&member.Role,
			&member.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating member rows: %w", err)
	}

	return members, nil
}

// GetMember retrieves one member of an organization by membership ID
func (s *Service) GetMember(ctx context.Context, orgID, membershipID uuid.UUID) (*MemberInfo, error) {
	var member MemberInfo

	query := `
		SELECT m.id, m.user_id, u.email, m.role, m.created_at
		FROM org_memberships m
		INNER JOIN users u ON m.user_id = u.id
		WHERE m.id = $1 AND m.org_id = $2
	`

	err := s.pool.QueryRow(ctx, query, membershipID, orgID).Scan(
		&member.MembershipID,
		&member.UserID,
		&member.Email,
		&member.Role,
		&member.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get member: %w", err)
	}

	return &member, nil
}

// AddMember adds the user registered under email to the organization with
// the MEMBER role. The actor needs the ADD_MEMBER action (ADMIN rank or
// creator). Returns ErrAlreadyMember if the user already belongs to the
// organization; a race between two concurrent adds loses against the
// UNIQUE (org_id, user_id) constraint and surfaces the same way.
func (s *Service) AddMember(ctx context.Context, orgID, actorUserID uuid.UUID, email string) (*MemberInfo, error) {
	actor, err := s.store.FindByUserAndOrg(ctx, actorUserID, orgID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Authorize(ctx, ActionAddMember, actor.ID, orgID); err != nil {
		return nil, err
	}

	var newUserID uuid.UUID
	err = s.pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, email).Scan(&newUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if _, err := s.store.FindByUserAndOrg(ctx, newUserID, orgID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, ErrNotMember) {
		return nil, err
	}

	var member MemberInfo
	member.UserID = newUserID
	member.Email = email
	member.Role = RoleMember

	query := `
		INSERT INTO org_memberships (org_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err = s.pool.QueryRow(ctx, query, orgID, newUserID, RoleMember).Scan(&member.MembershipID, &member.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("failed to create membership: %w", err)
	}

	return &member, nil
}

// RemoveMember removes the target membership from the organization after
// the removal policy allows it, cascading over the member's authored
// content: their comments first, then their tickets (comments on those
// tickets fall with them), then the membership row, all in one
// transaction. The target row is locked, so of two concurrent removals
// one succeeds and the other observes ErrMemberNotFound; a partial
// cascade is never visible. Returns the removed membership's ID.
func (s *Service) RemoveMember(ctx context.Context, orgID, removerUserID, targetMembershipID uuid.UUID) (uuid.UUID, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var remover Membership
	err = tx.QueryRow(ctx, `
		SELECT id, org_id, user_id, role, created_at, updated_at
		FROM org_memberships
		WHERE user_id = $1 AND org_id = $2
	`, removerUserID, orgID).Scan(
		&remover.ID,
		&remover.OrgID,
		&remover.UserID,
		&remover.Role,
		&remover.CreatedAt,
		&remover.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrNotMember
		}
		return uuid.Nil, fmt.Errorf("failed to load remover membership: %w", err)
	}

	var target Membership
	err = tx.QueryRow(ctx, `
		SELECT id, org_id, user_id, role, created_at, updated_at
		FROM org_memberships
		WHERE id = $1
		FOR UPDATE
	`, targetMembershipID).Scan(
		&target.ID,
		&target.OrgID,
		&target.UserID,
		&target.Role,
		&target.CreatedAt,
		&target.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, ErrMemberNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to load target membership: %w", err)
	}

	if err := s.engine.AuthorizeMemberRemoval(&remover, &target); err != nil {
		return uuid.Nil, err
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM ticket_comments
		WHERE publisher_id = $1
	`, target.ID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete member comments: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		DELETE FROM tickets
		WHERE publisher_id = $1
	`, target.ID); err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete member tickets: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM org_memberships
		WHERE id = $1
	`, target.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, ErrMemberNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return target.ID, nil
}

// UpdateMemberRole sets a member's role, parsed case-insensitively from
// roleArgument. The actor needs ADMIN rank or the creator bypass. The
// creator's OWNER role is pinned both ways: the creator cannot be demoted
// and OWNER cannot be granted to anyone else.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID, actorUserID, targetMembershipID uuid.UUID, roleArgument string) (*Membership, error) {
	newRole, err := RoleFromString(roleArgument)
	if err != nil {
		return nil, err
	}

	org, err := s.store.FindOrgByID(ctx, orgID)
	if err != nil {
		return nil, err
	}

	actor, err := s.store.FindByUserAndOrg(ctx, actorUserID, orgID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.AuthorizeRoleUpdate(actor, org); err != nil {
		return nil, err
	}

	target, err := s.store.FindByID(ctx, targetMembershipID)
	if err != nil {
		return nil, err
	}
	if target.OrgID != orgID {
		return nil, ErrMemberNotFound
	}

	if target.UserID == org.CreatedByUserID {
		return nil, ErrCannotChangeOwnerRole
	}
	if newRole == RoleOwner {
		return nil, ErrCannotAssignOwnerRole
	}

	query := `
		UPDATE org_memberships
		SET role = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING id, org_id, user_id, role, created_at, updated_at
	`

	var updated Membership
	err = s.pool.QueryRow(ctx, query, target.ID, newRole).Scan(
		&updated.ID,
		&updated.OrgID,
		&updated.UserID,
		&updated.Role,
		&updated.CreatedAt,
		&updated.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to update member role: %w", err)
	}

	return &updated, nil
}

// Statistics aggregates ticket, comment and member counts for an organization
func (s *Service) Statistics(ctx context.Context, orgID uuid.UUID) (*Statistics, error) {
	exists, err := s.store.OrgExistsByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrOrgNotFound
	}

	var stats Statistics

	query := `
		SELECT
			(SELECT COUNT(*) FROM tickets WHERE org_id = $1),
			(SELECT COUNT(*) FROM ticket_comments c JOIN tickets t ON c.ticket_id = t.id WHERE t.org_id = $1),
			(SELECT COUNT(*) FROM tickets WHERE org_id = $1 AND open),
			(SELECT COUNT(*) FROM tickets WHERE org_id = $1 AND NOT open),
			(SELECT COUNT(*) FROM org_memberships WHERE org_id = $1)
	`

	err = s.pool.QueryRow(ctx, query, orgID).Scan(
		&stats.TotalTickets,
		&stats.TotalComments,
		&stats.OpenTickets,
		&stats.ClosedTickets,
		&stats.TotalMembers,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization statistics: %w", err)
	}

	return &stats, nil
}

// MemberStatistics aggregates authored-content counts for one member
func (s *Service) MemberStatistics(ctx context.Context, orgID, membershipID uuid.UUID) (*MemberStatistics, error) {
	member, err := s.store.FindByID(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if member.OrgID != orgID {
		return nil, ErrMemberNotFound
	}

	var stats MemberStatistics

	query := `
		SELECT
			(SELECT COUNT(*) FROM tickets WHERE publisher_id = $1),
			(SELECT COUNT(*) FROM ticket_comments WHERE publisher_id = $1),
			(SELECT COUNT(*) FROM tickets WHERE publisher_id = $1 AND open),
			(SELECT COUNT(*) FROM tickets WHERE publisher_id = $1 AND NOT open)
	`

	err = s.pool.QueryRow(ctx, query, membershipID).Scan(
		&stats.TotalTickets,
		&stats.TotalComments,
		&stats.OpenTickets,
		&stats.ClosedTickets,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get member statistics: %w", err)
	}

	return &stats, nil
}
