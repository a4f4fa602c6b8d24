package orgs

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MembershipStore is the membership lookup contract the authorization
// engine evaluates against. The pgx-backed Store implements it; tests
// substitute in-memory fakes.
type MembershipStore interface {
	FindByID(ctx context.Context, membershipID uuid.UUID) (*Membership, error)
	FindByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error)
	ExistsByID(ctx context.Context, membershipID uuid.UUID) (bool, error)
}

// OrgStore is the organization lookup contract consumed by the engine
type OrgStore interface {
	FindByID(ctx context.Context, orgID uuid.UUID) (*Org, error)
	ExistsByID(ctx context.Context, orgID uuid.UUID) (bool, error)
}

// Store provides pgx-backed membership and organization lookups
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store backed by the given pool
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// FindByID retrieves a membership by its ID
// Returns ErrMemberNotFound if no membership exists
func (s *Store) FindByID(ctx context.Context, membershipID uuid.UUID) (*Membership, error) {
	var m Membership

	query := `
		SELECT id, org_id, user_id, role, created_at, updated_at
		FROM org_memberships
		WHERE id = $1
	`

	err := s.pool.QueryRow(ctx, query, membershipID).Scan(
		&m.ID,
		&m.OrgID,
		&m.UserID,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &m, nil
}

// FindByUserAndOrg retrieves a user's membership in an organization
// Returns ErrNotMember if the user does not belong to the organization
func (s *Store) FindByUserAndOrg(ctx context.Context, userID, orgID uuid.UUID) (*Membership, error) {
	var m Membership

	query := `
		SELECT id, org_id, user_id, role, created_at, updated_at
		FROM org_memberships
		WHERE user_id = $1 AND org_id = $2
	`

	err := s.pool.QueryRow(ctx, query, userID, orgID).Scan(
		&m.ID,
		&m.OrgID,
		&m.UserID,
		&m.Role,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotMember
		}
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return &m, nil
}

// ExistsByID reports whether a membership with the given ID exists
func (s *Store) ExistsByID(ctx context.Context, membershipID uuid.UUID) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM org_memberships WHERE id = $1)`

	if err := s.pool.QueryRow(ctx, query, membershipID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check membership existence: %w", err)
	}

	return exists, nil
}

// FindOrgByID retrieves an organization by ID
// Returns ErrOrgNotFound if no organization exists
func (s *Store) FindOrgByID(ctx context.Context, orgID uuid.UUID) (*Org, error) {
	var org Org

	query := `
		SELECT id, name, created_by_user_id, created_at, updated_at
		FROM orgs
		WHERE id = $1
	`

	err := s.pool.QueryRow(ctx, query, orgID).Scan(
		&org.ID,
		&org.Name,
		&org.CreatedByUserID,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrgNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}

	return &org, nil
}

// OrgExistsByID reports whether an organization with the given ID exists
func (s *Store) OrgExistsByID(ctx context.Context, orgID uuid.UUID) (bool, error) {
	var exists bool

	query := `SELECT EXISTS (SELECT 1 FROM orgs WHERE id = $1)`

	if err := s.pool.QueryRow(ctx, query, orgID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check organization existence: %w", err)
	}

	return exists, nil
}

// orgStoreAdapter exposes the Store's org lookups under the OrgStore
// method names expected by the engine.
type orgStoreAdapter struct {
	store *Store
}

func (a orgStoreAdapter) FindByID(ctx context.Context, orgID uuid.UUID) (*Org, error) {
	return a.store.FindOrgByID(ctx, orgID)
}

func (a orgStoreAdapter) ExistsByID(ctx context.Context, orgID uuid.UUID) (bool, error) {
	return a.store.OrgExistsByID(ctx, orgID)
}
