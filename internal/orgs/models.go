package orgs

import (
	"time"

	"github.com/google/uuid"
)

// Org represents one isolated organization (tenant)
type Org struct {
	ID              uuid.UUID `db:"id"`
	Name            string    `db:"name"`
	CreatedByUserID uuid.UUID `db:"created_by_user_id"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

// Membership represents a user's participation in one organization
type Membership struct {
	ID        uuid.UUID `db:"id"`
	OrgID     uuid.UUID `db:"org_id"`
	UserID    uuid.UUID `db:"user_id"`
	Role      OrgRole   `db:"role"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// OrgWithRole combines org information with the requesting user's role
type OrgWithRole struct {
	Org
	Role OrgRole `db:"role"`
}

// MemberInfo represents a member of an organization with their details
type MemberInfo struct {
	MembershipID uuid.UUID `db:"membership_id" json:"membership_id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	Email        string    `db:"email" json:"email"`
	Role         OrgRole   `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Statistics aggregates counts across an organization
type Statistics struct {
	TotalTickets  int64 `json:"total_tickets"`
	TotalComments int64 `json:"total_comments"`
	OpenTickets   int64 `json:"open_tickets"`
	ClosedTickets int64 `json:"closed_tickets"`
	TotalMembers  int64 `json:"total_members"`
}

// MemberStatistics aggregates counts for a single member's authored content
type MemberStatistics struct {
	TotalTickets  int64 `json:"total_tickets"`
	TotalComments int64 `json:"total_comments"`
	OpenTickets   int64 `json:"open_tickets"`
	ClosedTickets int64 `json:"closed_tickets"`
}
