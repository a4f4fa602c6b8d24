package tickets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/issuecrush/issuecrush/internal/orgs"
)

const ticketColumns = `id, org_id, publisher_id, assigned_agent_id, open, title, content, priority, department, created_at, updated_at`

// Service provides ticket operations within organizations
type Service struct {
	pool    *pgxpool.Pool
	members *orgs.Store
	engine  *orgs.Engine
}

// NewService creates a new ticket service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{
		pool:    pool,
		members: orgs.NewStore(pool),
		engine:  orgs.NewEngineFromPool(pool),
	}
}

// CreateParams holds the fields for a new ticket
type CreateParams struct {
	Title      string
	Content    string
	Priority   TicketPriority
	Department TicketDepartment
	Open       bool
}

// UpdateParams holds a partial ticket update. Nil fields are left
// unchanged. An AssignedAgentID of uuid.Nil clears the assignment.
type UpdateParams struct {
	Title           *string
	Content         *string
	Priority        *TicketPriority
	Department      *TicketDepartment
	Open            *bool
	AssignedAgentID *uuid.UUID
}

// ListFilter narrows a ticket listing. A nil PublisherID matches all
// publishers; an empty Title matches all titles.
type ListFilter struct {
	PublisherID *uuid.UUID
	Title       string
}

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(
		&t.ID,
		&t.OrgID,
		&t.PublisherID,
		&t.AssignedAgentID,
		&t.Open,
		&t.Title,
		&t.Content,
		&t.Priority,
		&t.Department,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	return &t, nil
}

// Create files a new ticket in the organization, published by the
// acting user's membership. Any member may create tickets.
func (s *Service) Create(ctx context.Context, orgID, actorUserID uuid.UUID, params CreateParams) (*Ticket, error) {
	publisher, err := s.members.FindByUserAndOrg(ctx, actorUserID, orgID)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tickets (org_id, publisher_id, open, title, content, priority, department)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + ticketColumns

	row := s.pool.QueryRow(ctx, query,
		orgID,
		publisher.ID,
		params.Open,
		params.Title,
		params.Content,
		params.Priority,
		params.Department,
	)
	ticket, err := scanTicket(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	return ticket, nil
}

// Get retrieves a ticket by ID
func (s *Service) Get(ctx context.Context, ticketID uuid.UUID) (*Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = $1`
	return scanTicket(s.pool.QueryRow(ctx, query, ticketID))
}

// GetForActor retrieves a ticket, requiring the acting user to be a
// member of the ticket's organization. Outsiders get ErrTicketNotFound.
func (s *Service) GetForActor(ctx context.Context, ticketID, actorUserID uuid.UUID) (*Ticket, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if _, err := s.members.FindByUserAndOrg(ctx, actorUserID, ticket.OrgID); err != nil {
		if errors.Is(err, orgs.ErrNotMember) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	return ticket, nil
}

// List retrieves an organization's tickets, newest first, optionally
// narrowed to one publisher and a case-insensitive title substring.
func (s *Service) List(ctx context.Context, orgID uuid.UUID, filter ListFilter, limit, offset int) ([]Ticket, error) {
	query := `
		SELECT ` + ticketColumns + `
		FROM tickets
		WHERE org_id = $1
		  AND ($2::uuid IS NULL OR publisher_id = $2)
		  AND ($3 = '' OR title ILIKE '%' || $3 || '%')
		ORDER BY created_at DESC
		LIMIT $4 OFFSET $5
	`

	rows, err := s.pool.Query(ctx, query, orgID, filter.PublisherID, filter.Title, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var result []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ticket rows: %w", err)
	}

	return result, nil
}

// Update applies a partial update to a ticket. The actor needs
// MODERATOR rank in the ticket's organization, or to be the ticket's
// publisher. Assigning an agent verifies the agent's membership belongs
// to the same organization.
func (s *Service) Update(ctx context.Context, ticketID, actorUserID uuid.UUID, params UpdateParams) (*Ticket, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	actor, err := s.members.FindByUserAndOrg(ctx, actorUserID, ticket.OrgID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotMember) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if err := s.engine.AuthorizeResourceAction(ctx, orgs.ActionUpdateTicket, actor.ID, ticket.PublisherID, ticket.OrgID); err != nil {
		return nil, err
	}

	if params.Title != nil {
		ticket.Title = *params.Title
	}
	if params.Content != nil {
		ticket.Content = *params.Content
	}
	if params.Priority != nil {
		ticket.Priority = *params.Priority
	}
	if params.Department != nil {
		ticket.Department = *params.Department
	}
	if params.Open != nil {
		ticket.Open = *params.Open
	}
	if params.AssignedAgentID != nil {
		if *params.AssignedAgentID == uuid.Nil {
			ticket.AssignedAgentID = nil
		} else {
			agent, err := s.members.FindByID(ctx, *params.AssignedAgentID)
			if err != nil {
				if errors.Is(err, orgs.ErrMemberNotFound) {
					return nil, ErrAgentNotMember
				}
				return nil, err
			}
			if agent.OrgID != ticket.OrgID {
				return nil, ErrAgentNotMember
			}
			ticket.AssignedAgentID = &agent.ID
		}
	}

	query := `
		UPDATE tickets
		SET title = $2, content = $3, priority = $4, department = $5,
		    open = $6, assigned_agent_id = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + ticketColumns

	updated, err := scanTicket(s.pool.QueryRow(ctx, query,
		ticket.ID,
		ticket.Title,
		ticket.Content,
		ticket.Priority,
		ticket.Department,
		ticket.Open,
		ticket.AssignedAgentID,
	))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a ticket and, by schema cascade, its comments. The
// actor needs ADMIN rank in the ticket's organization, or to be the
// ticket's publisher. Returns the deleted ticket's ID.
func (s *Service) Delete(ctx context.Context, ticketID, actorUserID uuid.UUID) (uuid.UUID, error) {
	ticket, err := s.Get(ctx, ticketID)
	if err != nil {
		return uuid.Nil, err
	}

	actor, err := s.members.FindByUserAndOrg(ctx, actorUserID, ticket.OrgID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotMember) {
			return uuid.Nil, ErrTicketNotFound
		}
		return uuid.Nil, err
	}

	if err := s.engine.AuthorizeResourceAction(ctx, orgs.ActionDeleteTicket, actor.ID, ticket.PublisherID, ticket.OrgID); err != nil {
		return uuid.Nil, err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM tickets WHERE id = $1`, ticket.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete ticket: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, ErrTicketNotFound
	}

	return ticket.ID, nil
}
