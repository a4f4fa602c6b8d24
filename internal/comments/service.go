package comments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/issuecrush/issuecrush/internal/orgs"
	"github.com/issuecrush/issuecrush/internal/tickets"
)

const commentColumns = `id, ticket_id, publisher_id, content, created_at, updated_at`

// Service provides comment operations on tickets
type Service struct {
	pool    *pgxpool.Pool
	members *orgs.Store
	engine  *orgs.Engine
	tickets *tickets.Service
}

// NewService creates a new comment service
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{
		pool:    pool,
		members: orgs.NewStore(pool),
		engine:  orgs.NewEngineFromPool(pool),
		tickets: tickets.NewService(pool),
	}
}

func scanComment(row pgx.Row) (*Comment, error) {
	var c Comment
	err := row.Scan(
		&c.ID,
		&c.TicketID,
		&c.PublisherID,
		&c.Content,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to scan comment: %w", err)
	}
	return &c, nil
}

// resolveActor loads the comment's ticket and the actor's membership
// in the ticket's organization. Outsiders get ErrCommentNotFound.
func (s *Service) resolveActor(ctx context.Context, ticketID, actorUserID uuid.UUID) (*tickets.Ticket, *orgs.Membership, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		if errors.Is(err, tickets.ErrTicketNotFound) {
			return nil, nil, ErrCommentNotFound
		}
		return nil, nil, err
	}

	actor, err := s.members.FindByUserAndOrg(ctx, actorUserID, ticket.OrgID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotMember) {
			return nil, nil, ErrCommentNotFound
		}
		return nil, nil, err
	}

	return ticket, actor, nil
}

// Create adds a comment to a ticket, published by the acting user's
// membership in the ticket's organization. Any member may comment.
func (s *Service) Create(ctx context.Context, ticketID, actorUserID uuid.UUID, content string) (*Comment, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	publisher, err := s.members.FindByUserAndOrg(ctx, actorUserID, ticket.OrgID)
	if err != nil {
		if errors.Is(err, orgs.ErrNotMember) {
			return nil, tickets.ErrTicketNotFound
		}
		return nil, err
	}

	query := `
		INSERT INTO ticket_comments (ticket_id, publisher_id, content)
		VALUES ($1, $2, $3)
		RETURNING ` + commentColumns

	comment, err := scanComment(s.pool.QueryRow(ctx, query, ticket.ID, publisher.ID, content))
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// Get retrieves a comment, requiring the acting user to be a member of
// the owning ticket's organization.
func (s *Service) Get(ctx context.Context, commentID, actorUserID uuid.UUID) (*Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM ticket_comments WHERE id = $1`
	comment, err := scanComment(s.pool.QueryRow(ctx, query, commentID))
	if err != nil {
		return nil, err
	}

	if _, _, err := s.resolveActor(ctx, comment.TicketID, actorUserID); err != nil {
		return nil, err
	}

	return comment, nil
}

// ListForTicket retrieves a ticket's comments, oldest first, optionally
// narrowed to a case-insensitive content substring.
func (s *Service) ListForTicket(ctx context.Context, ticketID, actorUserID uuid.UUID, contentFilter string, limit, offset int) ([]Comment, error) {
	if _, _, err := s.resolveActor(ctx, ticketID, actorUserID); err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return nil, tickets.ErrTicketNotFound
		}
		return nil, err
	}

	query := `
		SELECT ` + commentColumns + `
		FROM ticket_comments
		WHERE ticket_id = $1
		  AND ($2 = '' OR content ILIKE '%' || $2 || '%')
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`

	rows, err := s.pool.Query(ctx, query, ticketID, contentFilter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var result []Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}

	return result, nil
}

// CountForTicket returns the number of comments on a ticket
func (s *Service) CountForTicket(ctx context.Context, ticketID, actorUserID uuid.UUID) (int64, error) {
	if _, _, err := s.resolveActor(ctx, ticketID, actorUserID); err != nil {
		if errors.Is(err, ErrCommentNotFound) {
			return 0, tickets.ErrTicketNotFound
		}
		return 0, err
	}

	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_comments WHERE ticket_id = $1`, ticketID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}

	return count, nil
}

// Update replaces a comment's content. The actor needs ADMIN rank in
// the ticket's organization, or to be the comment's publisher.
func (s *Service) Update(ctx context.Context, commentID, actorUserID uuid.UUID, content string) (*Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM ticket_comments WHERE id = $1`
	comment, err := scanComment(s.pool.QueryRow(ctx, query, commentID))
	if err != nil {
		return nil, err
	}

	ticket, actor, err := s.resolveActor(ctx, comment.TicketID, actorUserID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.AuthorizeResourceAction(ctx, orgs.ActionUpdateComment, actor.ID, comment.PublisherID, ticket.OrgID); err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE ticket_comments
		SET content = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + commentColumns

	updated, err := scanComment(s.pool.QueryRow(ctx, updateQuery, comment.ID, content))
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes a comment. The actor needs ADMIN rank in the ticket's
// organization, or to be the comment's publisher. Returns the deleted
// comment's ID.
func (s *Service) Delete(ctx context.Context, commentID, actorUserID uuid.UUID) (uuid.UUID, error) {
	query := `SELECT ` + commentColumns + ` FROM ticket_comments WHERE id = $1`
	comment, err := scanComment(s.pool.QueryRow(ctx, query, commentID))
	if err != nil {
		return uuid.Nil, err
	}

	ticket, actor, err := s.resolveActor(ctx, comment.TicketID, actorUserID)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.engine.AuthorizeResourceAction(ctx, orgs.ActionDeleteComment, actor.ID, comment.PublisherID, ticket.OrgID); err != nil {
		return uuid.Nil, err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM ticket_comments WHERE id = $1`, comment.ID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to delete comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return uuid.Nil, ErrCommentNotFound
	}

	return comment.ID, nil
}
