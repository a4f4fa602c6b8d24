package comments

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrCommentNotFound is returned when a comment is not found
var ErrCommentNotFound = errors.New("comment not found")

// Comment represents one comment on a ticket.
// PublisherID references an org membership, not a user.
type Comment struct {
	ID          uuid.UUID `json:"id"`
	TicketID    uuid.UUID `json:"ticket_id"`
	PublisherID uuid.UUID `json:"publisher_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
