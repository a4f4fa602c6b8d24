package tickets

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/issuecrush/issuecrush/internal/apperrors"
	"github.com/issuecrush/issuecrush/internal/auth"
	"github.com/issuecrush/issuecrush/internal/orgs"
	"github.com/issuecrush/issuecrush/internal/validation"
)

// CreateTicketRequest represents the request to file a ticket
type CreateTicketRequest struct {
	Title      string `json:"title"`
	Content    string `json:"content"`
	Priority   string `json:"priority"`
	Department string `json:"department"`
	Open       *bool  `json:"open"`
}

// UpdateTicketRequest represents a partial ticket update.
// Omitted fields keep their current values.
type UpdateTicketRequest struct {
	Title           *string    `json:"title"`
	Content         *string    `json:"content"`
	Priority        *string    `json:"priority"`
	Department      *string    `json:"department"`
	Open            *bool      `json:"open"`
	AssignedAgentID *uuid.UUID `json:"assigned_agent_id"`
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

// writeAuthzError maps authorization failures to HTTP responses.
// Returns false if err was not an authorization failure.
func writeAuthzError(w http.ResponseWriter, r *http.Request, err error) bool {
	if required, ok := orgs.IsUnauthorizedAction(err); ok {
		apperrors.WriteForbidden(w, r, required.Error())
		return true
	}
	return false
}

// HandleCreate handles POST /api/v1/orgs/{org_id}/tickets
func HandleCreate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req CreateTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := validation.ValidateTicketTitle(req.Title); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}
		if err := validation.ValidateContent(req.Content); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		priority, err := PriorityFromString(req.Priority)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid priority")
			return
		}
		department, err := DepartmentFromString(req.Department)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid department")
			return
		}

		open := true
		if req.Open != nil {
			open = *req.Open
		}

		service := NewService(pool)
		ticket, err := service.Create(ctx, orgID, userID, CreateParams{
			Title:      req.Title,
			Content:    req.Content,
			Priority:   priority,
			Department: department,
			Open:       open,
		})
		if err != nil {
			if errors.Is(err, orgs.ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to create ticket")
			apperrors.WriteInternalError(w, r, "Failed to create ticket")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"ticket": ticket,
		})
	}
}

// HandleList handles GET /api/v1/orgs/{org_id}/tickets
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := uuid.Parse(chi.URLParam(r, "org_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		orgService := orgs.NewService(pool)
		if _, err := orgService.RequireMember(ctx, orgID, userID); err != nil {
			if errors.Is(err, orgs.ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to check org membership")
			apperrors.WriteInternalError(w, r, "Failed to check permissions")
			return
		}

		var filter ListFilter
		filter.Title = r.URL.Query().Get("title")
		if v := r.URL.Query().Get("publisher_id"); v != "" {
			publisherID, err := uuid.Parse(v)
			if err != nil {
				apperrors.WriteBadRequest(w, r, "Invalid publisher ID")
				return
			}
			filter.PublisherID = &publisherID
		}

		limit, offset := parsePagination(r)

		service := NewService(pool)
		result, err := service.List(ctx, orgID, filter, limit, offset)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list tickets")
			apperrors.WriteInternalError(w, r, "Failed to list tickets")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"tickets": result,
		})
	}
}

// HandleGet handles GET /api/v1/tickets/{ticket_id}
func HandleGet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		ticketID, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid ticket ID")
			return
		}

		service := NewService(pool)
		ticket, err := service.GetForActor(ctx, ticketID, userID)
		if err != nil {
			if errors.Is(err, ErrTicketNotFound) {
				apperrors.WriteNotFound(w, r, "Ticket not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get ticket")
			apperrors.WriteInternalError(w, r, "Failed to get ticket")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"ticket": ticket,
		})
	}
}

// HandleUpdate handles PUT /api/v1/tickets/{ticket_id}
func HandleUpdate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		ticketID, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid ticket ID")
			return
		}

		var req UpdateTicketRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		var params UpdateParams
		if req.Title != nil {
			if err := validation.ValidateTicketTitle(*req.Title); err != nil {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			params.Title = req.Title
		}
		if req.Content != nil {
			if err := validation.ValidateContent(*req.Content); err != nil {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			params.Content = req.Content
		}
		if req.Priority != nil {
			priority, err := PriorityFromString(*req.Priority)
			if err != nil {
				apperrors.WriteBadRequest(w, r, "Invalid priority")
				return
			}
			params.Priority = &priority
		}
		if req.Department != nil {
			department, err := DepartmentFromString(*req.Department)
			if err != nil {
				apperrors.WriteBadRequest(w, r, "Invalid department")
				return
			}
			params.Department = &department
		}
		params.Open = req.Open
		params.AssignedAgentID = req.AssignedAgentID

		service := NewService(pool)
		ticket, err := service.Update(ctx, ticketID, userID, params)
		if err != nil {
			if errors.Is(err, ErrTicketNotFound) {
				apperrors.WriteNotFound(w, r, "Ticket not found")
				return
			}
			if writeAuthzError(w, r, err) {
				return
			}
			if errors.Is(err, ErrAgentNotMember) {
				apperrors.WriteBadRequest(w, r, err.Error())
				return
			}
			log.Error().Err(err).Msg("Failed to update ticket")
			apperrors.WriteInternalError(w, r, "Failed to update ticket")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"ticket": ticket,
		})
	}
}

// HandleDelete handles DELETE /api/v1/tickets/{ticket_id}
func HandleDelete(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		ticketID, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid ticket ID")
			return
		}

		service := NewService(pool)
		deletedID, err := service.Delete(ctx, ticketID, userID)
		if err != nil {
			if errors.Is(err, ErrTicketNotFound) {
				apperrors.WriteNotFound(w, r, "Ticket not found")
				return
			}
			if writeAuthzError(w, r, err) {
				return
			}
			log.Error().Err(err).Msg("Failed to delete ticket")
			apperrors.WriteInternalError(w, r, "Failed to delete ticket")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted_ticket_id": deletedID,
		})
	}
}
