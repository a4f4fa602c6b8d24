package comments

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
	"github.com/issuecrush/issuecrush/internal/tickets"
	"github.com/issuecrush/issuecrush/internal/validation"
)

// CommentRequest represents the request to create or update a comment
type CommentRequest struct {
	Content string `json:"content"`
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

// HandleCreate handles POST /api/v1/tickets/{ticket_id}/comments
func HandleCreate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		ticketID, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid ticket ID")
			return
		}

		var req CommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := validation.ValidateContent(req.Content); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		comment, err := service.Create(ctx, ticketID, userID, req.Content)
		if err != nil {
			if errors.Is(err, tickets.ErrTicketNotFound) {
				apperrors.WriteNotFound(w, r, "Ticket not found")
				return
			}
			log.Error().Err(err).Msg("Failed to create comment")
			apperrors.WriteInternalError(w, r, "Failed to create comment")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"comment": comment,
		})
	}
}

// HandleListForTicket handles GET /api/v1/tickets/{ticket_id}/comments
func HandleListForTicket(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		ticketID, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid ticket ID")
			return
		}

		limit, offset := parsePagination(r)
		contentFilter := r.URL.Query().Get("content")

		service := NewService(pool)
		result, err := service.ListForTicket(ctx, ticketID, userID, contentFilter, limit, offset)
		if err != nil {
			if errors.Is(err, tickets.ErrTicketNotFound) {
				apperrors.WriteNotFound(w, r, "Ticket not found")
				return
			}
			log.Error().Err(err).Msg("Failed to list comments")
			apperrors.WriteInternalError(w, r, "Failed to list comments")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"comments": result,
		})
	}
}

// HandleCountForTicket handles GET /api/v1/tickets/{ticket_id}/comments/count
func HandleCountForTicket(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		ticketID, err := uuid.Parse(chi.URLParam(r, "ticket_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid ticket ID")
			return
		}

		service := NewService(pool)
		count, err := service.CountForTicket(ctx, ticketID, userID)
		if err != nil {
			if errors.Is(err, tickets.ErrTicketNotFound) {
				apperrors.WriteNotFound(w, r, "Ticket not found")
				return
			}
			log.Error().Err(err).Msg("Failed to count comments")
			apperrors.WriteInternalError(w, r, "Failed to count comments")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"count": count,
		})
	}
}

// HandleGet handles GET /api/v1/comments/{comment_id}
func HandleGet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		commentID, err := uuid.Parse(chi.URLParam(r, "comment_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid comment ID")
			return
		}

		service := NewService(pool)
		comment, err := service.Get(ctx, commentID, userID)
		if err != nil {
			if errors.Is(err, ErrCommentNotFound) {
				apperrors.WriteNotFound(w, r, "Comment not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get comment")
			apperrors.WriteInternalError(w, r, "Failed to get comment")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"comment": comment,
		})
	}
}

// HandleUpdate handles PUT /api/v1/comments/{comment_id}
func HandleUpdate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		commentID, err := uuid.Parse(chi.URLParam(r, "comment_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid comment ID")
			return
		}

		var req CommentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := validation.ValidateContent(req.Content); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		comment, err := service.Update(ctx, commentID, userID, req.Content)
		if err != nil {
			if errors.Is(err, ErrCommentNotFound) {
				apperrors.WriteNotFound(w, r, "Comment not found")
				return
			}
			if required, ok := orgs.IsUnauthorizedAction(err); ok {
				apperrors.WriteForbidden(w, r, required.Error())
				return
			}
			log.Error().Err(err).Msg("Failed to update comment")
			apperrors.WriteInternalError(w, r, "Failed to update comment")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"comment": comment,
		})
	}
}

// HandleDelete handles DELETE /api/v1/comments/{comment_id}
func HandleDelete(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		commentID, err := uuid.Parse(chi.URLParam(r, "comment_id"))
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid comment ID")
			return
		}

		service := NewService(pool)
		deletedID, err := service.Delete(ctx, commentID, userID)
		if err != nil {
			if errors.Is(err, ErrCommentNotFound) {
				apperrors.WriteNotFound(w, r, "Comment not found")
				return
			}
			if required, ok := orgs.IsUnauthorizedAction(err); ok {
				apperrors.WriteForbidden(w, r, required.Error())
				return
			}
			log.Error().Err(err).Msg("Failed to delete comment")
			apperrors.WriteInternalError(w, r, "Failed to delete comment")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted_comment_id": deletedID,
		})
	}
}
