package orgs

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
	"github.com/issuecrush/issuecrush/internal/validation"
)

// CreateRequest represents the request to create an organization
type CreateRequest struct {
	Name string `json:"name"`
}

// UpdateRequest represents the request to rename an organization
type UpdateRequest struct {
	Name string `json:"name"`
}

type OrgResponse struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	CreatedByUserID uuid.UUID `json:"created_by_user_id"`
	CreatedAt       string    `json:"created_at"`
}

type OrgListItemResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Role OrgRole   `json:"role"`
}

// parsePagination reads limit/offset query parameters with sane bounds
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

// parseOrgID reads and validates the org_id path parameter
func parseOrgID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "org_id"))
}

// HandleCreate handles POST /api/v1/orgs
func HandleCreate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		var req CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := validation.ValidateOrgName(req.Name); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		org, err := service.CreateWithOwner(ctx, req.Name, userID)
		if err != nil {
			log.Error().Err(err).Msg("Failed to create organization")
			apperrors.WriteInternalError(w, r, "Failed to create organization")
			return
		}

		resp := OrgResponse{
			ID:              org.ID,
			Name:            org.Name,
			CreatedByUserID: org.CreatedByUserID,
			CreatedAt:       org.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"org": resp,
		})
	}
}

// HandleList handles GET /api/v1/orgs
func HandleList(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)
		limit, offset := parsePagination(r)

		service := NewService(pool)
		orgs, err := service.ListForUser(ctx, userID, limit, offset)
		if err != nil {
			log.Error().Err(err).Msg("Failed to list organizations")
			apperrors.WriteInternalError(w, r, "Failed to list organizations")
			return
		}

		resp := make([]OrgListItemResponse, len(orgs))
		for i, org := range orgs {
			resp[i] = OrgListItemResponse{
				ID:   org.ID,
				Name: org.Name,
				Role: org.Role,
			}
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"orgs": resp,
		})
	}
}

// HandleGet handles GET /api/v1/orgs/{org_id}
func HandleGet(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		service := NewService(pool)
		membership, err := service.RequireMember(ctx, orgID, userID)
		if err != nil {
			if errors.Is(err, ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to check org membership")
			apperrors.WriteInternalError(w, r, "Failed to check permissions")
			return
		}

		org, err := service.GetByID(ctx, orgID)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get organization")
			apperrors.WriteInternalError(w, r, "Failed to get organization")
			return
		}

		resp := OrgResponse{
			ID:              org.ID,
			Name:            org.Name,
			CreatedByUserID: org.CreatedByUserID,
			CreatedAt:       org.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"org":  resp,
			"role": membership.Role,
		})
	}
}

// HandleUpdate handles PUT /api/v1/orgs/{org_id}
func HandleUpdate(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req UpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		if err := validation.ValidateOrgName(req.Name); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		org, err := service.UpdateName(ctx, orgID, userID, req.Name)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			if errors.Is(err, ErrNotOrgCreator) {
				apperrors.WriteForbidden(w, r, "Only the organization creator can rename it")
				return
			}
			log.Error().Err(err).Msg("Failed to update organization")
			apperrors.WriteInternalError(w, r, "Failed to update organization")
			return
		}

		resp := OrgResponse{
			ID:              org.ID,
			Name:            org.Name,
			CreatedByUserID: org.CreatedByUserID,
			CreatedAt:       org.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"org": resp,
		})
	}
}

// HandleDelete handles DELETE /api/v1/orgs/{org_id}
func HandleDelete(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		service := NewService(pool)
		deletedID, err := service.Delete(ctx, orgID, userID)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			if errors.Is(err, ErrNotOrgCreator) {
				apperrors.WriteForbidden(w, r, "Only the organization creator can delete it")
				return
			}
			log.Error().Err(err).Msg("Failed to delete organization")
			apperrors.WriteInternalError(w, r, "Failed to delete organization")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"deleted_org_id": deletedID,
		})
	}
}

// HandleStatistics handles GET /api/v1/orgs/{org_id}/statistics
func HandleStatistics(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		service := NewService(pool)
		if _, err := service.RequireMember(ctx, orgID, userID); err != nil {
			if errors.Is(err, ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to check org membership")
			apperrors.WriteInternalError(w, r, "Failed to check permissions")
			return
		}

		stats, err := service.Statistics(ctx, orgID)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get organization statistics")
			apperrors.WriteInternalError(w, r, "Failed to get organization statistics")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"statistics": stats,
		})
	}
}
