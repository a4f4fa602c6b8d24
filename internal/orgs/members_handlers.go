package orgs

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/issuecrush/issuecrush/internal/apperrors"
	"github.com/issuecrush/issuecrush/internal/auth"
	"github.com/issuecrush/issuecrush/internal/validation"
)

// AddMemberRequest represents the request to add a member by email
type AddMemberRequest struct {
	Email string `json:"email"`
}

// MemberRoleUpdateRequest represents the request to change a member's role
type MemberRoleUpdateRequest struct {
	Role string `json:"role"`
}

// parseMembershipID reads and validates the membership_id path parameter
func parseMembershipID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "membership_id"))
}

// requireMemberOr404 resolves the caller's membership. Non-members get
// the same 404 as a missing organization. Returns false if a response
// was written.
func requireMemberOr404(w http.ResponseWriter, r *http.Request, service *Service, orgID, userID uuid.UUID) bool {
	if _, err := service.RequireMember(r.Context(), orgID, userID); err != nil {
		if errors.Is(err, ErrNotMember) {
			apperrors.WriteNotFound(w, r, "Organization not found")
			return false
		}
		log.Error().Err(err).Msg("Failed to check org membership")
		apperrors.WriteInternalError(w, r, "Failed to check permissions")
		return false
	}
	return true
}

// HandleListMembers handles GET /api/v1/orgs/{org_id}/members
func HandleListMembers(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		service := NewService(pool)
		if !requireMemberOr404(w, r, service, orgID, userID) {
			return
		}

		limit, offset := parsePagination(r)
		emailFilter := r.URL.Query().Get("email")

		members, err := service.ListMembers(ctx, orgID, emailFilter, limit, offset)
		if err != nil {
			if errors.Is(err, ErrOrgNotFound) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			log.Error().Err(err).Msg("Failed to list members")
			apperrors.WriteInternalError(w, r, "Failed to list members")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"members": members,
		})
	}
}

// HandleGetMember handles GET /api/v1/orgs/{org_id}/members/{membership_id}
func HandleGetMember(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		membershipID, err := parseMembershipID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid membership ID")
			return
		}

		service := NewService(pool)
		if !requireMemberOr404(w, r, service, orgID, userID) {
			return
		}

		member, err := service.GetMember(ctx, orgID, membershipID)
		if err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				apperrors.WriteNotFound(w, r, "Member not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get member")
			apperrors.WriteInternalError(w, r, "Failed to get member")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"member": member,
		})
	}
}

// HandleAddMember handles POST /api/v1/orgs/{org_id}/members
func HandleAddMember(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		var req AddMemberRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		req.Email = validation.NormalizeEmail(req.Email)
		if err := validation.ValidateEmail(req.Email); err != nil {
			apperrors.WriteBadRequest(w, r, err.Error())
			return
		}

		service := NewService(pool)
		member, err := service.AddMember(ctx, orgID, actorUserID, req.Email)
		if err != nil {
			if errors.Is(err, ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			if required, ok := IsUnauthorizedAction(err); ok {
				apperrors.WriteForbidden(w, r, required.Error())
				return
			}
			if errors.Is(err, ErrUserNotFound) {
				apperrors.WriteNotFound(w, r, "No user registered with that email")
				return
			}
			if errors.Is(err, ErrAlreadyMember) {
				apperrors.WriteConflict(w, r, "User is already a member of this organization")
				return
			}
			log.Error().Err(err).Msg("Failed to add member")
			apperrors.WriteInternalError(w, r, "Failed to add member")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusCreated, map[string]any{
			"member": member,
		})
	}
}

// HandleRemoveMember handles DELETE /api/v1/orgs/{org_id}/members/{membership_id}
func HandleRemoveMember(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		membershipID, err := parseMembershipID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid membership ID")
			return
		}

		service := NewService(pool)
		removedID, err := service.RemoveMember(ctx, orgID, actorUserID, membershipID)
		if err != nil {
			if errors.Is(err, ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			if errors.Is(err, ErrMemberNotFound) {
				apperrors.WriteNotFound(w, r, "Member not found")
				return
			}
			if required, ok := IsUnauthorizedAction(err); ok {
				apperrors.WriteForbidden(w, r, required.Error())
				return
			}
			if errors.Is(err, ErrCannotRemoveOwner) || errors.Is(err, ErrCannotRemoveSelf) {
				apperrors.WriteConflict(w, r, err.Error())
				return
			}
			if errors.Is(err, ErrCannotRemoveEqualOrHigherRank) || errors.Is(err, ErrCannotRemoveFromOtherOrg) {
				apperrors.WriteForbidden(w, r, err.Error())
				return
			}
			log.Error().Err(err).Msg("Failed to remove member")
			apperrors.WriteInternalError(w, r, "Failed to remove member")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"removed_membership_id": removedID,
		})
	}
}

// HandleUpdateMemberRole handles PUT /api/v1/orgs/{org_id}/members/{membership_id}/role
func HandleUpdateMemberRole(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		actorUserID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		membershipID, err := parseMembershipID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid membership ID")
			return
		}

		var req MemberRoleUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		service := NewService(pool)
		member, err := service.UpdateMemberRole(ctx, orgID, actorUserID, membershipID, req.Role)
		if err != nil {
			if errors.Is(err, ErrRoleNotFound) {
				apperrors.WriteBadRequest(w, r, "Invalid role")
				return
			}
			if errors.Is(err, ErrOrgNotFound) || errors.Is(err, ErrNotMember) {
				apperrors.WriteNotFound(w, r, "Organization not found")
				return
			}
			if errors.Is(err, ErrMemberNotFound) {
				apperrors.WriteNotFound(w, r, "Member not found")
				return
			}
			if required, ok := IsUnauthorizedAction(err); ok {
				apperrors.WriteForbidden(w, r, required.Error())
				return
			}
			if errors.Is(err, ErrCannotChangeOwnerRole) || errors.Is(err, ErrCannotAssignOwnerRole) {
				apperrors.WriteConflict(w, r, err.Error())
				return
			}
			log.Error().Err(err).Msg("Failed to update member role")
			apperrors.WriteInternalError(w, r, "Failed to update member role")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"membership_id": member.ID,
			"role":          member.Role,
		})
	}
}

// HandleMemberStatistics handles GET /api/v1/orgs/{org_id}/members/{membership_id}/statistics
func HandleMemberStatistics(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		userID := auth.GetUserID(ctx)

		orgID, err := parseOrgID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid organization ID")
			return
		}

		membershipID, err := parseMembershipID(r)
		if err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid membership ID")
			return
		}

		service := NewService(pool)
		if !requireMemberOr404(w, r, service, orgID, userID) {
			return
		}

		stats, err := service.MemberStatistics(ctx, orgID, membershipID)
		if err != nil {
			if errors.Is(err, ErrMemberNotFound) {
				apperrors.WriteNotFound(w, r, "Member not found")
				return
			}
			log.Error().Err(err).Msg("Failed to get member statistics")
			apperrors.WriteInternalError(w, r, "Failed to get member statistics")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
			"statistics": stats,
		})
	}
}
