package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/issuecrush/issuecrush/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// SignupRequest represents the signup request payload
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupResponse represents the signup response
type SignupResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// HandleSignup processes user registration
func HandleSignup(pool *pgxpool.Pool, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SignupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))

		// Validate email format (RFC 5322 simplified)
		if !isValidEmail(email) {
			apperrors.WriteBadRequest(w, r, "Invalid email address")
			return
		}

		if len(req.Password) < 8 {
			apperrors.WriteBadRequest(w, r, "Password must be at least 8 characters")
			return
		}

		passwordHash, err := HashPassword(req.Password)
		if err != nil {
			log.Error().Err(err).Msg("Failed to hash password")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		userID := uuid.New()
		query := `
			INSERT INTO users (id, email, password_hash)
			VALUES ($1, $2, $3)
		`

		_, err = pool.Exec(r.Context(), query, userID, email, passwordHash)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" { // unique_violation
				apperrors.WriteConflict(w, r, "Email address already registered")
				return
			}

			log.Error().Err(err).Str("email", email).Msg("Failed to insert user")
			apperrors.WriteInternalError(w, r, "Failed to create account")
			return
		}

		if err := startSession(w, userID, jwtSecret, sessionDays, isProduction); err != nil {
			log.Error().Err(err).Msg("Failed to create session")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}

		log.Info().
			Str("user_id", userID.String()).
			Str("email", email).
			Msg("User signed up successfully")

		apperrors.WriteSuccess(w, r, http.StatusCreated, SignupResponse{
			UserID: userID,
			Email:  email,
		})
	}
}

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// HandleLogin processes user authentication
func HandleLogin(pool *pgxpool.Pool, jwtSecret string, sessionDays int, isProduction bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apperrors.WriteBadRequest(w, r, "Invalid request body")
			return
		}

		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || req.Password == "" {
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		var userID uuid.UUID
		var passwordHash string
		query := `SELECT id, password_hash FROM users WHERE email = $1`

		err := pool.QueryRow(r.Context(), query, email).Scan(&userID, &passwordHash)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				// Unknown user - return the same generic error as a wrong password
				log.Debug().Str("email", email).Msg("Login failed: user not found")
				apperrors.WriteUnauthorized(w, r, "Invalid credentials")
				return
			}
			log.Error().Err(err).Str("email", email).Msg("Failed to query user")
			apperrors.WriteInternalError(w, r, "Login failed")
			return
		}

		if err := VerifyPassword(passwordHash, req.Password); err != nil {
			log.Debug().Str("email", email).Msg("Login failed: wrong password")
			apperrors.WriteUnauthorized(w, r, "Invalid credentials")
			return
		}

		if err := startSession(w, userID, jwtSecret, sessionDays, isProduction); err != nil {
			log.Error().Err(err).Msg("Failed to create session")
			apperrors.WriteInternalError(w, r, "Failed to create session")
			return
		}

		log.Info().
			Str("user_id", userID.String()).
			Str("email", email).
			Msg("User logged in successfully")

		apperrors.WriteSuccess(w, r, http.StatusOK, LoginResponse{
			UserID: userID,
			Email:  email,
		})
	}
}

// HandleLogout clears the session and CSRF cookies
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	ClearSessionCookie(w)

	userID := GetUserID(r.Context())
	if userID != uuid.Nil {
		log.Info().Str("user_id", userID.String()).Msg("User logged out")
	}

	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]any{
		"logged_out": true,
	})
}

// startSession issues the JWT session cookie plus a fresh CSRF cookie
func startSession(w http.ResponseWriter, userID uuid.UUID, jwtSecret string, sessionDays int, isProduction bool) error {
	token, err := CreateToken(userID, jwtSecret, sessionDays)
	if err != nil {
		return err
	}
	SetSessionCookie(w, token, sessionDays, isProduction)

	csrfToken, err := GenerateCSRFToken()
	if err != nil {
		return err
	}
	SetCSRFCookie(w, csrfToken, isProduction)

	return nil
}

// isValidEmail validates email format using net/mail (RFC 5322 simplified)
func isValidEmail(email string) bool {
	_, err := mail.ParseAddress(email)
	return err == nil
}
