package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/issuecrush/issuecrush/internal/apperrors"
	"github.com/issuecrush/issuecrush/internal/auth"
	"github.com/issuecrush/issuecrush/internal/comments"
	"github.com/issuecrush/issuecrush/internal/config"
	"github.com/issuecrush/issuecrush/internal/orgs"
	"github.com/issuecrush/issuecrush/internal/tickets"
)

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(pool *pgxpool.Pool, cfg *config.Config) *chi.Mux {
	r := chi.NewRouter()

	isProduction := !cfg.IsDev()

	// Middleware stack
	r.Use(middleware.RealIP)              // Set RemoteAddr to real IP
	r.Use(apperrors.RequestIDMiddleware)  // Add request ID to context
	r.Use(LoggingMiddleware)              // Structured request logging
	r.Use(RecoveryMiddleware)             // Recover from panics
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.BaseURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(auth.AuthMiddleware(cfg.JWTSecret)) // Validate session cookies

	// Health check routes (no authentication required)
	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", handleReadyz(pool))

	// API routes - Authentication
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware)

		r.Post("/signup", auth.HandleSignup(pool, cfg.JWTSecret, cfg.SessionDays, isProduction))
		r.With(LoginRateLimitMiddleware(cfg.LoginRateLimitRPM)).
			Post("/login", auth.HandleLogin(pool, cfg.JWTSecret, cfg.SessionDays, isProduction))
		r.With(auth.RequireAuth).Post("/logout", http.HandlerFunc(auth.HandleLogout))
	})

	// API routes - Organizations
	r.Route("/api/v1/orgs", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware)
		r.Use(auth.RequireAuth)

		// Organization CRUD
		r.Post("/", orgs.HandleCreate(pool))
		r.Get("/", orgs.HandleList(pool))
		r.Get("/{org_id}", orgs.HandleGet(pool))
		r.Put("/{org_id}", orgs.HandleUpdate(pool))
		r.Delete("/{org_id}", orgs.HandleDelete(pool))
		r.Get("/{org_id}/statistics", orgs.HandleStatistics(pool))

		// Membership management
		r.Get("/{org_id}/members", orgs.HandleListMembers(pool))
		r.Post("/{org_id}/members", orgs.HandleAddMember(pool))
		r.Get("/{org_id}/members/{membership_id}", orgs.HandleGetMember(pool))
		r.Delete("/{org_id}/members/{membership_id}", orgs.HandleRemoveMember(pool))
		r.Put("/{org_id}/members/{membership_id}/role", orgs.HandleUpdateMemberRole(pool))
		r.Get("/{org_id}/members/{membership_id}/statistics", orgs.HandleMemberStatistics(pool))

		// Tickets under organization
		r.Post("/{org_id}/tickets", tickets.HandleCreate(pool))
		r.Get("/{org_id}/tickets", tickets.HandleList(pool))
	})

	// API routes - Tickets
	r.Route("/api/v1/tickets", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware)
		r.Use(auth.RequireAuth)

		r.Get("/{ticket_id}", tickets.HandleGet(pool))
		r.Put("/{ticket_id}", tickets.HandleUpdate(pool))
		r.Delete("/{ticket_id}", tickets.HandleDelete(pool))

		// Comments under ticket
		r.Post("/{ticket_id}/comments", comments.HandleCreate(pool))
		r.Get("/{ticket_id}/comments", comments.HandleListForTicket(pool))
		r.Get("/{ticket_id}/comments/count", comments.HandleCountForTicket(pool))
	})

	// API routes - Comments
	r.Route("/api/v1/comments", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(CSRFMiddleware)
		r.Use(auth.RequireAuth)

		r.Get("/{comment_id}", comments.HandleGet(pool))
		r.Put("/{comment_id}", comments.HandleUpdate(pool))
		r.Delete("/{comment_id}", comments.HandleDelete(pool))
	})

	return r
}

// handleHealthz returns a simple liveness check
// Always returns 200 OK if the service is running
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleReadyz returns a readiness check that includes database connectivity
// Returns 200 OK if service is ready to accept traffic, 503 if not
func handleReadyz(pool *pgxpool.Pool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := pool.Ping(r.Context()); err != nil {
			apperrors.WriteServiceUnavailable(w, r, "Database connection failed")
			return
		}

		apperrors.WriteSuccess(w, r, http.StatusOK, map[string]string{
			"status": "ready",
			"db":     "ok",
		})
	}
}
