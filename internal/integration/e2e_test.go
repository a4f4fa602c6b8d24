package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/issuecrush/issuecrush/internal/app"
	"github.com/issuecrush/issuecrush/internal/auth"
	"github.com/issuecrush/issuecrush/internal/config"
	"github.com/issuecrush/issuecrush/internal/orgs"
)

type envelopeResponse struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
}

func testConfig() *config.Config {
	return &config.Config{
		Env:               "dev",
		HTTPAddr:          ":0",
		BaseURL:           "http://localhost",
		DBDSN:             "unused",
		JWTSecret:         "test-secret",
		LogLevel:          "error",
		LoginRateLimitRPM: 120,
		SessionDays:       7,
		StaleTicketDays:   60,
	}
}

func newTestServer(t *testing.T, pool *pgxpool.Pool) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(app.NewRouter(pool, testConfig()))
	t.Cleanup(srv.Close)
	return srv
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// csrfToken reads the server-issued CSRF cookie from the client's jar.
// Empty before the first signup or login.
func csrfToken(t *testing.T, client *http.Client, baseURL string) string {
	t.Helper()
	u, err := url.Parse(baseURL)
	require.NoError(t, err)
	for _, c := range client.Jar.Cookies(u) {
		if c.Name == auth.CSRFCookieName {
			return c.Value
		}
	}
	return ""
}

func doJSON(t *testing.T, client *http.Client, method, urlStr string, wantStatus int, payload any) envelopeResponse {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, urlStr, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token := csrfToken(t, client, urlStr); token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "%s %s body: %s", method, urlStr, string(raw))

	var env envelopeResponse
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func doJSONExpectError(t *testing.T, client *http.Client, method, urlStr string, wantStatus int, payload any) errorEnvelope {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, urlStr, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token := csrfToken(t, client, urlStr); token != "" {
		req.Header.Set("X-CSRF-Token", token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "%s %s body: %s", method, urlStr, string(raw))

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(raw, &env))
	return env
}

func signup(t *testing.T, client *http.Client, baseURL, email, password string) uuid.UUID {
	t.Helper()

	env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/signup", http.StatusCreated, map[string]any{
		"email":    email,
		"password": password,
	})

	var parsed struct {
		UserID uuid.UUID `json:"user_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))
	require.NotEqual(t, uuid.Nil, parsed.UserID)
	return parsed.UserID
}

func createOrg(t *testing.T, client *http.Client, baseURL, name string) uuid.UUID {
	t.Helper()

	env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/orgs", http.StatusCreated, map[string]any{
		"name": name,
	})

	var parsed struct {
		Org struct {
			ID uuid.UUID `json:"id"`
		} `json:"org"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))
	return parsed.Org.ID
}

func addMember(t *testing.T, client *http.Client, baseURL string, orgID uuid.UUID, email string) uuid.UUID {
	t.Helper()

	env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/orgs/"+orgID.String()+"/members", http.StatusCreated, map[string]any{
		"email": email,
	})

	var parsed struct {
		Member orgs.MemberInfo `json:"member"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))
	return parsed.Member.MembershipID
}

func listMembers(t *testing.T, client *http.Client, baseURL string, orgID uuid.UUID) []orgs.MemberInfo {
	t.Helper()

	env := doJSON(t, client, http.MethodGet, baseURL+"/api/v1/orgs/"+orgID.String()+"/members", http.StatusOK, nil)

	var parsed struct {
		Members []orgs.MemberInfo `json:"members"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))
	return parsed.Members
}

func membershipIDFor(t *testing.T, members []orgs.MemberInfo, userID uuid.UUID) uuid.UUID {
	t.Helper()
	for _, m := range members {
		if m.UserID == userID {
			return m.MembershipID
		}
	}
	t.Fatalf("no membership found for user %s", userID)
	return uuid.Nil
}

func updateRole(t *testing.T, client *http.Client, baseURL string, orgID, membershipID uuid.UUID, role orgs.OrgRole) {
	t.Helper()
	doJSON(t, client, http.MethodPut, baseURL+"/api/v1/orgs/"+orgID.String()+"/members/"+membershipID.String()+"/role", http.StatusOK, map[string]any{
		"role": string(role),
	})
}

func createTicket(t *testing.T, client *http.Client, baseURL string, orgID uuid.UUID, title string) uuid.UUID {
	t.Helper()

	env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/orgs/"+orgID.String()+"/tickets", http.StatusCreated, map[string]any{
		"title":      title,
		"content":    "something is broken",
		"priority":   "HIGH",
		"department": "ENGINEERING",
	})

	var parsed struct {
		Ticket struct {
			ID uuid.UUID `json:"id"`
		} `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))
	return parsed.Ticket.ID
}

func createComment(t *testing.T, client *http.Client, baseURL string, ticketID uuid.UUID, content string) uuid.UUID {
	t.Helper()

	env := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/tickets/"+ticketID.String()+"/comments", http.StatusCreated, map[string]any{
		"content": content,
	})

	var parsed struct {
		Comment struct {
			ID uuid.UUID `json:"id"`
		} `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &parsed))
	return parsed.Comment.ID
}

func TestE2E_MembershipLifecycle(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	srv := newTestServer(t, pool)

	owner := newClient(t)
	bob := newClient(t)
	carol := newClient(t)

	ownerID := signup(t, owner, srv.URL, "owner@example.com", "password123")
	signup(t, bob, srv.URL, "bob@example.com", "password123")
	carolID := signup(t, carol, srv.URL, "carol@example.com", "password123")

	orgID := createOrg(t, owner, srv.URL, "Acme")

	// The creator starts as OWNER.
	members := listMembers(t, owner, srv.URL, orgID)
	require.Len(t, members, 1)
	require.Equal(t, ownerID, members[0].UserID)
	require.Equal(t, orgs.RoleOwner, members[0].Role)

	bobMembershipID := addMember(t, owner, srv.URL, orgID, "bob@example.com")

	// Adding the same user twice conflicts.
	errEnv := doJSONExpectError(t, owner, http.MethodPost, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members", http.StatusConflict, map[string]any{
		"email": "bob@example.com",
	})
	require.Equal(t, "conflict", errEnv.Error.Code)

	// Adding an unknown email is a 404.
	doJSONExpectError(t, owner, http.MethodPost, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members", http.StatusNotFound, map[string]any{
		"email": "nobody@example.com",
	})

	// Bob holds MEMBER rank and may not add members.
	doJSONExpectError(t, bob, http.MethodPost, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members", http.StatusForbidden, map[string]any{
		"email": "carol@example.com",
	})

	// Promoted to ADMIN, Bob can.
	updateRole(t, owner, srv.URL, orgID, bobMembershipID, orgs.RoleAdmin)
	carolMembershipID := addMember(t, bob, srv.URL, orgID, "carol@example.com")

	// OWNER is pinned to the creator: it cannot be granted or taken.
	doJSONExpectError(t, bob, http.MethodPut, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members/"+carolMembershipID.String()+"/role", http.StatusConflict, map[string]any{
		"role": "OWNER",
	})
	ownerMembershipID := membershipIDFor(t, listMembers(t, owner, srv.URL, orgID), ownerID)
	doJSONExpectError(t, bob, http.MethodPut, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members/"+ownerMembershipID.String()+"/role", http.StatusConflict, map[string]any{
		"role": "MEMBER",
	})

	// Unknown role names are rejected.
	doJSONExpectError(t, bob, http.MethodPut, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members/"+carolMembershipID.String()+"/role", http.StatusBadRequest, map[string]any{
		"role": "JANITOR",
	})

	// Carol (MEMBER) may not remove anyone.
	doJSONExpectError(t, carol, http.MethodDelete, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members/"+bobMembershipID.String(), http.StatusForbidden, nil)

	// The owner can never be removed, and admins cannot remove themselves.
	doJSONExpectError(t, bob, http.MethodDelete, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members/"+ownerMembershipID.String(), http.StatusConflict, nil)
	doJSONExpectError(t, bob, http.MethodDelete, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members/"+bobMembershipID.String(), http.StatusConflict, nil)

	// Carol files a ticket and comments on it; removing her sweeps both.
	ticketID := createTicket(t, carol, srv.URL, orgID, "Printer on fire")
	createComment(t, carol, srv.URL, ticketID, "it is still on fire")

	doJSON(t, bob, http.MethodDelete, srv.URL+"/api/v1/orgs/"+orgID.String()+"/members/"+carolMembershipID.String(), http.StatusOK, nil)

	members = listMembers(t, owner, srv.URL, orgID)
	require.Len(t, members, 2)
	for _, m := range members {
		require.NotEqual(t, carolID, m.UserID)
	}

	var stats struct {
		Statistics orgs.Statistics `json:"statistics"`
	}
	env := doJSON(t, owner, http.MethodGet, srv.URL+"/api/v1/orgs/"+orgID.String()+"/statistics", http.StatusOK, nil)
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	require.Zero(t, stats.Statistics.TotalTickets)
	require.Zero(t, stats.Statistics.TotalComments)
	require.EqualValues(t, 2, stats.Statistics.TotalMembers)

	// Carol is no longer a member and sees the org as missing.
	doJSONExpectError(t, carol, http.MethodGet, srv.URL+"/api/v1/orgs/"+orgID.String(), http.StatusNotFound, nil)
}

func TestE2E_TicketAndCommentAuthorization(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)
	srv := newTestServer(t, pool)

	owner := newClient(t)
	bob := newClient(t)
	maria := newClient(t)
	outsider := newClient(t)

	signup(t, owner, srv.URL, "owner@example.com", "password123")
	signup(t, bob, srv.URL, "bob@example.com", "password123")
	signup(t, maria, srv.URL, "maria@example.com", "password123")
	signup(t, outsider, srv.URL, "outsider@example.com", "password123")

	orgID := createOrg(t, owner, srv.URL, "Acme")
	addMember(t, owner, srv.URL, orgID, "bob@example.com")
	mariaMembershipID := addMember(t, owner, srv.URL, orgID, "maria@example.com")
	updateRole(t, owner, srv.URL, orgID, mariaMembershipID, orgs.RoleModerator)

	// Rejected enums never reach the database.
	doJSONExpectError(t, bob, http.MethodPost, srv.URL+"/api/v1/orgs/"+orgID.String()+"/tickets", http.StatusBadRequest, map[string]any{
		"title":      "bad",
		"content":    "bad",
		"priority":   "URGENT",
		"department": "ENGINEERING",
	})

	ticketID := createTicket(t, bob, srv.URL, orgID, "Login broken")

	// Non-members see no ticket at all.
	doJSONExpectError(t, outsider, http.MethodGet, srv.URL+"/api/v1/tickets/"+ticketID.String(), http.StatusNotFound, nil)

	// The publisher may update their own ticket regardless of rank.
	doJSON(t, bob, http.MethodPut, srv.URL+"/api/v1/tickets/"+ticketID.String(), http.StatusOK, map[string]any{
		"content": "login broken on staging too",
	})

	// A moderator may update anyone's ticket but not delete it.
	doJSON(t, maria, http.MethodPut, srv.URL+"/api/v1/tickets/"+ticketID.String(), http.StatusOK, map[string]any{
		"priority": "CRITICAL",
	})
	doJSONExpectError(t, maria, http.MethodDelete, srv.URL+"/api/v1/tickets/"+ticketID.String(), http.StatusForbidden, nil)

	bobCommentID := createComment(t, bob, srv.URL, ticketID, "seeing this too")
	mariaCommentID := createComment(t, maria, srv.URL, ticketID, "repro confirmed")

	// Comment edits need ADMIN rank or authorship.
	doJSON(t, bob, http.MethodPut, srv.URL+"/api/v1/comments/"+bobCommentID.String(), http.StatusOK, map[string]any{
		"content": "seeing this on prod as well",
	})
	doJSONExpectError(t, bob, http.MethodPut, srv.URL+"/api/v1/comments/"+mariaCommentID.String(), http.StatusForbidden, map[string]any{
		"content": "rewritten",
	})

	// OWNER rank clears the ADMIN requirement on comment deletion.
	doJSON(t, owner, http.MethodDelete, srv.URL+"/api/v1/comments/"+bobCommentID.String(), http.StatusOK, nil)

	var count struct {
		Count int64 `json:"count"`
	}
	env := doJSON(t, bob, http.MethodGet, srv.URL+"/api/v1/tickets/"+ticketID.String()+"/comments/count", http.StatusOK, nil)
	require.NoError(t, json.Unmarshal(env.Data, &count))
	require.EqualValues(t, 1, count.Count)

	// The publisher may delete their own ticket; its comments go with it.
	doJSON(t, bob, http.MethodDelete, srv.URL+"/api/v1/tickets/"+ticketID.String(), http.StatusOK, nil)
	doJSONExpectError(t, maria, http.MethodGet, srv.URL+"/api/v1/tickets/"+ticketID.String(), http.StatusNotFound, nil)
}
