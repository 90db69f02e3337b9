//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/handlers"
	middlewareCustom "github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/middleware"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/routes"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
)

// SentEmail represents a captured confirmation email
type SentEmail struct {
	To   string
	Code string
}

// MockEmailSender captures sent codes for test assertions
type MockEmailSender struct {
	mu   sync.Mutex
	Sent []SentEmail
}

func (m *MockEmailSender) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, SentEmail{To: email, Code: code})
	return nil
}

// LastCode returns the most recent code sent to email
func (m *MockEmailSender) LastCode(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.Sent) - 1; i >= 0; i-- {
		if m.Sent[i].To == email {
			return m.Sent[i].Code
		}
	}
	return ""
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server *httptest.Server
	Repos  *Repositories
	Email  *MockEmailSender
}

// NewTestServer initializes the full HTTP stack over a real database with a captured mailbox
func NewTestServer(db *database.DB) *TestServer {
	logger := quietLogger()
	repos := InitializeRepositories(db)
	mail := &MockEmailSender{}

	tokenManager := auth.NewTokenManager("test-secret-32-characters-long-for-testing", time.Hour)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{})
	auditLogger := pkglogger.NewAuditLogger(logger)

	emailCodes := services.NewEmailCodeService(repos.EmailCodes, repos.Users, mail, 15*time.Minute, time.Minute, logger)
	accounts := services.NewAccountService(repos.Users, repos.Posts, repos.Revocations, tokenManager, timingDelay, emailCodes, logger, auditLogger)
	userAdmin := services.NewUserAdminService(repos.Users, repos.Activity, logger, auditLogger)
	posts := services.NewPostService(repos.Posts, repos.Comments, repos.Users, logger, auditLogger)
	moderation := services.NewModerationService(repos.Posts, repos.Users, logger, auditLogger)
	applications := services.NewApplicationService(repos.Applications, repos.Users, logger, auditLogger)
	verifications := services.NewVerificationService(repos.Verifications, repos.Users, logger, auditLogger)
	stats := services.NewStatsService(repos.Stats, repos.Activity, repos.Users, logger)

	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(accounts, emailCodes, verifications, nil),
		Users:    handlers.NewUserHandler(accounts),
		Posts:    handlers.NewPostHandler(posts, moderation),
		Admin:    handlers.NewAdminHandler(userAdmin, posts, stats),
		Workflow: handlers.NewWorkflowHandler(applications, verifications),
		Social: handlers.NewSocialHandler(
			services.NewNotificationService(repos.Notifications, logger),
			services.NewMessageService(repos.Messages, repos.Users, logger),
			services.NewFavoriteService(repos.Favorites, logger),
		),
		Stats: handlers.NewStatsHandler(stats),
	}

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: "test"}))
	r.Use(chiMiddleware.Recoverer)
	r.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, h, auth.NewAuthenticator(tokenManager, repos.Revocations, repos.Users, logger), routes.Limits{
			Auth:    middlewareCustom.RateLimitConfig{RequestsPerMinute: 1000},
			Publish: middlewareCustom.RateLimitConfig{RequestsPerMinute: 1000},
		})
	})

	return &TestServer{Server: httptest.NewServer(r), Repos: repos, Email: mail}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a session token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	return ts.Request(method, path, body, map[string]string{"Authorization": "Bearer " + token})
}

// Login authenticates username with TestPassword and returns the session token
func (ts *TestServer) Login(username string) (string, error) {
	resp, err := ts.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": TestPassword,
	}, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return "", fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := ParseJSONResponse(resp, &body); err != nil {
		return "", err
	}
	return body.Token, nil
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// GetErrorCode extracts the machine-readable error code from an error response
func GetErrorCode(resp *http.Response) (string, error) {
	var errResp struct {
		Error string `json:"error"`
	}
	if err := ParseJSONResponse(resp, &errResp); err != nil {
		return "", err
	}
	return errResp.Error, nil
}
