package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAuthContext adds claims and the resolved account to the request context
func WithAuthContext(req *http.Request, user *models.User) *http.Request {
	claims := &models.TokenClaims{Type: models.TokenTypeSession, UserID: user.ID}
	ctx := context.WithValue(req.Context(), auth.UserContextKey, claims)
	ctx = context.WithValue(ctx, auth.AccountContextKey, user)
	return req.WithContext(ctx)
}

// WithChiRouteContext sets URL parameters as chi would
func WithChiRouteContext(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

func testUser(id string, role models.Role) *models.User {
	return &models.User{
		ID:         id,
		Username:   "user_" + id,
		Email:      id + "@example.com",
		RobloxNick: "nick_" + id,
		Avatar:     models.DefaultAvatar,
		Role:       role,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	RegisterFunc      func(ctx context.Context, in services.RegisterInput, meta services.RequestMeta) (*services.AuthResult, error)
	AuthenticateFunc  func(ctx context.Context, username, password string, meta services.RequestMeta) (*services.AuthResult, error)
	LogoutFunc        func(ctx context.Context, claims *models.TokenClaims) error
	GetProfileFunc    func(ctx context.Context, id string) (*models.User, error)
	ListUserPostsFunc func(ctx context.Context, userID string) ([]*models.Post, error)
	UpdateProfileFunc func(ctx context.Context, actorID, userID string, patch models.ProfilePatch) (*models.User, error)
	ListOnlineFunc    func(ctx context.Context) ([]*models.User, error)
}

func (m *MockAccountService) Register(ctx context.Context, in services.RegisterInput, meta services.RequestMeta) (*services.AuthResult, error) {
	if m.RegisterFunc == nil {
		return nil, models.ErrDuplicateAccount
	}
	return m.RegisterFunc(ctx, in, meta)
}

func (m *MockAccountService) Authenticate(ctx context.Context, username, password string, meta services.RequestMeta) (*services.AuthResult, error) {
	if m.AuthenticateFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.AuthenticateFunc(ctx, username, password, meta)
}

func (m *MockAccountService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims)
}

func (m *MockAccountService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	if m.GetProfileFunc == nil {
		return nil, models.ErrUserNotFound
	}
	return m.GetProfileFunc(ctx, id)
}

func (m *MockAccountService) ListUserPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	if m.ListUserPostsFunc == nil {
		return nil, nil
	}
	return m.ListUserPostsFunc(ctx, userID)
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, actorID, userID string, patch models.ProfilePatch) (*models.User, error) {
	if m.UpdateProfileFunc == nil {
		return nil, models.ErrForbidden
	}
	return m.UpdateProfileFunc(ctx, actorID, userID, patch)
}

func (m *MockAccountService) ListOnline(ctx context.Context) ([]*models.User, error) {
	if m.ListOnlineFunc == nil {
		return nil, nil
	}
	return m.ListOnlineFunc(ctx)
}

// MockPostService implements PostServiceInterface and ModerationServiceInterface
type MockPostService struct {
	CreatePostFunc   func(ctx context.Context, authorID string, in services.CreatePostInput) (*models.Post, error)
	GetPostFunc      func(ctx context.Context, id string) (*models.Post, error)
	ListPostsFunc    func(ctx context.Context, q services.PostQuery) (*services.PostPage, error)
	DeletePostFunc   func(ctx context.Context, postID, requesterID string) error
	AddCommentFunc   func(ctx context.Context, postID, authorID, text string) (*models.Comment, error)
	ListCommentsFunc func(ctx context.Context, postID string) ([]*models.Comment, error)
	ApplyFunc        func(ctx context.Context, actorID, postID string, action models.ModerationAction, reason string) (*models.Post, error)
}

func (m *MockPostService) CreatePost(ctx context.Context, authorID string, in services.CreatePostInput) (*models.Post, error) {
	return m.CreatePostFunc(ctx, authorID, in)
}

func (m *MockPostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	if m.GetPostFunc == nil {
		return nil, models.ErrPostNotFound
	}
	return m.GetPostFunc(ctx, id)
}

func (m *MockPostService) ListPosts(ctx context.Context, q services.PostQuery) (*services.PostPage, error) {
	return m.ListPostsFunc(ctx, q)
}

func (m *MockPostService) DeletePost(ctx context.Context, postID, requesterID string) error {
	return m.DeletePostFunc(ctx, postID, requesterID)
}

func (m *MockPostService) AddComment(ctx context.Context, postID, authorID, text string) (*models.Comment, error) {
	return m.AddCommentFunc(ctx, postID, authorID, text)
}

func (m *MockPostService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	return m.ListCommentsFunc(ctx, postID)
}

func (m *MockPostService) Apply(ctx context.Context, actorID, postID string, action models.ModerationAction, reason string) (*models.Post, error) {
	return m.ApplyFunc(ctx, actorID, postID, action, reason)
}

// MockUserAdminService implements UserAdminServiceInterface for testing
type MockUserAdminService struct {
	SetRoleFunc func(ctx context.Context, actorID, targetID string, role models.Role) (*models.User, error)
	BanFunc     func(ctx context.Context, actorID, targetID, reason string) (*models.User, error)
	MuteFunc    func(ctx context.Context, actorID, targetID, reason string, durationMinutes *int) (*models.User, error)
}

func (m *MockUserAdminService) SetRole(ctx context.Context, actorID, targetID string, role models.Role) (*models.User, error) {
	return m.SetRoleFunc(ctx, actorID, targetID, role)
}

func (m *MockUserAdminService) Ban(ctx context.Context, actorID, targetID, reason string) (*models.User, error) {
	return m.BanFunc(ctx, actorID, targetID, reason)
}

func (m *MockUserAdminService) Unban(ctx context.Context, actorID, targetID string) (*models.User, error) {
	return testUser(targetID, models.RoleUser), nil
}

func (m *MockUserAdminService) Mute(ctx context.Context, actorID, targetID, reason string, durationMinutes *int) (*models.User, error) {
	return m.MuteFunc(ctx, actorID, targetID, reason, durationMinutes)
}

func (m *MockUserAdminService) Unmute(ctx context.Context, actorID, targetID string) (*models.User, error) {
	return testUser(targetID, models.RoleUser), nil
}

func (m *MockUserAdminService) Delete(ctx context.Context, actorID, targetID string) error {
	return nil
}

func (m *MockUserAdminService) ListUsers(ctx context.Context, actorID, search string, role models.Role, limit int) ([]*models.User, error) {
	return []*models.User{}, nil
}

func (m *MockUserAdminService) SearchUser(ctx context.Context, actorID, username string) (*models.User, error) {
	return nil, models.ErrUserNotFound
}
