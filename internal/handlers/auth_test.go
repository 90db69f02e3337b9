package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCodes struct {
	requestErr error
	verifyErr  error
	verified   string
}

func (s *stubCodes) Request(ctx context.Context, userID string) error { return s.requestErr }

func (s *stubCodes) Verify(ctx context.Context, userID, code string) error {
	s.verified = code
	return s.verifyErr
}

type stubVerifications struct {
	err error
}

func (s *stubVerifications) Submit(ctx context.Context, userID, robloxUserID string) (*models.RobloxVerification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.RobloxVerification{ID: "v1", UserID: userID, RobloxUserID: robloxUserID, Status: models.ReviewPending}, nil
}

func TestAuthHandler_Register(t *testing.T) {
	body := RegisterRequest{Username: "player", Email: "p@example.com", Password: "secret123", RobloxNick: "nick", Rod: "Police"}

	t.Run("created", func(t *testing.T) {
		var got services.RegisterInput
		accounts := &MockAccountService{
			RegisterFunc: func(ctx context.Context, in services.RegisterInput, meta services.RequestMeta) (*services.AuthResult, error) {
				got = in
				return &services.AuthResult{Token: "tok", ExpiresAt: time.Now().Add(time.Hour), User: testUser("u1", models.RoleUser)}, nil
			},
		}
		h := NewAuthHandler(accounts, &stubCodes{}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		h.Register(w, NewTestRequest(t, http.MethodPost, "/api/auth/register", body))

		var resp map[string]interface{}
		AssertJSONResponse(t, w, http.StatusCreated, &resp)
		assert.Equal(t, "tok", resp["token"])
		user := resp["user"].(map[string]interface{})
		assert.Equal(t, "user", user["role"])
		assert.Equal(t, float64(0), user["role_level"])
		assert.NotContains(t, user, "password_hash")
		assert.Equal(t, "player", got.Username)
	})

	t.Run("duplicate", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		h.Register(w, NewTestRequest(t, http.MethodPost, "/api/auth/register", body))
		AssertErrorResponse(t, w, http.StatusConflict, "conflict")
	})

	t.Run("missing field", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{}, nil)
		incomplete := body
		incomplete.Rod = ""

		w := httptest.NewRecorder()
		h.Register(w, NewTestRequest(t, http.MethodPost, "/api/auth/register", incomplete))
		AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
	})

	t.Run("malformed body", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/register", nil)

		w := httptest.NewRecorder()
		h.Register(w, req)
		AssertErrorResponse(t, w, http.StatusBadRequest, "bad_request")
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("invalid credentials", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		h.Login(w, NewTestRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Username: "x", Password: "y"}))
		AssertErrorResponse(t, w, http.StatusUnauthorized, "invalid_credentials")
	})

	t.Run("banned", func(t *testing.T) {
		accounts := &MockAccountService{
			AuthenticateFunc: func(ctx context.Context, username, password string, meta services.RequestMeta) (*services.AuthResult, error) {
				return nil, &models.AccountBannedError{Reason: "читы"}
			},
		}
		h := NewAuthHandler(accounts, &stubCodes{}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		h.Login(w, NewTestRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Username: "x", Password: "y"}))
		resp := AssertErrorResponse(t, w, http.StatusForbidden, "account_banned")
		assert.Contains(t, resp.Message, "читы")
	})

	t.Run("success passes client meta", func(t *testing.T) {
		var meta services.RequestMeta
		accounts := &MockAccountService{
			AuthenticateFunc: func(ctx context.Context, username, password string, m services.RequestMeta) (*services.AuthResult, error) {
				meta = m
				return &services.AuthResult{Token: "tok", User: testUser("u1", models.RoleAdmin)}, nil
			},
		}
		h := NewAuthHandler(accounts, &stubCodes{}, &stubVerifications{}, nil)
		req := NewTestRequest(t, http.MethodPost, "/api/auth/login", LoginRequest{Username: "x", Password: "y"})
		req.RemoteAddr = "203.0.113.7:5000"
		req.Header.Set("User-Agent", "forum-test")

		w := httptest.NewRecorder()
		h.Login(w, req)

		var resp map[string]interface{}
		AssertJSONResponse(t, w, http.StatusOK, &resp)
		assert.Equal(t, float64(3), resp["user"].(map[string]interface{})["role_level"])
		assert.Equal(t, "203.0.113.7", meta.IPAddress)
		assert.Equal(t, "forum-test", meta.UserAgent)
	})
}

func TestAuthHandler_Me(t *testing.T) {
	user := testUser("u1", models.RoleSeniorAdmin)
	accounts := &MockAccountService{
		GetProfileFunc: func(ctx context.Context, id string) (*models.User, error) {
			if id == user.ID {
				return user, nil
			}
			return nil, models.ErrUserNotFound
		},
	}
	h := NewAuthHandler(accounts, &stubCodes{}, &stubVerifications{}, nil)

	w := httptest.NewRecorder()
	h.Me(w, WithAuthContext(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), user))

	var resp map[string]interface{}
	AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "u1@example.com", resp["email"])
	assert.Equal(t, 3.5, resp["role_level"])

	w = httptest.NewRecorder()
	h.Me(w, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}

func TestAuthHandler_EmailCode(t *testing.T) {
	user := testUser("u1", models.RoleUser)

	t.Run("cooldown", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{requestErr: models.ErrCodeCooldown}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		h.SendEmailCode(w, WithAuthContext(httptest.NewRequest(http.MethodPost, "/api/auth/email-code", nil), user))
		AssertErrorResponse(t, w, http.StatusTooManyRequests, "rate_limit_exceeded")
	})

	t.Run("verify", func(t *testing.T) {
		codes := &stubCodes{}
		h := NewAuthHandler(&MockAccountService{}, codes, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		req := NewTestRequest(t, http.MethodPost, "/api/auth/verify-email", VerifyEmailRequest{Code: "123456"})
		h.VerifyEmail(w, WithAuthContext(req, user))

		AssertJSONResponse(t, w, http.StatusOK, nil)
		require.Equal(t, "123456", codes.verified)
	})

	t.Run("malformed code", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		req := NewTestRequest(t, http.MethodPost, "/api/auth/verify-email", VerifyEmailRequest{Code: "12ab56"})
		h.VerifyEmail(w, WithAuthContext(req, user))
		AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
	})
}

func TestAuthHandler_VerifyRoblox(t *testing.T) {
	user := testUser("u1", models.RoleUser)

	t.Run("non numeric id", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		req := NewTestRequest(t, http.MethodPost, "/api/auth/verify-roblox-userid", VerifyRobloxRequest{RobloxUserID: "abc"})
		h.VerifyRoblox(w, WithAuthContext(req, user))

		resp := AssertErrorResponse(t, w, http.StatusBadRequest, "validation_error")
		assert.Equal(t, "User ID должен быть числом", resp.Message)
	})

	t.Run("pending", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{err: models.ErrVerificationPending}, nil)

		w := httptest.NewRecorder()
		req := NewTestRequest(t, http.MethodPost, "/api/auth/verify-roblox-userid", VerifyRobloxRequest{RobloxUserID: "42"})
		h.VerifyRoblox(w, WithAuthContext(req, user))
		AssertErrorResponse(t, w, http.StatusConflict, "conflict")
	})

	t.Run("created", func(t *testing.T) {
		h := NewAuthHandler(&MockAccountService{}, &stubCodes{}, &stubVerifications{}, nil)

		w := httptest.NewRecorder()
		req := NewTestRequest(t, http.MethodPost, "/api/auth/verify-roblox-userid", VerifyRobloxRequest{RobloxUserID: "42"})
		h.VerifyRoblox(w, WithAuthContext(req, user))

		var resp VerificationResponse
		AssertJSONResponse(t, w, http.StatusCreated, &resp)
		assert.Equal(t, models.ReviewPending, resp.Status)
	})
}
