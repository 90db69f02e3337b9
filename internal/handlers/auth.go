package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
)

// AccountServiceInterface defines the account operations used by HTTP handlers
type AccountServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput, meta services.RequestMeta) (*services.AuthResult, error)
	Authenticate(ctx context.Context, username, password string, meta services.RequestMeta) (*services.AuthResult, error)
	Logout(ctx context.Context, claims *models.TokenClaims) error
	GetProfile(ctx context.Context, id string) (*models.User, error)
	ListUserPosts(ctx context.Context, userID string) ([]*models.Post, error)
	UpdateProfile(ctx context.Context, actorID, userID string, patch models.ProfilePatch) (*models.User, error)
	ListOnline(ctx context.Context) ([]*models.User, error)
}

// EmailCodeServiceInterface sends and checks email confirmation codes
type EmailCodeServiceInterface interface {
	Request(ctx context.Context, userID string) error
	Verify(ctx context.Context, userID, code string) error
}

// VerificationSubmitter files Roblox ownership requests
type VerificationSubmitter interface {
	Submit(ctx context.Context, userID, robloxUserID string) (*models.RobloxVerification, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	accounts      AccountServiceInterface
	codes         EmailCodeServiceInterface
	verifications VerificationSubmitter
	ipConfig      *pkghttp.IPConfig
}

func NewAuthHandler(accounts AccountServiceInterface, codes EmailCodeServiceInterface, verifications VerificationSubmitter, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		accounts:      accounts,
		codes:         codes,
		verifications: verifications,
		ipConfig:      ipConfig,
	}
}

// Request DTOs

type RegisterRequest struct {
	Username   string `json:"username" validate:"required"`
	Email      string `json:"email" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RobloxNick string `json:"roblox_nick" validate:"required"`
	Rod        string `json:"rod" validate:"required"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type VerifyEmailRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric_id"`
}

type VerifyRobloxRequest struct {
	RobloxUserID string `json:"roblox_user_id" validate:"required,max=20,numeric_id"`
}

// AuthResponse is returned after registration and login
type AuthResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	User      AccountResponse `json:"user"`
}

func (h *AuthHandler) meta(r *http.Request) services.RequestMeta {
	return services.RequestMeta{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.Header.Get("User-Agent"),
	}
}

// Register handles user registration
// @Summary User registration
// @Accept json
// @Param request body RegisterRequest true "Register request"
// @Produce json
// @Success 201 {object} AuthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.accounts.Register(r.Context(), services.RegisterInput{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		RobloxNick: req.RobloxNick,
		Rod:        req.Rod,
	}, h.meta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toAccountResponse(result.User),
	})
}

// Login handles user login
// @Summary User login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} AuthResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password, h.meta(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AuthResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		User:      toAccountResponse(result.User),
	})
}

// Me returns the caller's own account
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.accounts.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toAccountResponse(user))
}

// Logout revokes the presented token
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Требуется авторизация")
		return
	}

	if err := h.accounts.Logout(r.Context(), claims); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageOnlyResponse{Message: "Вы вышли из аккаунта"})
}

// SendEmailCode emails a fresh confirmation code, subject to the resend cooldown
// @Router /auth/email-code [post]
func (h *AuthHandler) SendEmailCode(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.codes.Request(r.Context(), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageOnlyResponse{Message: "Код отправлен на почту"})
}

// VerifyEmail redeems a confirmation code
// @Router /auth/verify-email [post]
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req VerifyEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.codes.Verify(r.Context(), userID, req.Code); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageOnlyResponse{Message: "Email подтверждён"})
}

// VerifyRoblox files a Roblox ownership request for the caller's nickname
// @Router /auth/verify-roblox-userid [post]
func (h *AuthHandler) VerifyRoblox(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req VerifyRobloxRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.verifications.Submit(r.Context(), userID, req.RobloxUserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, toVerificationResponse(v))
}
