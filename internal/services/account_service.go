package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkgauth "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/auth"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
	"github.com/go-playground/validator/v10"
)

// OnlineListLimit caps the public online users list
const OnlineListLimit = 50

// UserRepository is the account storage used by AccountService
type UserRepository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	IdentityTaken(ctx context.Context, username, email, excludeID string) (bool, error)
	UpdateProfile(ctx context.Context, user *models.User) (*models.User, error)
	TouchPresence(ctx context.Context, id string, login bool) error
	MarkOffline(ctx context.Context, id string) error
	ListOnline(ctx context.Context, limit int) ([]*models.User, error)
}

// PostLister lists topics for profile pages
type PostLister interface {
	List(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error)
}

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error
}

// CodeIssuer sends a fresh email confirmation code to a user
type CodeIssuer interface {
	Issue(ctx context.Context, user *models.User) error
}

// AccountService handles registration, login and self-service profile
type AccountService struct {
	users       UserRepository
	posts       PostLister
	revokeRepo  TokenRevocationRepository
	tm          *auth.TokenManager
	timing      *auth.TimingDelay
	codes       CodeIssuer
	validate    *validator.Validate
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAccountService(
	users UserRepository,
	posts PostLister,
	revokeRepo TokenRevocationRepository,
	tm *auth.TokenManager,
	timing *auth.TimingDelay,
	codes CodeIssuer,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AccountService {
	return &AccountService{
		users:       users,
		posts:       posts,
		revokeRepo:  revokeRepo,
		tm:          tm,
		timing:      timing,
		codes:       codes,
		validate:    validator.New(),
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// RegisterInput carries the registration form
type RegisterInput struct {
	Username   string
	Email      string
	Password   string
	RobloxNick string
	Rod        string
}

// RequestMeta describes where a request came from, for audit logging
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthResult is returned by Register and Authenticate
type AuthResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

func (s *AccountService) validateEmail(email string) error {
	if err := s.validate.Var(email, "required,email,max=254"); err != nil {
		return models.NewValidationError("email", "Некорректный email")
	}
	return nil
}

// Register creates an account with role user and signs it in
func (s *AccountService) Register(ctx context.Context, in RegisterInput, meta RequestMeta) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.RobloxNick = strings.TrimSpace(in.RobloxNick)
	in.Rod = strings.TrimSpace(in.Rod)

	if in.Username == "" || in.Email == "" || in.Password == "" || in.RobloxNick == "" || in.Rod == "" {
		return nil, models.NewValidationError("", "Заполните все поля")
	}
	if !models.ValidUsername(in.Username) {
		return nil, models.NewValidationError("username", "Имя пользователя: 3-20 символов, только буквы, цифры и _")
	}
	if err := s.validateEmail(in.Email); err != nil {
		return nil, err
	}
	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, models.NewValidationError("password",
			fmt.Sprintf("Пароль должен содержать от %d до %d символов", pkgauth.MinPasswordLen, pkgauth.MaxPasswordLen))
	}

	taken, err := s.users.IdentityTaken(ctx, in.Username, in.Email, "")
	if err != nil {
		return nil, passThrough(s.logger, "failed to check identity", err)
	}
	if taken {
		s.logger.Info("registration failed: identity taken")
		return nil, models.ErrDuplicateAccount
	}

	hashedPassword, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hashedPassword,
		RobloxNick:   in.RobloxNick,
		Rod:          in.Rod,
		Avatar:       models.DefaultAvatar,
		Role:         models.RoleUser,
	})
	if err != nil {
		return nil, passThrough(s.logger, "failed to create user", err)
	}

	token, err := s.tm.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if s.codes != nil {
		if err := s.codes.Issue(ctx, user); err != nil {
			s.logger.Warn("failed to send confirmation code", slog.String("user_id", user.ID), slog.Any("error", err))
		}
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction(ctx, "user_registered", user.ID, map[string]string{"ip_address": meta.IPAddress})

	return &AuthResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user}, nil
}

// Authenticate checks credentials. A ban is reported only after the
// password matched, so ban status never leaks for wrong passwords.
func (s *AccountService) Authenticate(ctx context.Context, username, password string, meta RequestMeta) (*AuthResult, error) {
	start := time.Now()
	username = strings.TrimSpace(username)

	fail := func(userID, reason string) error {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuthEvent{
			EventType:     "login_failed",
			UserID:        userID,
			Username:      username,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
			FailureReason: reason,
		})
		s.timing.WaitFrom(start, false)
		return models.ErrInvalidCredentials
	}

	if username == "" || password == "" {
		return nil, fail("", "missing_credentials")
	}

	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, fail("", "unknown_user")
		}
		return nil, passThrough(s.logger, "failed to get user by username", err)
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		if !errors.Is(err, pkgauth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash unreadable", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		return nil, fail(user.ID, "invalid_password")
	}

	if user.IsBanned {
		s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuthEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			Username:      user.Username,
			IPAddress:     meta.IPAddress,
			UserAgent:     meta.UserAgent,
			FailureReason: "banned",
		})
		return nil, &models.AccountBannedError{Reason: user.BanReason}
	}

	if err := s.users.TouchPresence(ctx, user.ID, true); err != nil {
		return nil, passThrough(s.logger, "failed to record login", err, slog.String("user_id", user.ID))
	}

	token, err := s.tm.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	user.IsOnline = true
	user.LastSeen = &now
	user.LastLoginAt = &now

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuthEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Username:  user.Username,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Success:   true,
	})

	return &AuthResult{Token: token.Token, ExpiresAt: token.ExpiresAt, User: user}, nil
}

// Logout revokes the presented token and marks the user offline
func (s *AccountService) Logout(ctx context.Context, claims *models.TokenClaims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return models.ErrUnauthorized
	}

	if err := s.revokeRepo.RevokeToken(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time, "logout"); err != nil {
		s.logger.Error("failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.users.MarkOffline(ctx, claims.UserID); err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Warn("failed to mark user offline", slog.String("user_id", claims.UserID), slog.Any("error", err))
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// GetProfile returns any user by id
func (s *AccountService) GetProfile(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, passThrough(s.logger, "failed to get user", err, slog.String("user_id", id))
	}
	return user, nil
}

// ListUserPosts returns the newest topics written by a user
func (s *AccountService) ListUserPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	if _, err := s.GetProfile(ctx, userID); err != nil {
		return nil, err
	}

	posts, _, err := s.posts.List(ctx, models.PostFilter{AuthorID: userID, Limit: MaxPageSize})
	if err != nil {
		return nil, passThrough(s.logger, "failed to list user posts", err, slog.String("user_id", userID))
	}
	return posts, nil
}

// UpdateProfile applies a self-service patch. Only the owner may edit.
func (s *AccountService) UpdateProfile(ctx context.Context, actorID, userID string, patch models.ProfilePatch) (*models.User, error) {
	if actorID != userID {
		return nil, models.ErrForbidden
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to get user", err, slog.String("user_id", userID))
	}

	if patch.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*patch.Email))
		if err := s.validateEmail(email); err != nil {
			return nil, err
		}
		patch.Email = &email
	}
	if patch.RobloxNick != nil {
		nick := strings.TrimSpace(*patch.RobloxNick)
		if nick == "" {
			return nil, models.NewValidationError("roblox_nick", "Ник Roblox не может быть пустым")
		}
		patch.RobloxNick = &nick
	}

	previousEmail := user.Email
	patch.Apply(user)

	emailChanged := user.Email != previousEmail
	if emailChanged {
		taken, err := s.users.IdentityTaken(ctx, "", user.Email, user.ID)
		if err != nil {
			return nil, passThrough(s.logger, "failed to check identity", err)
		}
		if taken {
			return nil, models.ErrDuplicateAccount
		}
	}

	updated, err := s.users.UpdateProfile(ctx, user)
	if err != nil {
		return nil, passThrough(s.logger, "failed to update profile", err, slog.String("user_id", userID))
	}

	if emailChanged && s.codes != nil {
		if err := s.codes.Issue(ctx, updated); err != nil {
			s.logger.Warn("failed to send confirmation code", slog.String("user_id", userID), slog.Any("error", err))
		}
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return updated, nil
}

// ListOnline returns users currently marked online, most recently seen first
func (s *AccountService) ListOnline(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListOnline(ctx, OnlineListLimit)
	if err != nil {
		return nil, passThrough(s.logger, "failed to list online users", err)
	}
	return users, nil
}
