package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// UserContextKey holds the validated token claims
	UserContextKey contextKey = "user"
	// AccountContextKey holds the user record the token resolved to
	AccountContextKey contextKey = "account"
)

// presenceRefresh is how stale last_seen may get before a request refreshes it
const presenceRefresh = time.Minute

// TokenRevocationChecker defines the interface for checking if tokens are revoked
type TokenRevocationChecker interface {
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// UserRepository resolves token subjects and records their presence
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	TouchPresence(ctx context.Context, id string, login bool) error
}

// Authenticator validates bearer tokens and loads the account behind them
type Authenticator struct {
	tm         *TokenManager
	revocation TokenRevocationChecker
	users      UserRepository
	logger     *slog.Logger
}

func NewAuthenticator(tm *TokenManager, revocation TokenRevocationChecker, users UserRepository, logger *slog.Logger) *Authenticator {
	return &Authenticator{tm: tm, revocation: revocation, users: users, logger: logger}
}

// BearerToken extracts the token from an "Authorization: Bearer" header
func BearerToken(r *http.Request) (string, bool) {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// Middleware rejects requests whose token is missing, invalid, revoked, or
// does not resolve to exactly one existing, unbanned user.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := BearerToken(r)
		if !ok {
			pkghttp.WriteUnauthorized(w, "Требуется авторизация")
			return
		}

		claims, err := a.tm.ValidateToken(tokenString)
		if err != nil {
			pkghttp.WriteUnauthorized(w, "Недействительный или просроченный токен")
			return
		}

		if a.revocation != nil {
			revoked, err := a.revocation.IsTokenRevoked(r.Context(), claims.ID)
			if err != nil {
				a.logger.Error("failed to check token revocation", slog.String("jti", claims.ID), slog.Any("error", err))
				pkghttp.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Не удалось проверить токен")
				return
			}
			if revoked {
				pkghttp.WriteUnauthorized(w, "Токен отозван")
				return
			}
		}

		user, err := a.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				pkghttp.WriteUnauthorized(w, "Пользователь не найден")
				return
			}
			a.logger.Error("failed to load token subject", slog.String("user_id", claims.UserID), slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Ошибка сервера")
			return
		}

		if user.IsBanned {
			pkghttp.WriteForbidden(w, bannedMessage(user.BanReason))
			return
		}

		if user.LastSeen == nil || time.Since(*user.LastSeen) > presenceRefresh {
			if err := a.users.TouchPresence(r.Context(), user.ID, false); err != nil {
				a.logger.Warn("failed to refresh presence", slog.String("user_id", user.ID), slog.Any("error", err))
			}
		}

		ctx := context.WithValue(r.Context(), UserContextKey, claims)
		ctx = context.WithValue(ctx, AccountContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireLevel allows the request only if the authenticated account ranks at
// least minimum in the role hierarchy. Must run after Middleware.
func RequireLevel(minimum models.Level) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetAccountFromContext(r)
			if user == nil {
				pkghttp.WriteUnauthorized(w, "Требуется авторизация")
				return
			}

			if !models.AtLeast(user.Role, minimum) {
				pkghttp.WriteForbidden(w, "Недостаточно прав")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetUserFromContext extracts user claims from request context
func GetUserFromContext(r *http.Request) *models.TokenClaims {
	claims, ok := r.Context().Value(UserContextKey).(*models.TokenClaims)
	if !ok {
		return nil
	}
	return claims
}

// GetAccountFromContext returns the user loaded by Middleware
func GetAccountFromContext(r *http.Request) *models.User {
	user, ok := r.Context().Value(AccountContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func bannedMessage(reason string) string {
	if reason == "" {
		return "Ваш аккаунт заблокирован"
	}
	return "Ваш аккаунт заблокирован. Причина: " + reason
}
