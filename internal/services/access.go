package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
)

// ActorLookup loads the account performing an operation
type ActorLookup interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

var domainErrors = []error{
	models.ErrNotFound,
	models.ErrConflict,
	models.ErrUnauthorized,
	models.ErrForbidden,
	models.ErrBadRequest,
	models.ErrDuplicateAccount,
	models.ErrInvalidCredentials,
	models.ErrAccountBanned,
	models.ErrMuted,
	models.ErrInvalidCode,
	models.ErrCodeCooldown,
	models.ErrValidation,
	models.ErrEmptyText,
	models.ErrTooLong,
	models.ErrInvalidTransition,
	models.ErrAlreadyReviewed,
	models.ErrVerificationPending,
	models.ErrApplicationPending,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// passThrough returns domain errors unchanged and logs anything else,
// replacing it with ErrInternalServer.
func passThrough(logger *slog.Logger, msg string, err error, attrs ...any) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	logger.Error(msg, append(attrs, slog.Any("error", err))...)
	return models.ErrInternalServer
}

// loadActor resolves the caller; a vanished account is unauthorized
func loadActor(ctx context.Context, users ActorLookup, actorID string, logger *slog.Logger) (*models.User, error) {
	actor, err := users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		return nil, passThrough(logger, "failed to load actor", err, slog.String("actor_id", actorID))
	}
	return actor, nil
}

// requireLevel loads the actor and checks their rank
func requireLevel(ctx context.Context, users ActorLookup, actorID string, minimum models.Level, logger *slog.Logger) (*models.User, error) {
	actor, err := loadActor(ctx, users, actorID, logger)
	if err != nil {
		return nil, err
	}
	if !models.AtLeast(actor.Role, minimum) {
		return nil, models.ErrForbidden
	}
	return actor, nil
}

// outranks fails unless actor ranks strictly above target and they differ
func outranks(actor, target *models.User) error {
	if actor.ID == target.ID {
		return models.ErrForbidden
	}
	if target.Level() >= actor.Level() {
		return models.ErrForbidden
	}
	return nil
}

// boundedText trims s and checks it holds 1..max characters
func boundedText(field, s string, max int) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", models.NewValidationError(field, "Поле обязательно")
	}
	if utf8.RuneCountInString(s) > max {
		return "", models.NewValidationError(field, "Слишком длинное значение")
	}
	return s, nil
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}
