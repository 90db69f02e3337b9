package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkgauth "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/auth"
)

// EmailCodeRepository stores hashed email confirmation codes
type EmailCodeRepository interface {
	Replace(ctx context.Context, userID, email, codeHash string, expiresAt time.Time) (*models.EmailCode, error)
	GetActive(ctx context.Context, userID string) (*models.EmailCode, error)
	LastSentAt(ctx context.Context, userID string) (*time.Time, error)
	Redeem(ctx context.Context, codeID, userID string) error
	RecordFailure(ctx context.Context, codeID string, max int) (int, error)
}

// EmailCodeService issues and checks six-digit email confirmation codes
type EmailCodeService struct {
	codes    EmailCodeRepository
	users    ActorLookup
	sender   EmailSender
	expiry   time.Duration
	cooldown time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewEmailCodeService(codes EmailCodeRepository, users ActorLookup, sender EmailSender, expiry, cooldown time.Duration, logger *slog.Logger) *EmailCodeService {
	return &EmailCodeService{
		codes:    codes,
		users:    users,
		sender:   sender,
		expiry:   expiry,
		cooldown: cooldown,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue replaces any outstanding code for the user and emails a new one
func (s *EmailCodeService) Issue(ctx context.Context, user *models.User) error {
	code, err := pkgauth.GenerateEmailCode()
	if err != nil {
		s.logger.Error("failed to generate email code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hash, err := pkgauth.HashCode(code)
	if err != nil {
		s.logger.Error("failed to hash email code", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := s.now().Add(s.expiry)
	if _, err := s.codes.Replace(ctx, user.ID, user.Email, hash, expiresAt); err != nil {
		return passThrough(s.logger, "failed to store email code", err, slog.String("user_id", user.ID))
	}

	if err := s.sender.SendVerificationCode(ctx, user.Email, code, expiresAt); err != nil {
		s.logger.Error("failed to deliver email code", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	return nil
}

// Request sends a code unless the email is already confirmed or a code was
// sent within the cooldown.
func (s *EmailCodeService) Request(ctx context.Context, userID string) error {
	user, err := loadActor(ctx, s.users, userID, s.logger)
	if err != nil {
		return err
	}
	if user.IsEmailVerified {
		return models.NewValidationError("email", "Email уже подтверждён")
	}

	last, err := s.codes.LastSentAt(ctx, userID)
	if err != nil {
		return passThrough(s.logger, "failed to read last code time", err, slog.String("user_id", userID))
	}
	if last != nil && s.now().Sub(*last) < s.cooldown {
		return models.ErrCodeCooldown
	}

	return s.Issue(ctx, user)
}

// Verify redeems a code and marks the email confirmed. Every wrong guess
// counts against the code; after MaxEmailCodeAttempts a new code is needed.
func (s *EmailCodeService) Verify(ctx context.Context, userID, code string) error {
	code = strings.TrimSpace(code)
	if len(code) != pkgauth.EmailCodeDigits {
		return models.ErrInvalidCode
	}

	active, err := s.codes.GetActive(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidCode
		}
		return passThrough(s.logger, "failed to load email code", err, slog.String("user_id", userID))
	}

	if active.UsedAt != nil || active.IsExhausted() || !s.now().Before(active.ExpiresAt) {
		return models.ErrInvalidCode
	}

	if !pkgauth.CompareCode(active.CodeHash, code) {
		attempts, err := s.codes.RecordFailure(ctx, active.ID, models.MaxEmailCodeAttempts)
		if err != nil && !errors.Is(err, models.ErrInvalidCode) {
			return passThrough(s.logger, "failed to record code attempt", err, slog.String("user_id", userID))
		}
		if attempts >= models.MaxEmailCodeAttempts {
			s.logger.Warn("email code exhausted", slog.String("user_id", userID), slog.Int("attempts", attempts))
		}
		return models.ErrInvalidCode
	}

	if err := s.codes.Redeem(ctx, active.ID, userID); err != nil {
		return passThrough(s.logger, "failed to redeem email code", err, slog.String("user_id", userID))
	}

	s.logger.Info("email confirmed", slog.String("user_id", userID))
	return nil
}
