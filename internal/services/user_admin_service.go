package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/metrics"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
)

const (
	defaultUserListLimit = 50
	maxUserListLimit     = 200
)

// AdminUserRepository is the account storage used by staff tools
type AdminUserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	SetRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetBan(ctx context.Context, id string, banned bool, reason string) (*models.User, error)
	SetMute(ctx context.Context, id string, muted bool, reason string, expiresAt *time.Time) (*models.User, error)
	DeleteCascade(ctx context.Context, id string, activity *models.ActivityLog) error
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	SearchByUsername(ctx context.Context, fragment string) (*models.User, error)
}

// ActivityRecorder appends entries to the activity log
type ActivityRecorder interface {
	Create(ctx context.Context, entry *models.ActivityLog) error
}

// UserAdminService applies staff sanctions and role changes to accounts
type UserAdminService struct {
	users       AdminUserRepository
	activity    ActivityRecorder
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewUserAdminService(users AdminUserRepository, activity ActivityRecorder, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserAdminService {
	return &UserAdminService{
		users:       users,
		activity:    activity,
		logger:      logger,
		auditLogger: auditLogger,
		now:         time.Now,
	}
}

// target loads the staff actor and the account they act on, enforcing
// that the actor is an admin who outranks the target.
func (s *UserAdminService) target(ctx context.Context, actorID, targetID string) (*models.User, *models.User, error) {
	actor, err := requireLevel(ctx, s.users, actorID, models.LevelManageUsers, s.logger)
	if err != nil {
		return nil, nil, err
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, nil, passThrough(s.logger, "failed to load target user", err, slog.String("user_id", targetID))
	}

	if err := outranks(actor, target); err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

func (s *UserAdminService) record(ctx context.Context, actor, target *models.User, action, details, reason string) {
	metrics.ModerationActionsTotal.WithLabelValues(action).Inc()
	s.auditLogger.LogModeration(ctx, pkglogger.ModerationEvent{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     action,
		TargetType: "user",
		TargetID:   target.ID,
		Reason:     reason,
	})

	if s.activity == nil {
		return
	}
	entry := models.NewActivity(actor.ID, action, details, models.ActivityMetadata{"target_id": target.ID})
	if err := s.activity.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record activity", slog.String("action", action), slog.Any("error", err))
	}
}

// SetRole assigns a known role. The actor cannot grant a role above their
// own rank or change someone of equal or higher rank.
func (s *UserAdminService) SetRole(ctx context.Context, actorID, targetID string, role models.Role) (*models.User, error) {
	if !models.IsKnownRole(role) {
		return nil, models.NewValidationError("role", "Неизвестная роль")
	}

	actor, target, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}
	if models.LevelOf(role) > actor.Level() {
		return nil, models.ErrForbidden
	}

	updated, err := s.users.SetRole(ctx, target.ID, role)
	if err != nil {
		return nil, passThrough(s.logger, "failed to set role", err, slog.String("user_id", targetID))
	}

	s.record(ctx, actor, target, models.ActivityChangeRole,
		fmt.Sprintf("Изменил роль %s: %s → %s", target.Username, target.Role, role), "")
	return updated, nil
}

// Ban blocks the account; a reason is required
func (s *UserAdminService) Ban(ctx context.Context, actorID, targetID, reason string) (*models.User, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, models.NewValidationError("reason", "Укажите причину бана")
	}

	actor, target, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.SetBan(ctx, target.ID, true, reason)
	if err != nil {
		return nil, passThrough(s.logger, "failed to ban user", err, slog.String("user_id", targetID))
	}

	s.record(ctx, actor, target, models.ActivityBanUser,
		fmt.Sprintf("Забанил %s. Причина: %s", target.Username, reason), reason)
	return updated, nil
}

func (s *UserAdminService) Unban(ctx context.Context, actorID, targetID string) (*models.User, error) {
	actor, target, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.SetBan(ctx, target.ID, false, "")
	if err != nil {
		return nil, passThrough(s.logger, "failed to unban user", err, slog.String("user_id", targetID))
	}

	s.record(ctx, actor, target, models.ActivityUnbanUser, fmt.Sprintf("Разбанил %s", target.Username), "")
	return updated, nil
}

// Mute blocks publishing. A nil or non-positive duration mutes indefinitely.
func (s *UserAdminService) Mute(ctx context.Context, actorID, targetID, reason string, durationMinutes *int) (*models.User, error) {
	reason = strings.TrimSpace(reason)

	actor, target, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	var expiresAt *time.Time
	if durationMinutes != nil && *durationMinutes > 0 {
		t := s.now().Add(time.Duration(*durationMinutes) * time.Minute)
		expiresAt = &t
	}

	updated, err := s.users.SetMute(ctx, target.ID, true, reason, expiresAt)
	if err != nil {
		return nil, passThrough(s.logger, "failed to mute user", err, slog.String("user_id", targetID))
	}

	details := fmt.Sprintf("Замутил %s", target.Username)
	if expiresAt != nil {
		details += fmt.Sprintf(" на %d мин.", *durationMinutes)
	}
	if reason != "" {
		details += " Причина: " + reason
	}
	s.record(ctx, actor, target, models.ActivityMuteUser, details, reason)
	return updated, nil
}

func (s *UserAdminService) Unmute(ctx context.Context, actorID, targetID string) (*models.User, error) {
	actor, target, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return nil, err
	}

	updated, err := s.users.SetMute(ctx, target.ID, false, "", nil)
	if err != nil {
		return nil, passThrough(s.logger, "failed to unmute user", err, slog.String("user_id", targetID))
	}

	s.record(ctx, actor, target, models.ActivityUnmuteUser, fmt.Sprintf("Размутил %s", target.Username), "")
	return updated, nil
}

// Delete removes the account and all of its content in one transaction
func (s *UserAdminService) Delete(ctx context.Context, actorID, targetID string) error {
	actor, target, err := s.target(ctx, actorID, targetID)
	if err != nil {
		return err
	}

	entry := models.NewActivity(actor.ID, models.ActivityDeleteUser,
		fmt.Sprintf("Удалил пользователя %s", target.Username),
		models.ActivityMetadata{"target_id": target.ID, "username": target.Username})

	if err := s.users.DeleteCascade(ctx, target.ID, entry); err != nil {
		return passThrough(s.logger, "failed to delete user", err, slog.String("user_id", targetID))
	}

	metrics.ModerationActionsTotal.WithLabelValues(models.ActivityDeleteUser).Inc()
	s.auditLogger.LogModeration(ctx, pkglogger.ModerationEvent{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     models.ActivityDeleteUser,
		TargetType: "user",
		TargetID:   target.ID,
	})
	return nil
}

// ListUsers filters accounts by username/email substring and role
func (s *UserAdminService) ListUsers(ctx context.Context, actorID, search string, role models.Role, limit int) ([]*models.User, error) {
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelManageUsers, s.logger); err != nil {
		return nil, err
	}
	if role != "" && !models.IsKnownRole(role) {
		return nil, models.NewValidationError("role", "Неизвестная роль")
	}

	users, err := s.users.List(ctx, models.UserFilter{
		Search: strings.TrimSpace(search),
		Role:   role,
		Limit:  clampLimit(limit, defaultUserListLimit, maxUserListLimit),
	})
	if err != nil {
		return nil, passThrough(s.logger, "failed to list users", err)
	}
	return users, nil
}

// SearchUser returns the first account whose username contains the fragment
func (s *UserAdminService) SearchUser(ctx context.Context, actorID, username string) (*models.User, error) {
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelManageUsers, s.logger); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("username", "Укажите имя пользователя")
	}

	user, err := s.users.SearchByUsername(ctx, username)
	if err != nil {
		return nil, passThrough(s.logger, "failed to search user", err)
	}
	return user, nil
}
