package services

import (
	"context"
	"log/slog"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
)

// NotificationRepository stores per-user notifications
type NotificationRepository interface {
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type NotificationService struct {
	notifications NotificationRepository
	logger        *slog.Logger
}

func NewNotificationService(notifications NotificationRepository, logger *slog.Logger) *NotificationService {
	return &NotificationService{notifications: notifications, logger: logger}
}

// List returns the newest notifications of the user
func (s *NotificationService) List(ctx context.Context, userID string) ([]*models.Notification, error) {
	list, err := s.notifications.ListByUser(ctx, userID, models.NotificationListLimit)
	if err != nil {
		return nil, passThrough(s.logger, "failed to list notifications", err, slog.String("user_id", userID))
	}
	return list, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.notifications.CountUnread(ctx, userID)
	if err != nil {
		return 0, passThrough(s.logger, "failed to count notifications", err, slog.String("user_id", userID))
	}
	return count, nil
}

// MarkRead marks one of the user's own notifications read. Ids belonging
// to someone else are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.notifications.MarkRead(ctx, id, userID); err != nil {
		return passThrough(s.logger, "failed to mark notification read", err, slog.String("user_id", userID))
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	n, err := s.notifications.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, passThrough(s.logger, "failed to mark notifications read", err, slog.String("user_id", userID))
	}
	return n, nil
}
