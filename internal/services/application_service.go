package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/metrics"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
)

const (
	defaultReviewListLimit = 100
	maxReviewListLimit     = 500
)

// ApplicationRepository stores staff role applications
type ApplicationRepository interface {
	Create(ctx context.Context, app *models.AdminApplication) (*models.AdminApplication, error)
	GetByID(ctx context.Context, id string) (*models.AdminApplication, error)
	HasPending(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.AdminApplication, error)
	CountPending(ctx context.Context) (int64, error)
	Review(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.AdminApplication, error)
}

// ApplicationInput carries a staff application form
type ApplicationInput struct {
	Nick       string
	Age        int
	Hours      string
	Experience string
	Reason     string
	Discord    string
}

// ApplicationService handles staff role applications
type ApplicationService struct {
	apps        ApplicationRepository
	users       ActorLookup
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
}

func NewApplicationService(apps ApplicationRepository, users ActorLookup, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ApplicationService {
	return &ApplicationService{apps: apps, users: users, logger: logger, auditLogger: auditLogger, now: time.Now}
}

// parseReviewStatus maps a listing filter; "" and "all" select every record
func parseReviewStatus(raw string) (models.ReviewStatus, error) {
	switch s := models.ReviewStatus(strings.TrimSpace(raw)); s {
	case "", "all":
		return "", nil
	case models.ReviewPending, models.ReviewApproved, models.ReviewRejected:
		return s, nil
	}
	return "", models.NewValidationError("status", "Неизвестный статус")
}

// Submit files a pending application; one pending application per user
func (s *ApplicationService) Submit(ctx context.Context, userID string, in ApplicationInput) (*models.AdminApplication, error) {
	nick, err := boundedText("nick", in.Nick, 50)
	if err != nil {
		return nil, err
	}
	hours, err := boundedText("hours", in.Hours, 50)
	if err != nil {
		return nil, err
	}
	reason, err := boundedText("reason", in.Reason, 2000)
	if err != nil {
		return nil, err
	}
	discord, err := boundedText("discord", in.Discord, 100)
	if err != nil {
		return nil, err
	}
	if in.Age < models.MinApplicantAge {
		return nil, models.NewValidationError("age", "Минимальный возраст: 14 лет")
	}

	if _, err := loadActor(ctx, s.users, userID, s.logger); err != nil {
		return nil, err
	}

	pending, err := s.apps.HasPending(ctx, userID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to check pending applications", err, slog.String("user_id", userID))
	}
	if pending {
		return nil, models.ErrApplicationPending
	}

	app, err := s.apps.Create(ctx, &models.AdminApplication{
		UserID:     userID,
		Nick:       nick,
		Age:        in.Age,
		Hours:      hours,
		Experience: strings.TrimSpace(in.Experience),
		Reason:     reason,
		Discord:    discord,
		Status:     models.ReviewPending,
	})
	if err != nil {
		return nil, passThrough(s.logger, "failed to create application", err, slog.String("user_id", userID))
	}

	s.logger.Info("application submitted", slog.String("application_id", app.ID), slog.String("user_id", userID))
	return app, nil
}

// Approve grants the applicant role, which must be known and must not rank
// above the reviewer. The reviewer must outrank the applicant as they are
// now, not as they were when applying. An empty role grants helper.
func (s *ApplicationService) Approve(ctx context.Context, actorID, id string, role models.Role) (*models.AdminApplication, error) {
	if role == "" {
		role = models.RoleHelper
	}
	if !models.IsKnownRole(role) {
		return nil, models.NewValidationError("role", "Неизвестная роль")
	}

	actor, err := requireLevel(ctx, s.users, actorID, models.LevelReviewRequests, s.logger)
	if err != nil {
		return nil, err
	}
	if models.LevelOf(role) > actor.Level() {
		return nil, models.ErrForbidden
	}

	app, err := s.apps.GetByID(ctx, id)
	if err != nil {
		return nil, passThrough(s.logger, "failed to load application", err, slog.String("application_id", id))
	}
	applicant, err := s.users.GetByID(ctx, app.UserID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to load applicant", err, slog.String("user_id", app.UserID))
	}
	if err := outranks(actor, applicant); err != nil {
		return nil, err
	}

	return s.review(ctx, actor, id, models.Review{
		ReviewerID:    actor.ID,
		Status:        models.ReviewApproved,
		Role:          role,
		At:            s.now(),
		ApplicantRole: applicant.Role,
	})
}

// Reject closes the application with an optional reason
func (s *ApplicationService) Reject(ctx context.Context, actorID, id, reason string) (*models.AdminApplication, error) {
	actor, err := requireLevel(ctx, s.users, actorID, models.LevelReviewRequests, s.logger)
	if err != nil {
		return nil, err
	}

	return s.review(ctx, actor, id, models.Review{
		ReviewerID: actor.ID,
		Status:     models.ReviewRejected,
		Reason:     strings.TrimSpace(reason),
		At:         s.now(),
	})
}

func (s *ApplicationService) review(ctx context.Context, actor *models.User, id string, review models.Review) (*models.AdminApplication, error) {
	activity := models.NewActivity(actor.ID, models.ActivityReviewApp, "Рассмотрел заявку на роль",
		models.ActivityMetadata{"application_id": id, "status": string(review.Status), "role": string(review.Role)})

	app, err := s.apps.Review(ctx, id, review, activity)
	if err != nil {
		return nil, passThrough(s.logger, "failed to review application", err,
			slog.String("application_id", id), slog.String("actor_id", actor.ID))
	}

	metrics.WorkflowReviewsTotal.WithLabelValues("application", string(review.Status)).Inc()
	s.auditLogger.LogModeration(ctx, pkglogger.ModerationEvent{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     models.ActivityReviewApp + "_" + string(review.Status),
		TargetType: "application",
		TargetID:   id,
		Reason:     review.Reason,
	})
	return app, nil
}

// List returns applications filtered by status, newest first
func (s *ApplicationService) List(ctx context.Context, actorID, status string, limit int) ([]*models.AdminApplication, error) {
	filter, err := parseReviewStatus(status)
	if err != nil {
		return nil, err
	}
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelReviewRequests, s.logger); err != nil {
		return nil, err
	}

	apps, err := s.apps.List(ctx, filter, clampLimit(limit, defaultReviewListLimit, maxReviewListLimit))
	if err != nil {
		return nil, passThrough(s.logger, "failed to list applications", err)
	}
	return apps, nil
}

func (s *ApplicationService) CountPending(ctx context.Context, actorID string) (int64, error) {
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelReviewRequests, s.logger); err != nil {
		return 0, err
	}

	count, err := s.apps.CountPending(ctx)
	if err != nil {
		return 0, passThrough(s.logger, "failed to count pending applications", err)
	}
	return count, nil
}
