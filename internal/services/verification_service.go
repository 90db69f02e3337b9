package services

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/metrics"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
)

var robloxUserIDPattern = regexp.MustCompile(`^\d+$`)

// VerificationRepository stores Roblox account verification requests
type VerificationRepository interface {
	Create(ctx context.Context, v *models.RobloxVerification) (*models.RobloxVerification, error)
	HasPending(ctx context.Context, userID string) (bool, error)
	List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.RobloxVerification, error)
	CountPending(ctx context.Context) (int64, error)
	Review(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.RobloxVerification, error)
}

// VerificationService confirms that users own the Roblox account they claim
type VerificationService struct {
	verifications VerificationRepository
	users         ActorLookup
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
	now           func() time.Time
}

func NewVerificationService(verifications VerificationRepository, users ActorLookup, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *VerificationService {
	return &VerificationService{verifications: verifications, users: users, logger: logger, auditLogger: auditLogger, now: time.Now}
}

// Submit files a request for the user's current Roblox nickname. The
// repository stores the claimed user id on the account in the same write.
func (s *VerificationService) Submit(ctx context.Context, userID, robloxUserID string) (*models.RobloxVerification, error) {
	robloxUserID = strings.TrimSpace(robloxUserID)
	if robloxUserID == "" {
		return nil, models.NewValidationError("roblox_user_id", "Укажите User ID")
	}
	if !robloxUserIDPattern.MatchString(robloxUserID) || len(robloxUserID) > 20 {
		return nil, models.NewValidationError("roblox_user_id", "User ID должен быть числом")
	}

	user, err := loadActor(ctx, s.users, userID, s.logger)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(user.RobloxNick) == "" {
		return nil, models.NewValidationError("roblox_nick", "Сначала укажите ник Roblox в профиле")
	}

	pending, err := s.verifications.HasPending(ctx, userID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to check pending verifications", err, slog.String("user_id", userID))
	}
	if pending {
		return nil, models.ErrVerificationPending
	}

	v, err := s.verifications.Create(ctx, &models.RobloxVerification{
		UserID:       userID,
		RobloxNick:   user.RobloxNick,
		RobloxUserID: robloxUserID,
		Status:       models.ReviewPending,
	})
	if err != nil {
		return nil, passThrough(s.logger, "failed to create verification", err, slog.String("user_id", userID))
	}

	s.logger.Info("verification submitted", slog.String("verification_id", v.ID), slog.String("user_id", userID))
	return v, nil
}

func (s *VerificationService) Approve(ctx context.Context, actorID, id string) (*models.RobloxVerification, error) {
	return s.review(ctx, actorID, id, models.ReviewApproved, "")
}

func (s *VerificationService) Reject(ctx context.Context, actorID, id, reason string) (*models.RobloxVerification, error) {
	return s.review(ctx, actorID, id, models.ReviewRejected, strings.TrimSpace(reason))
}

func (s *VerificationService) review(ctx context.Context, actorID, id string, status models.ReviewStatus, reason string) (*models.RobloxVerification, error) {
	actor, err := requireLevel(ctx, s.users, actorID, models.LevelReviewRequests, s.logger)
	if err != nil {
		return nil, err
	}

	review := models.Review{ReviewerID: actor.ID, Status: status, Reason: reason, At: s.now()}
	activity := models.NewActivity(actor.ID, models.ActivityReviewVerify, "Рассмотрел верификацию Roblox",
		models.ActivityMetadata{"verification_id": id, "status": string(status)})

	v, err := s.verifications.Review(ctx, id, review, activity)
	if err != nil {
		return nil, passThrough(s.logger, "failed to review verification", err,
			slog.String("verification_id", id), slog.String("actor_id", actorID))
	}

	metrics.WorkflowReviewsTotal.WithLabelValues("verification", string(status)).Inc()
	s.auditLogger.LogModeration(ctx, pkglogger.ModerationEvent{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     models.ActivityReviewVerify + "_" + string(status),
		TargetType: "verification",
		TargetID:   id,
		Reason:     reason,
	})
	return v, nil
}

func (s *VerificationService) List(ctx context.Context, actorID, status string, limit int) ([]*models.RobloxVerification, error) {
	filter, err := parseReviewStatus(status)
	if err != nil {
		return nil, err
	}
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelReviewRequests, s.logger); err != nil {
		return nil, err
	}

	list, err := s.verifications.List(ctx, filter, clampLimit(limit, defaultReviewListLimit, maxReviewListLimit))
	if err != nil {
		return nil, passThrough(s.logger, "failed to list verifications", err)
	}
	return list, nil
}

func (s *VerificationService) CountPending(ctx context.Context, actorID string) (int64, error) {
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelReviewRequests, s.logger); err != nil {
		return 0, err
	}

	count, err := s.verifications.CountPending(ctx)
	if err != nil {
		return 0, passThrough(s.logger, "failed to count pending verifications", err)
	}
	return count, nil
}
