package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/metrics"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/repositories"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
)

// StatusWriter applies guarded status changes to topics
type StatusWriter interface {
	GetByID(ctx context.Context, id string) (*models.Post, error)
	UpdateStatus(ctx context.Context, change repositories.StatusChange) (*models.Post, error)
}

// ModerationService moves topics through the review state machine
type ModerationService struct {
	posts       StatusWriter
	users       ActorLookup
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewModerationService(posts StatusWriter, users ActorLookup, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *ModerationService {
	return &ModerationService{posts: posts, users: users, logger: logger, auditLogger: auditLogger}
}

func (s *ModerationService) Approve(ctx context.Context, actorID, postID string) (*models.Post, error) {
	return s.Apply(ctx, actorID, postID, models.ActionApprove, "")
}

// Reject moves the topic to rejected; a non-blank reason is left as a
// staff comment in the same transaction.
func (s *ModerationService) Reject(ctx context.Context, actorID, postID, reason string) (*models.Post, error) {
	return s.Apply(ctx, actorID, postID, models.ActionReject, reason)
}

func (s *ModerationService) Resolve(ctx context.Context, actorID, postID string) (*models.Post, error) {
	return s.Apply(ctx, actorID, postID, models.ActionResolve, "")
}

func (s *ModerationService) Reopen(ctx context.Context, actorID, postID string) (*models.Post, error) {
	return s.Apply(ctx, actorID, postID, models.ActionReopen, "")
}

// Apply performs a moderation action. The write only lands while the topic
// is still in the status it was read in, so a concurrent transition makes
// this call fail with ErrInvalidTransition.
func (s *ModerationService) Apply(ctx context.Context, actorID, postID string, action models.ModerationAction, reason string) (*models.Post, error) {
	if !action.IsValid() {
		return nil, models.NewValidationError("action", "Неизвестное действие")
	}

	actor, err := requireLevel(ctx, s.users, actorID, models.LevelModeratePosts, s.logger)
	if err != nil {
		return nil, err
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to get post", err, slog.String("post_id", postID))
	}

	next, err := models.Transition(post.Status, action)
	if err != nil {
		return nil, err
	}

	change := repositories.StatusChange{
		PostID: post.ID,
		From:   post.Status,
		To:     next,
		Activity: models.NewActivity(actor.ID, models.ActivityPostStatus,
			"Изменил статус темы \""+post.Title+"\": "+next.Label(),
			models.ActivityMetadata{"post_id": post.ID, "from": string(post.Status), "to": string(next), "action": string(action)}),
	}

	reason = strings.TrimSpace(reason)
	if action == models.ActionReject && reason != "" {
		change.Comment = &models.Comment{
			AuthorID:       actor.ID,
			AuthorUsername: actor.Username,
			AuthorAvatar:   actor.Avatar,
			Text:           models.RejectCommentPrefix + reason,
			IsAdminAction:  true,
		}
	}

	updated, err := s.posts.UpdateStatus(ctx, change)
	if err != nil {
		return nil, passThrough(s.logger, "failed to update post status", err,
			slog.String("post_id", postID), slog.String("actor_id", actorID))
	}

	metrics.ModerationActionsTotal.WithLabelValues(string(action)).Inc()
	s.auditLogger.LogModeration(ctx, pkglogger.ModerationEvent{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     string(action),
		TargetType: "post",
		TargetID:   post.ID,
		Reason:     reason,
	})
	s.logger.Info("post status changed",
		slog.String("post_id", post.ID),
		slog.String("from", string(post.Status)),
		slog.String("to", string(next)),
		slog.String("actor_id", actor.ID))

	return updated, nil
}
