package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/metrics"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
)

// Topic field bounds, counted in characters
const (
	MaxTitleLength   = 200
	MaxContentLength = 10000
)

// Listing page size bounds
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// PostRepository is the topic storage used by PostService
type PostRepository interface {
	Create(ctx context.Context, post *models.Post, activity *models.ActivityLog) (*models.Post, error)
	GetByID(ctx context.Context, id string) (*models.Post, error)
	GetAndIncrementViews(ctx context.Context, id string) (*models.Post, error)
	IncrementViews(ctx context.Context, id string) (int, error)
	List(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error)
	Delete(ctx context.Context, id string, activity *models.ActivityLog) error
	TogglePin(ctx context.Context, id string) (bool, error)
	ToggleHot(ctx context.Context, id string) (bool, error)
}

// CommentRepository is the comment storage used by PostService
type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	ListByPost(ctx context.Context, postID string) ([]*models.Comment, error)
}

// PostService owns topics and their comments
type PostService struct {
	posts       PostRepository
	comments    CommentRepository
	users       ActorLookup
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewPostService(posts PostRepository, comments CommentRepository, users ActorLookup, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *PostService {
	return &PostService{
		posts:       posts,
		comments:    comments,
		users:       users,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// CreatePostInput carries a new topic
type CreatePostInput struct {
	Category models.Category
	Title    string
	Content  string
}

// PostQuery is a public listing request; Page starts at 1
type PostQuery struct {
	Category models.Category
	Status   models.PostStatus
	Search   string
	Page     int
	Limit    int
}

// PostPage is one page of a listing with the total number of matches
type PostPage struct {
	Posts []*models.Post
	Total int
	Page  int
	Limit int
}

// CreatePost publishes a topic in the initial moderation status
func (s *PostService) CreatePost(ctx context.Context, authorID string, in CreatePostInput) (*models.Post, error) {
	if !in.Category.IsValid() {
		return nil, models.NewValidationError("category", "Неизвестная категория")
	}
	title, err := boundedText("title", in.Title, MaxTitleLength)
	if err != nil {
		return nil, err
	}
	content, err := boundedText("content", in.Content, MaxContentLength)
	if err != nil {
		return nil, err
	}

	author, err := loadActor(ctx, s.users, authorID, s.logger)
	if err != nil {
		return nil, err
	}
	if err := author.CanPublish(); err != nil {
		return nil, err
	}

	post := &models.Post{
		AuthorID: author.ID,
		Category: in.Category,
		Title:    title,
		Content:  content,
	}
	post.SetStatus(models.InitialPostStatus)

	activity := models.NewActivity(author.ID, models.ActivityPostCreate, "Создал тему: "+title,
		models.ActivityMetadata{"category": string(in.Category)})

	created, err := s.posts.Create(ctx, post, activity)
	if err != nil {
		return nil, passThrough(s.logger, "failed to create post", err, slog.String("author_id", authorID))
	}

	metrics.PostsCreatedTotal.WithLabelValues(string(in.Category)).Inc()
	s.logger.Info("post created", slog.String("post_id", created.ID), slog.String("author_id", authorID))
	return created, nil
}

// AddComment appends a comment with the author's current display name and avatar
func (s *PostService) AddComment(ctx context.Context, postID, authorID, text string) (*models.Comment, error) {
	text, err := models.NormalizeCommentText(text)
	if err != nil {
		return nil, err
	}

	author, err := loadActor(ctx, s.users, authorID, s.logger)
	if err != nil {
		return nil, err
	}
	if err := author.CanPublish(); err != nil {
		return nil, err
	}

	comment, err := s.comments.Create(ctx, &models.Comment{
		PostID:         postID,
		AuthorID:       author.ID,
		AuthorUsername: author.Username,
		AuthorAvatar:   author.Avatar,
		Text:           text,
	})
	if err != nil {
		return nil, passThrough(s.logger, "failed to create comment", err, slog.String("post_id", postID))
	}

	metrics.CommentsCreatedTotal.Inc()
	return comment, nil
}

// GetPost returns the topic and counts one view
func (s *PostService) GetPost(ctx context.Context, id string) (*models.Post, error) {
	post, err := s.posts.GetAndIncrementViews(ctx, id)
	if err != nil {
		return nil, passThrough(s.logger, "failed to get post", err, slog.String("post_id", id))
	}
	return post, nil
}

// IncrementViews counts one view without loading the topic
func (s *PostService) IncrementViews(ctx context.Context, id string) (int, error) {
	views, err := s.posts.IncrementViews(ctx, id)
	if err != nil {
		return 0, passThrough(s.logger, "failed to increment views", err, slog.String("post_id", id))
	}
	return views, nil
}

// DeletePost removes a topic. Allowed for its author and for moderators
// and above; anyone else gets ErrForbidden and the topic stays.
func (s *PostService) DeletePost(ctx context.Context, postID, requesterID string) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return passThrough(s.logger, "failed to get post", err, slog.String("post_id", postID))
	}

	requester, err := loadActor(ctx, s.users, requesterID, s.logger)
	if err != nil {
		return err
	}

	isAuthor := post.AuthorID == requester.ID
	if !isAuthor && !models.AtLeast(requester.Role, models.LevelDeleteAnyPost) {
		return models.ErrForbidden
	}

	activity := models.NewActivity(requester.ID, models.ActivityPostDelete, "Удалил тему: "+post.Title,
		models.ActivityMetadata{"post_id": post.ID, "author_id": post.AuthorID})

	if err := s.posts.Delete(ctx, post.ID, activity); err != nil {
		return passThrough(s.logger, "failed to delete post", err, slog.String("post_id", postID))
	}

	if !isAuthor {
		metrics.ModerationActionsTotal.WithLabelValues(models.ActivityPostDelete).Inc()
		s.auditLogger.LogModeration(ctx, pkglogger.ModerationEvent{
			ActorID:    requester.ID,
			ActorRole:  string(requester.Role),
			Action:     models.ActivityPostDelete,
			TargetType: "post",
			TargetID:   post.ID,
		})
	}
	s.logger.Info("post deleted", slog.String("post_id", postID), slog.String("actor_id", requesterID))
	return nil
}

// ListPosts returns one page of topics, pinned first then newest
func (s *PostService) ListPosts(ctx context.Context, q PostQuery) (*PostPage, error) {
	if q.Category != "" && !q.Category.IsValid() {
		return nil, models.NewValidationError("category", "Неизвестная категория")
	}
	if q.Status != "" && !q.Status.IsValid() {
		return nil, models.NewValidationError("status", "Неизвестный статус")
	}

	limit := clampLimit(q.Limit, DefaultPageSize, MaxPageSize)
	page := q.Page
	if page < 1 {
		page = 1
	}

	posts, total, err := s.posts.List(ctx, models.PostFilter{
		Category: q.Category,
		Status:   q.Status,
		Search:   strings.TrimSpace(q.Search),
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return nil, passThrough(s.logger, "failed to list posts", err)
	}

	return &PostPage{Posts: posts, Total: total, Page: page, Limit: limit}, nil
}

// ListComments returns the topic's comments oldest first
func (s *PostService) ListComments(ctx context.Context, postID string) ([]*models.Comment, error) {
	if _, err := s.posts.GetByID(ctx, postID); err != nil {
		return nil, passThrough(s.logger, "failed to get post", err, slog.String("post_id", postID))
	}

	comments, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to list comments", err, slog.String("post_id", postID))
	}
	return comments, nil
}

// TogglePin flips the pinned flag; admin only
func (s *PostService) TogglePin(ctx context.Context, actorID, postID string) (bool, error) {
	return s.toggle(ctx, actorID, postID, "pin_post", s.posts.TogglePin)
}

// ToggleHot flips the hot flag; admin only
func (s *PostService) ToggleHot(ctx context.Context, actorID, postID string) (bool, error) {
	return s.toggle(ctx, actorID, postID, "hot_post", s.posts.ToggleHot)
}

func (s *PostService) toggle(ctx context.Context, actorID, postID, action string, fn func(context.Context, string) (bool, error)) (bool, error) {
	actor, err := requireLevel(ctx, s.users, actorID, models.LevelModeratePosts, s.logger)
	if err != nil {
		return false, err
	}

	value, err := fn(ctx, postID)
	if err != nil {
		return false, passThrough(s.logger, "failed to toggle post flag", err, slog.String("post_id", postID))
	}

	metrics.ModerationActionsTotal.WithLabelValues(action).Inc()
	s.auditLogger.LogModeration(ctx, pkglogger.ModerationEvent{
		ActorID:    actor.ID,
		ActorRole:  string(actor.Role),
		Action:     action,
		TargetType: "post",
		TargetID:   postID,
	})
	return value, nil
}

// AdminListPosts is the staff view of topics filtered by status and category
func (s *PostService) AdminListPosts(ctx context.Context, actorID string, status models.PostStatus, category models.Category, limit int) ([]*models.Post, error) {
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelAdminPanel, s.logger); err != nil {
		return nil, err
	}

	page, err := s.ListPosts(ctx, PostQuery{Status: status, Category: category, Limit: limit, Page: 1})
	if err != nil {
		return nil, err
	}
	return page.Posts, nil
}
