package services

import (
	"context"
	"log/slog"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
)

// FavoriteRepository stores bookmarked topics
type FavoriteRepository interface {
	Add(ctx context.Context, userID, postID string) error
	Remove(ctx context.Context, userID, postID string) error
	ListPosts(ctx context.Context, userID string) ([]*models.Post, error)
}

type FavoriteService struct {
	favorites FavoriteRepository
	logger    *slog.Logger
}

func NewFavoriteService(favorites FavoriteRepository, logger *slog.Logger) *FavoriteService {
	return &FavoriteService{favorites: favorites, logger: logger}
}

// Add bookmarks a topic; adding twice is a no-op
func (s *FavoriteService) Add(ctx context.Context, userID, postID string) error {
	if err := s.favorites.Add(ctx, userID, postID); err != nil {
		return passThrough(s.logger, "failed to add favorite", err, slog.String("post_id", postID))
	}
	return nil
}

// Remove drops a bookmark; removing a missing one is a no-op
func (s *FavoriteService) Remove(ctx context.Context, userID, postID string) error {
	if err := s.favorites.Remove(ctx, userID, postID); err != nil {
		return passThrough(s.logger, "failed to remove favorite", err, slog.String("post_id", postID))
	}
	return nil
}

// List returns bookmarked topics, most recently added first
func (s *FavoriteService) List(ctx context.Context, userID string) ([]*models.Post, error) {
	posts, err := s.favorites.ListPosts(ctx, userID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to list favorites", err, slog.String("user_id", userID))
	}
	return posts, nil
}
