package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FavoriteRepository struct {
	pool *pgxpool.Pool
}

func NewFavoriteRepository(db *database.DB) *FavoriteRepository {
	return &FavoriteRepository{pool: db.Pool}
}

// Add is idempotent; an unknown post yields ErrPostNotFound
func (r *FavoriteRepository) Add(ctx context.Context, userID, postID string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO favorites (user_id, post_id) VALUES ($1, $2)
		ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID,
	)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrBadRequest) || errors.Is(mapped, models.ErrNotFound) {
			return models.ErrPostNotFound
		}
		return fmt.Errorf("failed to add favorite: %w", mapped)
	}
	return nil
}

// Remove is idempotent
func (r *FavoriteRepository) Remove(ctx context.Context, userID, postID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND post_id = $2`, userID, postID); err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to remove favorite: %w", mapped)
	}
	return nil
}

// ListPosts returns the user's favorite topics, most recently added first
func (r *FavoriteRepository) ListPosts(ctx context.Context, userID string) ([]*models.Post, error) {
	query := `
		SELECT ` + postColumns + `
		FROM favorites f
		JOIN posts p ON p.id = f.post_id
		LEFT JOIN users u ON u.id = p.author_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query favorites: %w", err)
	}

	return scanPostRows(rows)
}
