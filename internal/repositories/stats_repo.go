package repositories

import (
	"context"
	"fmt"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository computes forum-wide counters
type StatsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(db *database.DB) *StatsRepository {
	return &StatsRepository{pool: db.Pool}
}

func (r *StatsRepository) Forum(ctx context.Context) (*models.ForumStats, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM posts),
		       (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM comments),
		       (SELECT COUNT(*) FROM users WHERE is_online)
	`

	var s models.ForumStats
	if err := r.pool.QueryRow(ctx, query).Scan(&s.TotalPosts, &s.TotalUsers, &s.TotalComments, &s.OnlineUsers); err != nil {
		return nil, fmt.Errorf("failed to compute forum stats: %w", database.MapPostgresError(err))
	}
	return &s, nil
}

func (r *StatsRepository) Admin(ctx context.Context) (*models.AdminStats, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM posts),
		       (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM comments),
		       (SELECT COUNT(*) FROM users WHERE is_online),
		       (SELECT COUNT(*) FROM posts WHERE status = 'pending'),
		       (SELECT COUNT(*) FROM admin_applications WHERE status = 'pending'),
		       (SELECT COUNT(*) FROM roblox_verifications WHERE status = 'pending')
	`

	var s models.AdminStats
	err := r.pool.QueryRow(ctx, query).Scan(
		&s.TotalPosts, &s.TotalUsers, &s.TotalComments, &s.OnlineUsers,
		&s.PendingPosts, &s.PendingApplications, &s.PendingVerifications,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute admin stats: %w", database.MapPostgresError(err))
	}
	return &s, nil
}
