package services

import (
	"context"
	"log/slog"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
)

// RecentActivityLimit caps the activity feed on the admin dashboard
const RecentActivityLimit = 20

// StatsRepository computes forum counters
type StatsRepository interface {
	Forum(ctx context.Context) (*models.ForumStats, error)
	Admin(ctx context.Context) (*models.AdminStats, error)
}

// ActivityReader reads the activity log
type ActivityReader interface {
	ListRecent(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

// AdminDashboard is the staff overview
type AdminDashboard struct {
	Stats          *models.AdminStats
	RecentActivity []*models.ActivityLog
}

type StatsService struct {
	stats    StatsRepository
	activity ActivityReader
	users    ActorLookup
	logger   *slog.Logger
}

func NewStatsService(stats StatsRepository, activity ActivityReader, users ActorLookup, logger *slog.Logger) *StatsService {
	return &StatsService{stats: stats, activity: activity, users: users, logger: logger}
}

// PublicStats returns the front page counters
func (s *StatsService) PublicStats(ctx context.Context) (*models.ForumStats, error) {
	stats, err := s.stats.Forum(ctx)
	if err != nil {
		return nil, passThrough(s.logger, "failed to compute forum stats", err)
	}
	return stats, nil
}

// AdminStats returns queue sizes and the recent activity feed
func (s *StatsService) AdminStats(ctx context.Context, actorID string) (*AdminDashboard, error) {
	if _, err := requireLevel(ctx, s.users, actorID, models.LevelAdminPanel, s.logger); err != nil {
		return nil, err
	}

	stats, err := s.stats.Admin(ctx)
	if err != nil {
		return nil, passThrough(s.logger, "failed to compute admin stats", err)
	}

	recent, err := s.activity.ListRecent(ctx, RecentActivityLimit)
	if err != nil {
		return nil, passThrough(s.logger, "failed to load recent activity", err)
	}

	return &AdminDashboard{Stats: stats, RecentActivity: recent}, nil
}
