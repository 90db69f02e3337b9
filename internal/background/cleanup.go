package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/metrics"
)

// TokenCleaner removes revocation records whose tokens have expired anyway
type TokenCleaner interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CodeCleaner removes email codes past their expiry
type CodeCleaner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// PresenceSweeper clears the online flag of users idle since before
type PresenceSweeper interface {
	MarkIdleOffline(ctx context.Context, before time.Time) (int64, error)
}

// OnlineCounter reports how many users are currently online
type OnlineCounter interface {
	CountOnline(ctx context.Context) (int64, error)
}

// presenceSweep runs on its own ticker; the online window is minutes, not hours
const presenceSweep = time.Minute

// CleanupManager runs the periodic maintenance tasks
type CleanupManager struct {
	tokens       TokenCleaner
	codes        CodeCleaner
	presence     PresenceSweeper
	online       OnlineCounter
	logger       *slog.Logger
	interval     time.Duration
	onlineWindow time.Duration
	now          func() time.Time
	stopCh       chan struct{}
	stopOnce     sync.Once
}

// NewCleanupManager creates a new cleanup manager. online may be nil.
func NewCleanupManager(
	tokens TokenCleaner,
	codes CodeCleaner,
	presence PresenceSweeper,
	online OnlineCounter,
	logger *slog.Logger,
	interval, onlineWindow time.Duration,
) *CleanupManager {
	return &CleanupManager{
		tokens:       tokens,
		codes:        codes,
		presence:     presence,
		online:       online,
		logger:       logger,
		interval:     interval,
		onlineWindow: onlineWindow,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start blocks, running cleanup every interval and the presence sweep every minute
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()
	sweep := time.NewTicker(presenceSweep)
	defer sweep.Stop()

	// Run immediately on startup
	cm.RunCleanup(ctx)
	cm.SweepPresence(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunCleanup(ctx)
		case <-sweep.C:
			cm.SweepPresence(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunCleanup removes expired revocations and email codes
func (cm *CleanupManager) RunCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cm.runTask(cleanupCtx, "revoked_tokens", cm.tokens.CleanupExpiredTokens)
	cm.runTask(cleanupCtx, "email_codes", cm.codes.DeleteExpired)
}

// SweepPresence marks idle users offline and refreshes the online gauge
func (cm *CleanupManager) SweepPresence(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cutoff := cm.now().Add(-cm.onlineWindow)
	cm.runTask(sweepCtx, "idle_presence", func(ctx context.Context) (int64, error) {
		return cm.presence.MarkIdleOffline(ctx, cutoff)
	})

	if cm.online == nil {
		return
	}
	n, err := cm.online.CountOnline(sweepCtx)
	if err != nil {
		cm.logger.Error("failed to count online users", slog.Any("error", err))
		return
	}
	metrics.OnlineUsers.Set(float64(n))
}

func (cm *CleanupManager) runTask(ctx context.Context, task string, fn func(context.Context) (int64, error)) {
	rows, err := fn(ctx)
	if err != nil {
		cm.logger.Error("cleanup task failed", slog.String("task", task), slog.Any("error", err))
		return
	}

	if rows > 0 {
		metrics.CleanupRemovedTotal.WithLabelValues(task).Add(float64(rows))
		cm.logger.Info("cleanup task completed", slog.String("task", task), slog.Int64("rows", rows))
	}
}

// Stop signals the cleanup manager to stop; safe to call more than once
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
