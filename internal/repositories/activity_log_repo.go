package repositories

import (
	"context"
	"fmt"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActivityLogRepository stores the staff-visible activity feed
type ActivityLogRepository struct {
	pool *pgxpool.Pool
}

func NewActivityLogRepository(db *database.DB) *ActivityLogRepository {
	return &ActivityLogRepository{pool: db.Pool}
}

func scanActivityRow(row rowScanner) (*models.ActivityLog, error) {
	var entry models.ActivityLog

	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.Action, &entry.Details,
		&entry.Metadata, &entry.CreatedAt, &entry.Username,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

func scanActivityRows(rows pgx.Rows) ([]*models.ActivityLog, error) {
	defer rows.Close()

	entries := make([]*models.ActivityLog, 0)
	for rows.Next() {
		entry, err := scanActivityRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return entries, nil
}

// insertActivity writes an entry through q so callers can include it in
// their own transaction.
func insertActivity(ctx context.Context, q database.Querier, entry *models.ActivityLog) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	var actor any
	if entry.UserID != "" {
		actor = entry.UserID
	}

	query := `
		INSERT INTO activity_log (id, user_id, action, details, metadata)
		VALUES ($1, $2, $3, $4, COALESCE($5::jsonb, '{}'::jsonb))
		RETURNING created_at
	`

	if err := q.QueryRow(ctx, query, entry.ID, actor, entry.Action, entry.Details, entry.Metadata).Scan(&entry.CreatedAt); err != nil {
		return fmt.Errorf("failed to record activity: %w", database.MapPostgresError(err))
	}
	return nil
}

func (r *ActivityLogRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	return insertActivity(ctx, r.pool, entry)
}

// ListRecent returns the newest entries with the actor's current username
func (r *ActivityLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	query := `
		SELECT a.id, COALESCE(a.user_id::text, ''), a.action, a.details, a.metadata, a.created_at,
		       COALESCE(u.username, '')
		FROM activity_log a
		LEFT JOIN users u ON u.id = a.user_id
		ORDER BY a.created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}

	return scanActivityRows(rows)
}
