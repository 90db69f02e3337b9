package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ApplicationRepository stores staff role applications
type ApplicationRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewApplicationRepository(db *database.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db, pool: db.Pool}
}

const applicationColumns = `
	a.id, a.user_id, a.nick, a.age, a.hours, a.experience, a.reason, a.discord,
	a.status, a.approved_role, a.reviewed_by, a.reviewed_at, a.reject_reason, a.created_at,
	COALESCE(u.username, ''), COALESCE(u.avatar, ''), COALESCE(u.avatar_url, '')`

func scanApplicationRow(row rowScanner) (*models.AdminApplication, error) {
	var app models.AdminApplication
	var status, role string

	err := row.Scan(
		&app.ID, &app.UserID, &app.Nick, &app.Age, &app.Hours, &app.Experience, &app.Reason, &app.Discord,
		&status, &role, &app.ReviewedBy, &app.ReviewedAt, &app.RejectReason, &app.CreatedAt,
		&app.Applicant.Username, &app.Applicant.Avatar, &app.Applicant.AvatarURL,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	app.Status = models.ReviewStatus(status)
	app.ApprovedRole = models.Role(role)
	return &app, nil
}

func (r *ApplicationRepository) Create(ctx context.Context, app *models.AdminApplication) (*models.AdminApplication, error) {
	app.ID = uuid.New().String()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_applications (id, user_id, nick, age, hours, experience, reason, discord, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')`,
		app.ID, app.UserID, app.Nick, app.Age, app.Hours, app.Experience, app.Reason, app.Discord,
	)
	if err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrConflict) {
			return nil, models.ErrApplicationPending
		}
		return nil, fmt.Errorf("failed to create application: %w", database.MapPostgresError(err))
	}

	return r.GetByID(ctx, app.ID)
}

func (r *ApplicationRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM admin_applications WHERE user_id = $1 AND status = 'pending')`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending application: %w", database.MapPostgresError(err))
	}
	return exists, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*models.AdminApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM admin_applications a LEFT JOIN users u ON u.id = a.user_id
		WHERE a.id = $1`

	app, err := scanApplicationRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrApplicationNotFound
	}
	return app, err
}

// List returns applications newest first; an empty status lists all of them
func (r *ApplicationRepository) List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.AdminApplication, error) {
	query := `SELECT ` + applicationColumns + `
		FROM admin_applications a LEFT JOIN users u ON u.id = a.user_id
		WHERE ($1::text = '' OR a.status = $1::text)
		ORDER BY a.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	apps := make([]*models.AdminApplication, 0)
	for rows.Next() {
		app, err := scanApplicationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, app)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating application rows: %w", err)
	}

	return apps, nil
}

func (r *ApplicationRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_applications WHERE status = 'pending'`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count applications: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// Review resolves a pending application exactly once. Approval grants the
// role, guarded by review.ApplicantRole when set; either outcome notifies the
// applicant inside the same transaction.
func (r *ApplicationRepository) Review(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.AdminApplication, error) {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx, `
			UPDATE admin_applications
			SET status = $1, reviewed_by = $2, reviewed_at = $3, reject_reason = $4, approved_role = $5
			WHERE id = $6 AND status = 'pending'
			RETURNING user_id`,
			string(review.Status), review.ReviewerID, review.At, nullableString(review.Reason), string(review.Role), id,
		).Scan(&userID)
		if err != nil {
			mapped := database.MapPostgresError(err)
			if !errors.Is(mapped, models.ErrNotFound) {
				return fmt.Errorf("failed to review application: %w", mapped)
			}
			return reviewMiss(ctx, tx, `SELECT EXISTS(SELECT 1 FROM admin_applications WHERE id = $1)`, id, models.ErrApplicationNotFound)
		}

		if review.Status == models.ReviewApproved {
			result, err := tx.Exec(ctx, `
				UPDATE users SET role = $1, updated_at = NOW()
				WHERE id = $2 AND ($3::text = '' OR role = $3::text)`,
				string(review.Role), userID, string(review.ApplicantRole))
			if err != nil {
				return fmt.Errorf("failed to grant role: %w", database.MapPostgresError(err))
			}
			if result.RowsAffected() == 0 {
				return models.ErrApplicantChanged
			}
		}

		if err := insertNotification(ctx, tx, models.ApplicationNotification(userID, review)); err != nil {
			return err
		}

		if activity != nil {
			return insertActivity(ctx, tx, activity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, id)
}

// reviewMiss explains a guarded update that matched no row: the record is
// either missing or no longer pending.
func reviewMiss(ctx context.Context, q database.Querier, existsQuery, id string, notFound error) error {
	var exists bool
	if err := q.QueryRow(ctx, existsQuery, id).Scan(&exists); err != nil {
		return database.MapPostgresError(err)
	}
	if !exists {
		return notFound
	}
	return models.ErrAlreadyReviewed
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
