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

// VerificationRepository stores Roblox account verification requests
type VerificationRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewVerificationRepository(db *database.DB) *VerificationRepository {
	return &VerificationRepository{db: db, pool: db.Pool}
}

const verificationColumns = `
	v.id, v.user_id, v.roblox_nick, v.roblox_user_id, v.status,
	v.reviewed_by, v.reviewed_at, v.reject_reason, v.created_at,
	COALESCE(u.username, ''), COALESCE(u.avatar, ''), COALESCE(u.avatar_url, '')`

func scanVerificationRow(row rowScanner) (*models.RobloxVerification, error) {
	var v models.RobloxVerification
	var status string

	err := row.Scan(
		&v.ID, &v.UserID, &v.RobloxNick, &v.RobloxUserID, &status,
		&v.ReviewedBy, &v.ReviewedAt, &v.RejectReason, &v.CreatedAt,
		&v.Applicant.Username, &v.Applicant.Avatar, &v.Applicant.AvatarURL,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	v.Status = models.ReviewStatus(status)
	return &v, nil
}

// Create files the request and stores the claimed Roblox user id on the
// account in one transaction. The partial unique index makes a second
// pending request fail even under concurrent submits.
func (r *VerificationRepository) Create(ctx context.Context, v *models.RobloxVerification) (*models.RobloxVerification, error) {
	v.ID = uuid.New().String()

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO roblox_verifications (id, user_id, roblox_nick, roblox_user_id, status)
			VALUES ($1, $2, $3, $4, 'pending')`,
			v.ID, v.UserID, v.RobloxNick, v.RobloxUserID,
		)
		if err != nil {
			if errors.Is(database.MapPostgresError(err), models.ErrConflict) {
				return models.ErrVerificationPending
			}
			return fmt.Errorf("failed to create verification: %w", database.MapPostgresError(err))
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET roblox_user_id = $1, updated_at = NOW() WHERE id = $2`, v.RobloxUserID, v.UserID); err != nil {
			return fmt.Errorf("failed to store roblox user id: %w", database.MapPostgresError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, v.ID)
}

func (r *VerificationRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM roblox_verifications WHERE user_id = $1 AND status = 'pending')`, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check pending verification: %w", database.MapPostgresError(err))
	}
	return exists, nil
}

func (r *VerificationRepository) GetByID(ctx context.Context, id string) (*models.RobloxVerification, error) {
	query := `SELECT ` + verificationColumns + `
		FROM roblox_verifications v LEFT JOIN users u ON u.id = v.user_id
		WHERE v.id = $1`

	v, err := scanVerificationRow(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrVerificationNotFound
	}
	return v, err
}

// List returns requests newest first; an empty status lists all of them
func (r *VerificationRepository) List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.RobloxVerification, error) {
	query := `SELECT ` + verificationColumns + `
		FROM roblox_verifications v LEFT JOIN users u ON u.id = v.user_id
		WHERE ($1::text = '' OR v.status = $1::text)
		ORDER BY v.created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query verifications: %w", err)
	}
	defer rows.Close()

	out := make([]*models.RobloxVerification, 0)
	for rows.Next() {
		v, err := scanVerificationRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan verification: %w", err)
		}
		out = append(out, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating verification rows: %w", err)
	}

	return out, nil
}

func (r *VerificationRepository) CountPending(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM roblox_verifications WHERE status = 'pending'`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count verifications: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// Review resolves a pending request exactly once. Approval marks the account
// verified only while it still carries the reviewed nickname; either outcome
// notifies the requester in the same transaction.
func (r *VerificationRepository) Review(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.RobloxVerification, error) {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var userID, nick, robloxUserID string
		err := tx.QueryRow(ctx, `
			UPDATE roblox_verifications
			SET status = $1, reviewed_by = $2, reviewed_at = $3, reject_reason = $4
			WHERE id = $5 AND status = 'pending'
			RETURNING user_id, roblox_nick, roblox_user_id`,
			string(review.Status), review.ReviewerID, review.At, nullableString(review.Reason), id,
		).Scan(&userID, &nick, &robloxUserID)
		if err != nil {
			mapped := database.MapPostgresError(err)
			if !errors.Is(mapped, models.ErrNotFound) {
				return fmt.Errorf("failed to review verification: %w", mapped)
			}
			return reviewMiss(ctx, tx, `SELECT EXISTS(SELECT 1 FROM roblox_verifications WHERE id = $1)`, id, models.ErrVerificationNotFound)
		}

		if review.Status == models.ReviewApproved {
			result, err := tx.Exec(ctx, `
				UPDATE users SET is_roblox_verified = TRUE, roblox_user_id = $1, updated_at = NOW()
				WHERE id = $2 AND roblox_nick = $3`, robloxUserID, userID, nick)
			if err != nil {
				return fmt.Errorf("failed to mark account verified: %w", database.MapPostgresError(err))
			}
			if result.RowsAffected() == 0 {
				return models.ErrNickChanged
			}
		}

		if err := insertNotification(ctx, tx, models.VerificationNotification(userID, nick, review)); err != nil {
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
