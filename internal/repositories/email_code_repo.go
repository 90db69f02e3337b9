package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EmailCodeRepository stores hashed email confirmation codes
type EmailCodeRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewEmailCodeRepository(db *database.DB) *EmailCodeRepository {
	return &EmailCodeRepository{db: db, pool: db.Pool}
}

func scanEmailCodeRow(row rowScanner) (*models.EmailCode, error) {
	var code models.EmailCode

	err := row.Scan(
		&code.ID, &code.UserID, &code.Email, &code.CodeHash,
		&code.ExpiresAt, &code.UsedAt, &code.Attempts, &code.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &code, nil
}

// Replace drops every unused code of the user and stores a new one, so only
// the most recently sent code can be redeemed.
func (r *EmailCodeRepository) Replace(ctx context.Context, userID, email, codeHash string, expiresAt time.Time) (*models.EmailCode, error) {
	var code *models.EmailCode

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM email_codes WHERE user_id = $1 AND used_at IS NULL`, userID); err != nil {
			return fmt.Errorf("failed to drop outstanding codes: %w", database.MapPostgresError(err))
		}

		var err error
		code, err = scanEmailCodeRow(tx.QueryRow(ctx, `
			INSERT INTO email_codes (user_id, email, code_hash, expires_at)
			VALUES ($1, $2, $3, $4)
			RETURNING id, user_id, email, code_hash, expires_at, used_at, attempts, created_at`,
			userID, email, codeHash, expiresAt,
		))
		if err != nil {
			return fmt.Errorf("failed to create email code: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return code, nil
}

// GetActive returns the user's outstanding code, or ErrNotFound
func (r *EmailCodeRepository) GetActive(ctx context.Context, userID string) (*models.EmailCode, error) {
	query := `
		SELECT id, user_id, email, code_hash, expires_at, used_at, attempts, created_at
		FROM email_codes
		WHERE user_id = $1 AND used_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanEmailCodeRow(r.pool.QueryRow(ctx, query, userID))
}

// LastSentAt returns when the user's newest code was issued
func (r *EmailCodeRepository) LastSentAt(ctx context.Context, userID string) (*time.Time, error) {
	var sentAt *time.Time
	err := r.pool.QueryRow(ctx, `SELECT MAX(created_at) FROM email_codes WHERE user_id = $1`, userID).Scan(&sentAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read last code time: %w", database.MapPostgresError(err))
	}
	return sentAt, nil
}

// Redeem marks the code used and the account's email verified together.
// A code that was used concurrently is reported as ErrInvalidCode.
func (r *EmailCodeRepository) Redeem(ctx context.Context, codeID, userID string) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx,
			`UPDATE email_codes SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`, codeID)
		if err != nil {
			return fmt.Errorf("failed to mark code used: %w", database.MapPostgresError(err))
		}
		if result.RowsAffected() == 0 {
			return models.ErrInvalidCode
		}

		result, err = tx.Exec(ctx,
			`UPDATE users SET is_email_verified = TRUE, updated_at = NOW() WHERE id = $1`, userID)
		if err != nil {
			return fmt.Errorf("failed to verify email: %w", database.MapPostgresError(err))
		}
		if result.RowsAffected() == 0 {
			return models.ErrUserNotFound
		}
		return nil
	})
}

// RecordFailure counts a wrong guess and returns the new total. The guess
// that reaches max also expires the code.
func (r *EmailCodeRepository) RecordFailure(ctx context.Context, codeID string, max int) (int, error) {
	var attempts int
	err := r.pool.QueryRow(ctx, `
		UPDATE email_codes
		SET attempts = attempts + 1,
		    expires_at = CASE WHEN attempts + 1 >= $2 THEN NOW() ELSE expires_at END
		WHERE id = $1 AND used_at IS NULL
		RETURNING attempts`, codeID, max,
	).Scan(&attempts)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) {
			return 0, models.ErrInvalidCode
		}
		return 0, fmt.Errorf("failed to record code attempt: %w", mapped)
	}
	return attempts, nil
}

// DeleteExpired purges codes past their expiry (call periodically)
func (r *EmailCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM email_codes WHERE expires_at < $1`, time.Now())
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}
