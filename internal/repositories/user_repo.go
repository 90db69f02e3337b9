package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

const userColumns = `
	id, username, email, password_hash, roblox_nick, roblox_user_id, rod, discord,
	avatar, avatar_url, role, is_email_verified, is_roblox_verified,
	is_banned, ban_reason, is_muted, mute_reason, mute_expires_at,
	posts_count, comments_count, reputation, is_online, last_seen, last_login_at,
	created_at, updated_at`

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var role string

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.RobloxNick, &user.RobloxUserID, &user.Rod, &user.Discord,
		&user.Avatar, &user.AvatarURL, &role, &user.IsEmailVerified, &user.IsRobloxVerified,
		&user.IsBanned, &user.BanReason, &user.IsMuted, &user.MuteReason, &user.MuteExpiresAt,
		&user.PostsCount, &user.CommentsCount, &user.Reputation, &user.IsOnline, &user.LastSeen, &user.LastLoginAt,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	user.Role = models.Role(role)
	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

// userResult maps a missing row to ErrUserNotFound
func userResult(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// likePattern escapes LIKE wildcards in user input
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Avatar == "" {
		user.Avatar = models.DefaultAvatar
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, roblox_nick, rod, avatar, role,
		                   is_online, last_seen, last_login_at, created_at, updated_at)
		VALUES ($1, $2, lower($3), $4, $5, $6, $7, $8, TRUE, $9, $9, $9, $9)
		RETURNING ` + userColumns

	created, err := scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash,
		user.RobloxNick, user.Rod, user.Avatar, string(user.Role), now,
	))
	if errors.Is(err, models.ErrConflict) {
		return nil, models.ErrDuplicateAccount
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return created, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return userResult(scanUserRow(r.pool.QueryRow(ctx, query, id)))
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	return userResult(scanUserRow(r.pool.QueryRow(ctx, query, username)))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return userResult(scanUserRow(r.pool.QueryRow(ctx, query, email)))
}

// IdentityTaken reports whether another account already holds the username
// or the email, compared case-insensitively. Empty arguments are skipped.
func (r *UserRepository) IdentityTaken(ctx context.Context, username, email, excludeID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE ((lower(username) = lower($1) AND $1 <> '') OR (lower(email) = lower($2) AND $2 <> ''))
			  AND id::text <> $3
		)`

	var taken bool
	if err := r.pool.QueryRow(ctx, query, username, email, excludeID).Scan(&taken); err != nil {
		return false, fmt.Errorf("failed to check identity: %w", database.MapPostgresError(err))
	}
	return taken, nil
}

// UpdateProfile writes the self-editable fields and verification flags
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		UPDATE users
		SET email = lower($1), roblox_nick = $2, rod = $3, discord = $4, avatar = $5, avatar_url = $6,
		    is_email_verified = $7, is_roblox_verified = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING ` + userColumns

	updated, err := userResult(scanUserRow(r.pool.QueryRow(ctx, query,
		user.Email, user.RobloxNick, user.Rod, user.Discord, user.Avatar, user.AvatarURL,
		user.IsEmailVerified, user.IsRobloxVerified, user.ID,
	)))
	if errors.Is(err, models.ErrConflict) {
		return nil, models.ErrDuplicateAccount
	}
	return updated, err
}

func (r *UserRepository) SetRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	query := `UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2 RETURNING ` + userColumns
	return userResult(scanUserRow(r.pool.QueryRow(ctx, query, string(role), id)))
}

// SetBan bans with a reason, or lifts the ban when banned is false
func (r *UserRepository) SetBan(ctx context.Context, id string, banned bool, reason string) (*models.User, error) {
	query := `
		UPDATE users
		SET is_banned = $1, ban_reason = $2, is_online = is_online AND NOT $1, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + userColumns
	return userResult(scanUserRow(r.pool.QueryRow(ctx, query, banned, reason, id)))
}

// SetMute mutes until expiresAt (nil means indefinitely), or unmutes
func (r *UserRepository) SetMute(ctx context.Context, id string, muted bool, reason string, expiresAt *time.Time) (*models.User, error) {
	query := `
		UPDATE users
		SET is_muted = $1, mute_reason = $2, mute_expires_at = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING ` + userColumns
	return userResult(scanUserRow(r.pool.QueryRow(ctx, query, muted, reason, expiresAt, id)))
}

// TouchPresence marks the user online now; login also stamps last_login_at
func (r *UserRepository) TouchPresence(ctx context.Context, id string, login bool) error {
	query := `
		UPDATE users
		SET is_online = TRUE, last_seen = NOW(),
		    last_login_at = CASE WHEN $2 THEN NOW() ELSE last_login_at END
		WHERE id = $1`
	return r.execOne(ctx, query, id, login)
}

func (r *UserRepository) MarkOffline(ctx context.Context, id string) error {
	return r.execOne(ctx, `UPDATE users SET is_online = FALSE, last_seen = NOW() WHERE id = $1`, id)
}

// MarkIdleOffline flips users not seen since before to offline
func (r *UserRepository) MarkIdleOffline(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.pool.Exec(ctx,
		`UPDATE users SET is_online = FALSE WHERE is_online AND (last_seen IS NULL OR last_seen < $1)`, before)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return result.RowsAffected(), nil
}

func (r *UserRepository) CountOnline(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE is_online`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count online users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) ListOnline(ctx context.Context, limit int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE is_online ORDER BY last_seen DESC NULLS LAST LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query online users: %w", err)
	}
	return scanUserRows(rows)
}

// List filters by username/email substring and role, newest accounts first
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	conds := make([]string, 0, 2)
	args := make([]any, 0, 3)

	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		conds = append(conds, fmt.Sprintf("(lower(username) LIKE $%d OR lower(email) LIKE $%d)", len(args), len(args)))
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("role = $%d", len(args)))
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	args = append(args, filter.Limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	return scanUserRows(rows)
}

// SearchByUsername returns the first account whose username contains fragment
func (r *UserRepository) SearchByUsername(ctx context.Context, fragment string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + ` FROM users
		WHERE lower(username) LIKE $1
		ORDER BY (lower(username) = lower($2)) DESC, created_at
		LIMIT 1`
	return userResult(scanUserRow(r.pool.QueryRow(ctx, query, likePattern(fragment), fragment)))
}

// DeleteCascade removes the user and everything that references them in one
// transaction, then records the activity entry.
func (r *UserRepository) DeleteCascade(ctx context.Context, id string, activity *models.ActivityLog) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&locked)
		if err != nil {
			if errors.Is(database.MapPostgresError(err), models.ErrNotFound) {
				return models.ErrUserNotFound
			}
			return database.MapPostgresError(err)
		}

		statements := []string{
			`DELETE FROM comments WHERE author_id = $1 OR post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
			`DELETE FROM favorites WHERE user_id = $1 OR post_id IN (SELECT id FROM posts WHERE author_id = $1)`,
			`DELETE FROM posts WHERE author_id = $1`,
			`DELETE FROM messages WHERE sender_id = $1 OR receiver_id = $1`,
			`DELETE FROM notifications WHERE user_id = $1`,
			`DELETE FROM users WHERE id = $1`,
		}
		for _, stmt := range statements {
			if _, err := tx.Exec(ctx, stmt, id); err != nil {
				return fmt.Errorf("failed to delete user data: %w", database.MapPostgresError(err))
			}
		}

		if activity != nil {
			return insertActivity(ctx, tx, activity)
		}
		return nil
	})
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	result, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrUserNotFound
	}
	return nil
}
