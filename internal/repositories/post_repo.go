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

type PostRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewPostRepository(db *database.DB) *PostRepository {
	return &PostRepository{db: db, pool: db.Pool}
}

// postColumns expects posts aliased as p and users as u
const postColumns = `
	p.id, p.author_id, p.category, p.title, p.content, p.status, p.status_text,
	p.is_pinned, p.is_hot, p.views, p.created_at, p.updated_at,
	COALESCE(u.username, ''), COALESCE(u.avatar, ''), COALESCE(u.avatar_url, '')`

func scanPostRow(row rowScanner) (*models.Post, error) {
	var post models.Post
	var category, status string

	err := row.Scan(
		&post.ID, &post.AuthorID, &category, &post.Title, &post.Content, &status, &post.StatusText,
		&post.IsPinned, &post.IsHot, &post.Views, &post.CreatedAt, &post.UpdatedAt,
		&post.Author.Username, &post.Author.Avatar, &post.Author.AvatarURL,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	post.Category = models.Category(category)
	post.Status = models.PostStatus(status)
	return &post, nil
}

func scanPostRows(rows pgx.Rows) ([]*models.Post, error) {
	defer rows.Close()

	posts := make([]*models.Post, 0)
	for rows.Next() {
		post, err := scanPostRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating post rows: %w", err)
	}

	return posts, nil
}

func postResult(post *models.Post, err error) (*models.Post, error) {
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Create inserts the topic, bumps the author's post counter and records the
// activity entry in one transaction.
func (r *PostRepository) Create(ctx context.Context, post *models.Post, activity *models.ActivityLog) (*models.Post, error) {
	post.ID = uuid.New().String()
	now := time.Now()
	post.CreatedAt = now
	post.UpdatedAt = now

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO posts (id, author_id, category, title, content, status, status_text, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
			post.ID, post.AuthorID, string(post.Category), post.Title, post.Content,
			string(post.Status), post.StatusText, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert post: %w", database.MapPostgresError(err))
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET posts_count = posts_count + 1 WHERE id = $1`, post.AuthorID); err != nil {
			return fmt.Errorf("failed to bump post counter: %w", database.MapPostgresError(err))
		}

		if activity != nil {
			if activity.Metadata == nil {
				activity.Metadata = models.ActivityMetadata{}
			}
			activity.Metadata["post_id"] = post.ID
			return insertActivity(ctx, tx, activity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, post.ID)
}

func (r *PostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p LEFT JOIN users u ON u.id = p.author_id WHERE p.id = $1`
	return postResult(scanPostRow(r.pool.QueryRow(ctx, query, id)))
}

// GetAndIncrementViews counts one view and returns the updated topic
func (r *PostRepository) GetAndIncrementViews(ctx context.Context, id string) (*models.Post, error) {
	query := `
		WITH bumped AS (
			UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING *
		)
		SELECT ` + postColumns + ` FROM bumped p LEFT JOIN users u ON u.id = p.author_id`
	return postResult(scanPostRow(r.pool.QueryRow(ctx, query, id)))
}

// IncrementViews touches only the view counter and returns its new value
func (r *PostRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	var views int
	err := r.pool.QueryRow(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1 RETURNING views`, id).Scan(&views)
	if err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrNotFound) {
			return 0, models.ErrPostNotFound
		}
		return 0, fmt.Errorf("failed to increment views: %w", err)
	}
	return views, nil
}

func buildPostWhere(filter models.PostFilter) (string, []any) {
	conds := make([]string, 0, 4)
	args := make([]any, 0, 6)

	if filter.Category != "" {
		args = append(args, string(filter.Category))
		conds = append(conds, fmt.Sprintf("p.category = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("p.status = $%d", len(args)))
	}
	if filter.AuthorID != "" {
		args = append(args, filter.AuthorID)
		conds = append(conds, fmt.Sprintf("p.author_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, likePattern(filter.Search))
		conds = append(conds, fmt.Sprintf("(lower(p.title) LIKE $%d OR lower(p.content) LIKE $%d)", len(args), len(args)))
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns one page of topics, pinned first then newest, plus the total
// number of topics matching the filter.
func (r *PostRepository) List(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error) {
	where, args := buildPostWhere(filter)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts p`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", database.MapPostgresError(err))
	}

	args = append(args, filter.Limit, filter.Offset)
	query := `SELECT ` + postColumns + ` FROM posts p LEFT JOIN users u ON u.id = p.author_id` + where +
		fmt.Sprintf(" ORDER BY p.is_pinned DESC, p.created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query posts: %w", err)
	}

	posts, err := scanPostRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// Delete removes the topic with its comments and favorites in one transaction
func (r *PostRepository) Delete(ctx context.Context, id string, activity *models.ActivityLog) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM comments WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete comments: %w", database.MapPostgresError(err))
		}
		if _, err := tx.Exec(ctx, `DELETE FROM favorites WHERE post_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete favorites: %w", database.MapPostgresError(err))
		}

		result, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", database.MapPostgresError(err))
		}
		if result.RowsAffected() == 0 {
			return models.ErrPostNotFound
		}

		if activity != nil {
			return insertActivity(ctx, tx, activity)
		}
		return nil
	})
}

// StatusChange is a guarded status write: it applies only while the topic
// is still in From.
type StatusChange struct {
	PostID   string
	From     models.PostStatus
	To       models.PostStatus
	Comment  *models.Comment // optional system comment written in the same transaction
	Activity *models.ActivityLog
}

// UpdateStatus writes status and label together. If the topic exists but
// has left From, ErrInvalidTransition is returned and nothing is written.
func (r *PostRepository) UpdateStatus(ctx context.Context, change StatusChange) (*models.Post, error) {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `
			UPDATE posts SET status = $1, status_text = $2, updated_at = NOW()
			WHERE id = $3 AND status = $4`,
			string(change.To), change.To.Label(), change.PostID, string(change.From),
		)
		if err != nil {
			return fmt.Errorf("failed to update status: %w", database.MapPostgresError(err))
		}

		if result.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, change.PostID).Scan(&exists); err != nil {
				return database.MapPostgresError(err)
			}
			if !exists {
				return models.ErrPostNotFound
			}
			return models.ErrInvalidTransition
		}

		if change.Comment != nil {
			change.Comment.PostID = change.PostID
			if err := insertComment(ctx, tx, change.Comment); err != nil {
				return err
			}
		}

		if change.Activity != nil {
			return insertActivity(ctx, tx, change.Activity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, change.PostID)
}

// TogglePin flips the pinned flag and returns the new value
func (r *PostRepository) TogglePin(ctx context.Context, id string) (bool, error) {
	return r.toggle(ctx, `UPDATE posts SET is_pinned = NOT is_pinned, updated_at = NOW() WHERE id = $1 RETURNING is_pinned`, id)
}

// ToggleHot flips the hot flag and returns the new value
func (r *PostRepository) ToggleHot(ctx context.Context, id string) (bool, error) {
	return r.toggle(ctx, `UPDATE posts SET is_hot = NOT is_hot, updated_at = NOW() WHERE id = $1 RETURNING is_hot`, id)
}

func (r *PostRepository) toggle(ctx context.Context, query, id string) (bool, error) {
	var value bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&value); err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrNotFound) {
			return false, models.ErrPostNotFound
		}
		return false, fmt.Errorf("failed to toggle flag: %w", err)
	}
	return value, nil
}
