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

type CommentRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewCommentRepository(db *database.DB) *CommentRepository {
	return &CommentRepository{db: db, pool: db.Pool}
}

func scanCommentRow(row rowScanner) (*models.Comment, error) {
	var c models.Comment

	err := row.Scan(
		&c.ID, &c.PostID, &c.AuthorID, &c.AuthorUsername, &c.AuthorAvatar,
		&c.Text, &c.IsAdminAction, &c.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &c, nil
}

func insertComment(ctx context.Context, q database.Querier, c *models.Comment) error {
	c.ID = uuid.New().String()

	query := `
		INSERT INTO comments (id, post_id, author_id, author_username, author_avatar, text, is_admin_action)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`

	err := q.QueryRow(ctx, query,
		c.ID, c.PostID, c.AuthorID, c.AuthorUsername, c.AuthorAvatar, c.Text, c.IsAdminAction,
	).Scan(&c.CreatedAt)
	if err != nil {
		// The post vanished between the lookup and the insert
		if errors.Is(database.MapPostgresError(err), models.ErrBadRequest) {
			return models.ErrPostNotFound
		}
		return fmt.Errorf("failed to insert comment: %w", database.MapPostgresError(err))
	}
	return nil
}

// Create inserts the comment and bumps the author's comment counter in one
// transaction. The author display fields are snapshotted by the caller.
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		var postID string
		err := tx.QueryRow(ctx, `SELECT id FROM posts WHERE id = $1 FOR SHARE`, c.PostID).Scan(&postID)
		if err != nil {
			if errors.Is(database.MapPostgresError(err), models.ErrNotFound) {
				return models.ErrPostNotFound
			}
			return database.MapPostgresError(err)
		}

		if err := insertComment(ctx, tx, c); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET comments_count = comments_count + 1 WHERE id = $1`, c.AuthorID); err != nil {
			return fmt.Errorf("failed to bump comment counter: %w", database.MapPostgresError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return c, nil
}

// ListByPost returns the topic's comments oldest first
func (r *CommentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	query := `
		SELECT id, post_id, author_id, author_username, author_avatar, text, is_admin_action, created_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at ASC, id
	`

	rows, err := r.pool.Query(ctx, query, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		c, err := scanCommentRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment rows: %w", err)
	}

	return comments, nil
}
