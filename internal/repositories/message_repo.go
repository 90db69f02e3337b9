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

// MessageRepository stores private messages between users
type MessageRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db, pool: db.Pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *models.Message) (*models.Message, error) {
	m.ID = uuid.New().String()

	err := r.pool.QueryRow(ctx, `
		INSERT INTO messages (id, sender_id, receiver_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING is_read, created_at`,
		m.ID, m.SenderID, m.ReceiverID, m.Content,
	).Scan(&m.IsRead, &m.CreatedAt)
	if err != nil {
		if errors.Is(database.MapPostgresError(err), models.ErrBadRequest) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to create message: %w", database.MapPostgresError(err))
	}

	return m, nil
}

// Conversations lists everyone userID has exchanged messages with, most
// recent thread first, with the number of unread messages from them.
func (r *MessageRepository) Conversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query := `
		WITH threads AS (
			SELECT CASE WHEN sender_id = $1 THEN receiver_id ELSE sender_id END AS other_id,
			       created_at,
			       (receiver_id = $1 AND NOT is_read) AS unread
			FROM messages
			WHERE sender_id = $1 OR receiver_id = $1
		)
		SELECT t.other_id, u.username, u.avatar, u.avatar_url,
		       MAX(t.created_at) AS last_message_time,
		       COUNT(*) FILTER (WHERE t.unread) AS unread_count
		FROM threads t
		JOIN users u ON u.id = t.other_id
		GROUP BY t.other_id, u.username, u.avatar, u.avatar_url
		ORDER BY last_message_time DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Conversation, 0)
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.OtherUserID, &c.OtherUsername, &c.OtherAvatar, &c.OtherAvatarURL, &c.LastMessageTime, &c.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", database.MapPostgresError(err))
		}
		out = append(out, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return out, nil
}

// Thread returns the messages between two users oldest first and marks the
// ones addressed to userID as read, in one transaction.
func (r *MessageRepository) Thread(ctx context.Context, userID, otherID string) ([]*models.Message, error) {
	out := make([]*models.Message, 0)

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, sender_id, receiver_id, content, is_read, created_at
			FROM messages
			WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
			ORDER BY created_at ASC, id`,
			userID, otherID,
		)
		if err != nil {
			return fmt.Errorf("failed to query messages: %w", database.MapPostgresError(err))
		}

		for rows.Next() {
			var m models.Message
			if err := rows.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Content, &m.IsRead, &m.CreatedAt); err != nil {
				rows.Close()
				return fmt.Errorf("failed to scan message: %w", database.MapPostgresError(err))
			}
			out = append(out, &m)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating message rows: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE messages SET is_read = TRUE WHERE sender_id = $1 AND receiver_id = $2 AND NOT is_read`,
			otherID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to mark messages read: %w", database.MapPostgresError(err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *MessageRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM messages WHERE receiver_id = $1 AND NOT is_read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", database.MapPostgresError(err))
	}
	return count, nil
}
