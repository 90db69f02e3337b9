package services

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
)

// MessageRepository stores private messages
type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) (*models.Message, error)
	Conversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	Thread(ctx context.Context, userID, otherID string) ([]*models.Message, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// MessageService handles private messages between users
type MessageService struct {
	messages MessageRepository
	users    ActorLookup
	logger   *slog.Logger
}

func NewMessageService(messages MessageRepository, users ActorLookup, logger *slog.Logger) *MessageService {
	return &MessageService{messages: messages, users: users, logger: logger}
}

// Send delivers a message. Muted users cannot send and nobody can message
// themselves.
func (s *MessageService) Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error) {
	content = strings.TrimSpace(content)
	receiverID = strings.TrimSpace(receiverID)
	if content == "" || receiverID == "" {
		return nil, models.NewValidationError("", "Заполните все поля")
	}
	if utf8.RuneCountInString(content) > models.MaxMessageLength {
		return nil, models.ErrTooLong
	}
	if senderID == receiverID {
		return nil, models.NewValidationError("receiver_id", "Нельзя отправить сообщение самому себе")
	}

	sender, err := loadActor(ctx, s.users, senderID, s.logger)
	if err != nil {
		return nil, err
	}
	if err := sender.CanPublish(); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, passThrough(s.logger, "failed to load receiver", err, slog.String("user_id", receiverID))
	}

	msg, err := s.messages.Create(ctx, &models.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
	})
	if err != nil {
		return nil, passThrough(s.logger, "failed to send message", err, slog.String("sender_id", senderID))
	}
	return msg, nil
}

// Conversations lists the user's threads, most recent first
func (s *MessageService) Conversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	list, err := s.messages.Conversations(ctx, userID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to list conversations", err, slog.String("user_id", userID))
	}
	return list, nil
}

// Thread returns the messages with otherID oldest first and marks the
// incoming ones read.
func (s *MessageService) Thread(ctx context.Context, userID, otherID string) ([]*models.Message, error) {
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, passThrough(s.logger, "failed to load conversation partner", err, slog.String("user_id", otherID))
	}

	list, err := s.messages.Thread(ctx, userID, otherID)
	if err != nil {
		return nil, passThrough(s.logger, "failed to load thread", err, slog.String("user_id", userID))
	}
	return list, nil
}

func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	count, err := s.messages.CountUnread(ctx, userID)
	if err != nil {
		return 0, passThrough(s.logger, "failed to count unread messages", err, slog.String("user_id", userID))
	}
	return count, nil
}
