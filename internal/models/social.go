package models

import "time"

type Notification struct {
	ID        string
	UserID    string
	Type      string
	Message   string
	Link      string
	IsRead    bool
	CreatedAt time.Time
}

// NotificationListLimit caps how many notifications are returned at once
const NotificationListLimit = 50

// MaxMessageLength is counted in characters
const MaxMessageLength = 2000

type Message struct {
	ID         string
	SenderID   string
	ReceiverID string
	Content    string
	IsRead     bool
	CreatedAt  time.Time
}

// Conversation summarizes a private message thread with another user
type Conversation struct {
	OtherUserID     string
	OtherUsername   string
	OtherAvatar     string
	OtherAvatarURL  string
	LastMessageTime time.Time
	UnreadCount     int
}
