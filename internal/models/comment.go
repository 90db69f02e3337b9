package models

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxCommentLength is counted in characters, not bytes
const MaxCommentLength = 1000

type Comment struct {
	ID             string
	PostID         string
	AuthorID       string
	AuthorUsername string
	AuthorAvatar   string
	Text           string
	IsAdminAction  bool
	CreatedAt      time.Time
}

// NormalizeCommentText trims text and enforces the length bounds
func NormalizeCommentText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return "", ErrTooLong
	}
	return text, nil
}
