package models

import "time"

// Category groups forum topics
type Category string

const (
	CategoryComplaints  Category = "complaints"
	CategoryAppeals     Category = "appeals"
	CategoryQuestions   Category = "questions"
	CategorySuggestions Category = "suggestions"
)

// IsValid reports whether c is one of the forum sections
func (c Category) IsValid() bool {
	switch c {
	case CategoryComplaints, CategoryAppeals, CategoryQuestions, CategorySuggestions:
		return true
	}
	return false
}

// PostStatus is the moderation state of a topic
type PostStatus string

const (
	StatusPending  PostStatus = "pending"
	StatusOpen     PostStatus = "open"
	StatusApproved PostStatus = "approved"
	StatusRejected PostStatus = "rejected"
	StatusResolved PostStatus = "resolved"
)

// InitialPostStatus is assigned to every new topic
const InitialPostStatus = StatusPending

var statusLabels = map[PostStatus]string{
	StatusPending:  "На рассмотрении",
	StatusOpen:     "Открыто",
	StatusApproved: "Принято",
	StatusRejected: "Отклонено",
	StatusResolved: "Решено",
}

// Label returns the display text paired with the status
func (s PostStatus) Label() string {
	return statusLabels[s]
}

// IsValid reports whether s is a known status
func (s PostStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

type Post struct {
	ID         string
	AuthorID   string
	Category   Category
	Title      string
	Content    string
	Status     PostStatus
	StatusText string
	IsPinned   bool
	IsHot      bool
	Views      int
	CreatedAt  time.Time
	UpdatedAt  time.Time

	// Joined from users at read time
	Author AuthorInfo
}

// AuthorInfo is the display snapshot of a post or comment author
type AuthorInfo struct {
	Username  string
	Avatar    string
	AvatarURL string
}

// SetStatus writes the status together with its label
func (p *Post) SetStatus(status PostStatus) {
	p.Status = status
	p.StatusText = status.Label()
}

// PostFilter narrows topic listings
type PostFilter struct {
	Category Category
	Status   PostStatus
	Search   string
	AuthorID string
	Limit    int
	Offset   int
}
