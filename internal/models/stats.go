package models

// ForumStats are the public counters shown on the front page
type ForumStats struct {
	TotalPosts    int64
	TotalUsers    int64
	TotalComments int64
	OnlineUsers   int64
}

// AdminStats extends ForumStats with moderation queue sizes
type AdminStats struct {
	ForumStats
	PendingPosts         int64
	PendingApplications  int64
	PendingVerifications int64
}
