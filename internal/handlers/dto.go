package handlers

import (
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/format"
)

// UserResponse is the public view of an account
type UserResponse struct {
	ID               string       `json:"id"`
	Username         string       `json:"username"`
	RobloxNick       string       `json:"roblox_nick"`
	Rod              string       `json:"rod"`
	Discord          string       `json:"discord"`
	Avatar           string       `json:"avatar"`
	AvatarURL        string       `json:"avatar_url"`
	Role             models.Role  `json:"role"`
	RoleLevel        models.Level `json:"role_level"`
	IsRobloxVerified bool         `json:"is_roblox_verified"`
	IsBanned         bool         `json:"is_banned"`
	IsMuted          bool         `json:"is_muted"`
	PostsCount       int          `json:"posts_count"`
	CommentsCount    int          `json:"comments_count"`
	Reputation       int          `json:"reputation"`
	IsOnline         bool         `json:"is_online"`
	LastSeen         *time.Time   `json:"last_seen"`
	CreatedAt        time.Time    `json:"created_at"`
}

// AccountResponse extends UserResponse with fields only the owner and staff see
type AccountResponse struct {
	UserResponse
	Email           string     `json:"email"`
	RobloxUserID    string     `json:"roblox_user_id"`
	IsEmailVerified bool       `json:"is_email_verified"`
	BanReason       string     `json:"ban_reason,omitempty"`
	MuteReason      string     `json:"mute_reason,omitempty"`
	MuteExpiresAt   *time.Time `json:"mute_expires_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		RobloxNick:       u.RobloxNick,
		Rod:              u.Rod,
		Discord:          u.Discord,
		Avatar:           u.Avatar,
		AvatarURL:        u.AvatarURL,
		Role:             u.Role,
		RoleLevel:        u.Level(),
		IsRobloxVerified: u.IsRobloxVerified,
		IsBanned:         u.IsBanned,
		IsMuted:          u.IsMuted,
		PostsCount:       u.PostsCount,
		CommentsCount:    u.CommentsCount,
		Reputation:       u.Reputation,
		IsOnline:         u.IsOnline,
		LastSeen:         u.LastSeen,
		CreatedAt:        u.CreatedAt,
	}
}

func toAccountResponse(u *models.User) AccountResponse {
	return AccountResponse{
		UserResponse:    toUserResponse(u),
		Email:           u.Email,
		RobloxUserID:    u.RobloxUserID,
		IsEmailVerified: u.IsEmailVerified,
		BanReason:       u.BanReason,
		MuteReason:      u.MuteReason,
		MuteExpiresAt:   u.MuteExpiresAt,
		LastLoginAt:     u.LastLoginAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func toAccountResponses(users []*models.User) []AccountResponse {
	out := make([]AccountResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toAccountResponse(u))
	}
	return out
}

func toUserResponses(users []*models.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out
}

type AuthorResponse struct {
	Username  string `json:"username"`
	Avatar    string `json:"avatar"`
	AvatarURL string `json:"avatar_url"`
}

type PostResponse struct {
	ID          string            `json:"id"`
	Category    models.Category   `json:"category"`
	Title       string            `json:"title"`
	Content     string            `json:"content"`
	ContentHTML string            `json:"content_html"`
	AuthorID    string            `json:"author_id"`
	Author      AuthorResponse    `json:"author"`
	Status      models.PostStatus `json:"status"`
	StatusText  string            `json:"status_text"`
	IsPinned    bool              `json:"is_pinned"`
	IsHot       bool              `json:"is_hot"`
	IsFavorite  bool              `json:"is_favorite,omitempty"`
	Views       int               `json:"views"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func toPostResponse(p *models.Post) PostResponse {
	return PostResponse{
		ID:          p.ID,
		Category:    p.Category,
		Title:       p.Title,
		Content:     p.Content,
		ContentHTML: format.Rich(p.Content),
		AuthorID:    p.AuthorID,
		Author: AuthorResponse{
			Username:  p.Author.Username,
			Avatar:    p.Author.Avatar,
			AvatarURL: p.Author.AvatarURL,
		},
		Status:     p.Status,
		StatusText: p.StatusText,
		IsPinned:   p.IsPinned,
		IsHot:      p.IsHot,
		Views:      p.Views,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toPostResponses(posts []*models.Post) []PostResponse {
	out := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return out
}

// PostListResponse is one page of topics
type PostListResponse struct {
	Posts []PostResponse `json:"posts"`
	Total int            `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

func toPostListResponse(page *services.PostPage) PostListResponse {
	return PostListResponse{
		Posts: toPostResponses(page.Posts),
		Total: page.Total,
		Page:  page.Page,
		Limit: page.Limit,
	}
}

type CommentResponse struct {
	ID             string    `json:"id"`
	PostID         string    `json:"post_id"`
	Text           string    `json:"text"`
	TextHTML       string    `json:"text_html"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username"`
	AuthorAvatar   string    `json:"author_avatar"`
	IsAdminAction  bool      `json:"is_admin_action"`
	CreatedAt      time.Time `json:"created_at"`
}

func toCommentResponse(c *models.Comment) CommentResponse {
	textHTML := format.Plain(c.Text)
	if c.IsAdminAction {
		textHTML = format.Rich(c.Text)
	}
	return CommentResponse{
		ID:             c.ID,
		PostID:         c.PostID,
		Text:           c.Text,
		TextHTML:       textHTML,
		AuthorID:       c.AuthorID,
		AuthorUsername: c.AuthorUsername,
		AuthorAvatar:   c.AuthorAvatar,
		IsAdminAction:  c.IsAdminAction,
		CreatedAt:      c.CreatedAt,
	}
}

func toCommentResponses(comments []*models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, toCommentResponse(c))
	}
	return out
}

type ApplicationResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Username     string              `json:"username,omitempty"`
	Nick         string              `json:"nick"`
	Age          int                 `json:"age"`
	Hours        string              `json:"hours"`
	Experience   string              `json:"experience"`
	Reason       string              `json:"reason"`
	Discord      string              `json:"discord"`
	Status       models.ReviewStatus `json:"status"`
	ApprovedRole models.Role         `json:"approved_role,omitempty"`
	ReviewedBy   *string             `json:"reviewed_by"`
	ReviewedAt   *time.Time          `json:"reviewed_at"`
	RejectReason *string             `json:"reject_reason"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toApplicationResponse(a *models.AdminApplication) ApplicationResponse {
	return ApplicationResponse{
		ID:           a.ID,
		UserID:       a.UserID,
		Username:     a.Applicant.Username,
		Nick:         a.Nick,
		Age:          a.Age,
		Hours:        a.Hours,
		Experience:   a.Experience,
		Reason:       a.Reason,
		Discord:      a.Discord,
		Status:       a.Status,
		ApprovedRole: a.ApprovedRole,
		ReviewedBy:   a.ReviewedBy,
		ReviewedAt:   a.ReviewedAt,
		RejectReason: a.RejectReason,
		CreatedAt:    a.CreatedAt,
	}
}

type VerificationResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Username     string              `json:"username,omitempty"`
	RobloxNick   string              `json:"roblox_nick"`
	RobloxUserID string              `json:"roblox_user_id"`
	Status       models.ReviewStatus `json:"status"`
	ReviewedBy   *string             `json:"reviewed_by"`
	ReviewedAt   *time.Time          `json:"reviewed_at"`
	RejectReason *string             `json:"reject_reason"`
	CreatedAt    time.Time           `json:"created_at"`
}

func toVerificationResponse(v *models.RobloxVerification) VerificationResponse {
	return VerificationResponse{
		ID:           v.ID,
		UserID:       v.UserID,
		Username:     v.Applicant.Username,
		RobloxNick:   v.RobloxNick,
		RobloxUserID: v.RobloxUserID,
		Status:       v.Status,
		ReviewedBy:   v.ReviewedBy,
		ReviewedAt:   v.ReviewedAt,
		RejectReason: v.RejectReason,
		CreatedAt:    v.CreatedAt,
	}
}

type NotificationResponse struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type MessageResponse struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Content    string    `json:"content"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
}

func toMessageResponse(m *models.Message) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		IsRead:     m.IsRead,
		CreatedAt:  m.CreatedAt,
	}
}

type ConversationResponse struct {
	OtherUserID     string    `json:"other_user_id"`
	OtherUsername   string    `json:"other_username"`
	OtherAvatar     string    `json:"other_avatar"`
	OtherAvatarURL  string    `json:"other_avatar_url"`
	LastMessageTime time.Time `json:"last_message_time"`
	UnreadCount     int       `json:"unread_count"`
}

type ActivityResponse struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"user_id"`
	Username  string                  `json:"username"`
	Action    string                  `json:"action"`
	Details   string                  `json:"details"`
	Metadata  models.ActivityMetadata `json:"metadata"`
	CreatedAt time.Time               `json:"created_at"`
}

type StatsResponse struct {
	TotalPosts    int64 `json:"total_posts"`
	TotalUsers    int64 `json:"total_users"`
	TotalComments int64 `json:"total_comments"`
	OnlineUsers   int64 `json:"online_users"`
}

func toStatsResponse(s *models.ForumStats) StatsResponse {
	return StatsResponse{
		TotalPosts:    s.TotalPosts,
		TotalUsers:    s.TotalUsers,
		TotalComments: s.TotalComments,
		OnlineUsers:   s.OnlineUsers,
	}
}

type AdminStatsResponse struct {
	StatsResponse
	PendingPosts         int64              `json:"pending_posts"`
	PendingApplications  int64              `json:"pending_applications"`
	PendingVerifications int64              `json:"pending_verifications"`
	RecentActivity       []ActivityResponse `json:"recent_activity"`
}

type CountResponse struct {
	Count int64 `json:"count"`
}

type MessageOnlyResponse struct {
	Message string `json:"message"`
}
