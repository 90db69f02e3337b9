package services

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/repositories"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
)

// NewTestLogger returns a logger that discards output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestAuditLogger returns an audit logger that discards output
func NewTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(NewTestLogger())
}

// NewTestUser builds a user with sensible defaults
func NewTestUser(id, username string, role models.Role) *models.User {
	now := time.Now()
	return &models.User{
		ID:         id,
		Username:   username,
		Email:      username + "@example.com",
		RobloxNick: username + "_rbx",
		Rod:        "Police",
		Avatar:     models.DefaultAvatar,
		Role:       role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// NewTestPost builds a topic in the given status
func NewTestPost(id, authorID string, status models.PostStatus) *models.Post {
	now := time.Now()
	p := &models.Post{
		ID:        id,
		AuthorID:  authorID,
		Category:  models.CategoryComplaints,
		Title:     "Жалоба на игрока",
		Content:   "Описание",
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.SetStatus(status)
	return p
}

// UserStore is an in-memory user table shared by several mocks
type UserStore map[string]*models.User

func (s UserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, models.ErrUserNotFound
}

// MockUserRepository implements UserRepository and AdminUserRepository for testing
type MockUserRepository struct {
	Users UserStore

	CreateFunc           func(ctx context.Context, user *models.User) (*models.User, error)
	GetByUsernameFunc    func(ctx context.Context, username string) (*models.User, error)
	GetByEmailFunc       func(ctx context.Context, email string) (*models.User, error)
	IdentityTakenFunc    func(ctx context.Context, username, email, excludeID string) (bool, error)
	UpdateProfileFunc    func(ctx context.Context, user *models.User) (*models.User, error)
	TouchPresenceFunc    func(ctx context.Context, id string, login bool) error
	MarkOfflineFunc      func(ctx context.Context, id string) error
	ListOnlineFunc       func(ctx context.Context, limit int) ([]*models.User, error)
	SetRoleFunc          func(ctx context.Context, id string, role models.Role) (*models.User, error)
	SetBanFunc           func(ctx context.Context, id string, banned bool, reason string) (*models.User, error)
	SetMuteFunc          func(ctx context.Context, id string, muted bool, reason string, expiresAt *time.Time) (*models.User, error)
	DeleteCascadeFunc    func(ctx context.Context, id string, activity *models.ActivityLog) error
	ListFunc             func(ctx context.Context, filter models.UserFilter) ([]*models.User, error)
	SearchByUsernameFunc func(ctx context.Context, fragment string) (*models.User, error)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return m.Users.GetByID(ctx, id)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.ID = "new-user"
	if m.Users != nil {
		m.Users[user.ID] = user
	}
	return user, nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrUserNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrUserNotFound
}

func (m *MockUserRepository) IdentityTaken(ctx context.Context, username, email, excludeID string) (bool, error) {
	if m.IdentityTakenFunc != nil {
		return m.IdentityTakenFunc(ctx, username, email, excludeID)
	}
	return false, nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, user *models.User) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, user)
	}
	return user, nil
}

func (m *MockUserRepository) TouchPresence(ctx context.Context, id string, login bool) error {
	if m.TouchPresenceFunc != nil {
		return m.TouchPresenceFunc(ctx, id, login)
	}
	return nil
}

func (m *MockUserRepository) MarkOffline(ctx context.Context, id string) error {
	if m.MarkOfflineFunc != nil {
		return m.MarkOfflineFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) ListOnline(ctx context.Context, limit int) ([]*models.User, error) {
	if m.ListOnlineFunc != nil {
		return m.ListOnlineFunc(ctx, limit)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) SetRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if m.SetRoleFunc != nil {
		return m.SetRoleFunc(ctx, id, role)
	}
	u, err := m.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.Role = role
	m.Users[id] = u
	return u, nil
}

func (m *MockUserRepository) SetBan(ctx context.Context, id string, banned bool, reason string) (*models.User, error) {
	if m.SetBanFunc != nil {
		return m.SetBanFunc(ctx, id, banned, reason)
	}
	u, err := m.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsBanned, u.BanReason = banned, reason
	m.Users[id] = u
	return u, nil
}

func (m *MockUserRepository) SetMute(ctx context.Context, id string, muted bool, reason string, expiresAt *time.Time) (*models.User, error) {
	if m.SetMuteFunc != nil {
		return m.SetMuteFunc(ctx, id, muted, reason, expiresAt)
	}
	u, err := m.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	u.IsMuted, u.MuteReason, u.MuteExpiresAt = muted, reason, expiresAt
	m.Users[id] = u
	return u, nil
}

func (m *MockUserRepository) DeleteCascade(ctx context.Context, id string, activity *models.ActivityLog) error {
	if m.DeleteCascadeFunc != nil {
		return m.DeleteCascadeFunc(ctx, id, activity)
	}
	if _, ok := m.Users[id]; !ok {
		return models.ErrUserNotFound
	}
	delete(m.Users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) SearchByUsername(ctx context.Context, fragment string) (*models.User, error) {
	if m.SearchByUsernameFunc != nil {
		return m.SearchByUsernameFunc(ctx, fragment)
	}
	return nil, models.ErrUserNotFound
}

// MockPostRepository implements PostRepository and StatusWriter for testing
type MockPostRepository struct {
	Posts map[string]*models.Post

	CreateFunc       func(ctx context.Context, post *models.Post, activity *models.ActivityLog) (*models.Post, error)
	ListFunc         func(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error)
	DeleteFunc       func(ctx context.Context, id string, activity *models.ActivityLog) error
	UpdateStatusFunc func(ctx context.Context, change repositories.StatusChange) (*models.Post, error)
	TogglePinFunc    func(ctx context.Context, id string) (bool, error)
	ToggleHotFunc    func(ctx context.Context, id string) (bool, error)

	Comments []*models.Comment
}

func (m *MockPostRepository) Create(ctx context.Context, post *models.Post, activity *models.ActivityLog) (*models.Post, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, post, activity)
	}
	post.ID = "new-post"
	if m.Posts == nil {
		m.Posts = map[string]*models.Post{}
	}
	m.Posts[post.ID] = post
	return post, nil
}

func (m *MockPostRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	if p, ok := m.Posts[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, models.ErrPostNotFound
}

func (m *MockPostRepository) GetAndIncrementViews(ctx context.Context, id string) (*models.Post, error) {
	p, ok := m.Posts[id]
	if !ok {
		return nil, models.ErrPostNotFound
	}
	p.Views++
	copied := *p
	return &copied, nil
}

func (m *MockPostRepository) IncrementViews(ctx context.Context, id string) (int, error) {
	p, ok := m.Posts[id]
	if !ok {
		return 0, models.ErrPostNotFound
	}
	p.Views++
	return p.Views, nil
}

func (m *MockPostRepository) List(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return []*models.Post{}, 0, nil
}

func (m *MockPostRepository) Delete(ctx context.Context, id string, activity *models.ActivityLog) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id, activity)
	}
	if _, ok := m.Posts[id]; !ok {
		return models.ErrPostNotFound
	}
	delete(m.Posts, id)
	return nil
}

// UpdateStatus mirrors the guarded write of the real repository
func (m *MockPostRepository) UpdateStatus(ctx context.Context, change repositories.StatusChange) (*models.Post, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, change)
	}
	p, ok := m.Posts[change.PostID]
	if !ok {
		return nil, models.ErrPostNotFound
	}
	if p.Status != change.From {
		return nil, models.ErrInvalidTransition
	}
	p.SetStatus(change.To)
	if change.Comment != nil {
		change.Comment.PostID = p.ID
		m.Comments = append(m.Comments, change.Comment)
	}
	copied := *p
	return &copied, nil
}

func (m *MockPostRepository) TogglePin(ctx context.Context, id string) (bool, error) {
	if m.TogglePinFunc != nil {
		return m.TogglePinFunc(ctx, id)
	}
	p, ok := m.Posts[id]
	if !ok {
		return false, models.ErrPostNotFound
	}
	p.IsPinned = !p.IsPinned
	return p.IsPinned, nil
}

func (m *MockPostRepository) ToggleHot(ctx context.Context, id string) (bool, error) {
	if m.ToggleHotFunc != nil {
		return m.ToggleHotFunc(ctx, id)
	}
	p, ok := m.Posts[id]
	if !ok {
		return false, models.ErrPostNotFound
	}
	p.IsHot = !p.IsHot
	return p.IsHot, nil
}

// MockCommentRepository implements CommentRepository for testing
type MockCommentRepository struct {
	CreateFunc     func(ctx context.Context, c *models.Comment) (*models.Comment, error)
	ListByPostFunc func(ctx context.Context, postID string) ([]*models.Comment, error)
	Created        []*models.Comment
}

func (m *MockCommentRepository) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, c)
	}
	c.ID = "new-comment"
	m.Created = append(m.Created, c)
	return c, nil
}

func (m *MockCommentRepository) ListByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	if m.ListByPostFunc != nil {
		return m.ListByPostFunc(ctx, postID)
	}
	return []*models.Comment{}, nil
}

// MockActivityRepository implements ActivityRecorder and ActivityReader for testing
type MockActivityRepository struct {
	Entries        []*models.ActivityLog
	CreateFunc     func(ctx context.Context, entry *models.ActivityLog) error
	ListRecentFunc func(ctx context.Context, limit int) ([]*models.ActivityLog, error)
}

func (m *MockActivityRepository) Create(ctx context.Context, entry *models.ActivityLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, entry)
	}
	m.Entries = append(m.Entries, entry)
	return nil
}

func (m *MockActivityRepository) ListRecent(ctx context.Context, limit int) ([]*models.ActivityLog, error) {
	if m.ListRecentFunc != nil {
		return m.ListRecentFunc(ctx, limit)
	}
	return m.Entries, nil
}

// MockApplicationRepository implements ApplicationRepository for testing
type MockApplicationRepository struct {
	GetByIDFunc      func(ctx context.Context, id string) (*models.AdminApplication, error)
	HasPendingFunc   func(ctx context.Context, userID string) (bool, error)
	CreateFunc       func(ctx context.Context, app *models.AdminApplication) (*models.AdminApplication, error)
	ListFunc         func(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.AdminApplication, error)
	CountPendingFunc func(ctx context.Context) (int64, error)
	ReviewFunc       func(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.AdminApplication, error)
}

func (m *MockApplicationRepository) Create(ctx context.Context, app *models.AdminApplication) (*models.AdminApplication, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, app)
	}
	app.ID = "new-application"
	return app, nil
}

func (m *MockApplicationRepository) GetByID(ctx context.Context, id string) (*models.AdminApplication, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrApplicationNotFound
}

func (m *MockApplicationRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	if m.HasPendingFunc != nil {
		return m.HasPendingFunc(ctx, userID)
	}
	return false, nil
}

func (m *MockApplicationRepository) List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.AdminApplication, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, limit)
	}
	return []*models.AdminApplication{}, nil
}

func (m *MockApplicationRepository) CountPending(ctx context.Context) (int64, error) {
	if m.CountPendingFunc != nil {
		return m.CountPendingFunc(ctx)
	}
	return 0, nil
}

func (m *MockApplicationRepository) Review(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.AdminApplication, error) {
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, id, review, activity)
	}
	return nil, models.ErrApplicationNotFound
}

// MockVerificationRepository implements VerificationRepository for testing
type MockVerificationRepository struct {
	HasPendingFunc   func(ctx context.Context, userID string) (bool, error)
	CreateFunc       func(ctx context.Context, v *models.RobloxVerification) (*models.RobloxVerification, error)
	ListFunc         func(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.RobloxVerification, error)
	CountPendingFunc func(ctx context.Context) (int64, error)
	ReviewFunc       func(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.RobloxVerification, error)
}

func (m *MockVerificationRepository) Create(ctx context.Context, v *models.RobloxVerification) (*models.RobloxVerification, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, v)
	}
	v.ID = "new-verification"
	return v, nil
}

func (m *MockVerificationRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	if m.HasPendingFunc != nil {
		return m.HasPendingFunc(ctx, userID)
	}
	return false, nil
}

func (m *MockVerificationRepository) List(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.RobloxVerification, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, limit)
	}
	return []*models.RobloxVerification{}, nil
}

func (m *MockVerificationRepository) CountPending(ctx context.Context) (int64, error) {
	if m.CountPendingFunc != nil {
		return m.CountPendingFunc(ctx)
	}
	return 0, nil
}

func (m *MockVerificationRepository) Review(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.RobloxVerification, error) {
	if m.ReviewFunc != nil {
		return m.ReviewFunc(ctx, id, review, activity)
	}
	return nil, models.ErrVerificationNotFound
}

// MockMessageRepository implements MessageRepository for testing
type MockMessageRepository struct {
	Sent              []*models.Message
	ConversationsFunc func(ctx context.Context, userID string) ([]*models.Conversation, error)
	ThreadFunc        func(ctx context.Context, userID, otherID string) ([]*models.Message, error)
	CountUnreadFunc   func(ctx context.Context, userID string) (int64, error)
}

func (m *MockMessageRepository) Create(ctx context.Context, msg *models.Message) (*models.Message, error) {
	msg.ID = "new-message"
	m.Sent = append(m.Sent, msg)
	return msg, nil
}

func (m *MockMessageRepository) Conversations(ctx context.Context, userID string) ([]*models.Conversation, error) {
	if m.ConversationsFunc != nil {
		return m.ConversationsFunc(ctx, userID)
	}
	return []*models.Conversation{}, nil
}

func (m *MockMessageRepository) Thread(ctx context.Context, userID, otherID string) ([]*models.Message, error) {
	if m.ThreadFunc != nil {
		return m.ThreadFunc(ctx, userID, otherID)
	}
	return []*models.Message{}, nil
}

func (m *MockMessageRepository) CountUnread(ctx context.Context, userID string) (int64, error) {
	if m.CountUnreadFunc != nil {
		return m.CountUnreadFunc(ctx, userID)
	}
	return 0, nil
}

// MockEmailCodeRepository keeps a single code per user in memory
type MockEmailCodeRepository struct {
	Codes    map[string]*models.EmailCode
	LastSent map[string]time.Time
	Redeemed []string
}

func NewMockEmailCodeRepository() *MockEmailCodeRepository {
	return &MockEmailCodeRepository{Codes: map[string]*models.EmailCode{}, LastSent: map[string]time.Time{}}
}

func (m *MockEmailCodeRepository) Replace(ctx context.Context, userID, email, codeHash string, expiresAt time.Time) (*models.EmailCode, error) {
	code := &models.EmailCode{ID: "code-" + userID, UserID: userID, Email: email, CodeHash: codeHash, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	m.Codes[userID] = code
	m.LastSent[userID] = code.CreatedAt
	return code, nil
}

func (m *MockEmailCodeRepository) GetActive(ctx context.Context, userID string) (*models.EmailCode, error) {
	code, ok := m.Codes[userID]
	if !ok || code.UsedAt != nil {
		return nil, models.ErrNotFound
	}
	return code, nil
}

func (m *MockEmailCodeRepository) LastSentAt(ctx context.Context, userID string) (*time.Time, error) {
	t, ok := m.LastSent[userID]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MockEmailCodeRepository) RecordFailure(ctx context.Context, codeID string, max int) (int, error) {
	for _, code := range m.Codes {
		if code.ID == codeID && code.UsedAt == nil {
			code.Attempts++
			if code.Attempts >= max {
				code.ExpiresAt = time.Now()
			}
			return code.Attempts, nil
		}
	}
	return 0, models.ErrInvalidCode
}

func (m *MockEmailCodeRepository) Redeem(ctx context.Context, codeID, userID string) error {
	code, ok := m.Codes[userID]
	if !ok || code.ID != codeID || code.UsedAt != nil {
		return models.ErrInvalidCode
	}
	now := time.Now()
	code.UsedAt = &now
	m.Redeemed = append(m.Redeemed, userID)
	return nil
}

// MockEmailSender records delivered codes
type MockEmailSender struct {
	Sent    map[string]string
	SendErr error
}

func NewMockEmailSender() *MockEmailSender {
	return &MockEmailSender{Sent: map[string]string{}}
}

func (m *MockEmailSender) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.SendErr != nil {
		return m.SendErr
	}
	m.Sent[email] = code
	return nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	Revoked         map[string]string
	RevokeTokenFunc func(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, expiresAt, reason)
	}
	if m.Revoked == nil {
		m.Revoked = map[string]string{}
	}
	m.Revoked[jti] = reason
	return nil
}
