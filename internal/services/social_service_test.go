package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_Send(t *testing.T) {
	users := func() services.UserStore {
		return services.UserStore{
			"a": services.NewTestUser("a", "alice", models.RoleUser),
			"b": services.NewTestUser("b", "bob", models.RoleUser),
		}
	}

	t.Run("delivers", func(t *testing.T) {
		repo := &services.MockMessageRepository{}
		svc := services.NewMessageService(repo, users(), services.NewTestLogger())

		msg, err := svc.Send(context.Background(), "a", "b", " привет ")

		require.NoError(t, err)
		assert.Equal(t, "привет", msg.Content)
		assert.Len(t, repo.Sent, 1)
	})

	tests := []struct {
		name     string
		receiver string
		content  string
		muted    bool
		wantErr  error
	}{
		{"empty content", "b", "  ", false, models.ErrValidation},
		{"too long", "b", strings.Repeat("x", models.MaxMessageLength+1), false, models.ErrTooLong},
		{"to self", "a", "привет", false, models.ErrValidation},
		{"muted sender", "b", "привет", true, models.ErrMuted},
		{"unknown receiver", "ghost", "привет", false, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := users()
			store["a"].IsMuted = tt.muted
			repo := &services.MockMessageRepository{}
			svc := services.NewMessageService(repo, store, services.NewTestLogger())

			_, err := svc.Send(context.Background(), "a", tt.receiver, tt.content)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.Sent)
		})
	}
}

func TestMessageService_Thread(t *testing.T) {
	store := services.UserStore{
		"a": services.NewTestUser("a", "alice", models.RoleUser),
		"b": services.NewTestUser("b", "bob", models.RoleUser),
	}
	repo := &services.MockMessageRepository{
		ThreadFunc: func(ctx context.Context, userID, otherID string) ([]*models.Message, error) {
			return []*models.Message{{ID: "m1", SenderID: otherID, ReceiverID: userID}}, nil
		},
	}
	svc := services.NewMessageService(repo, store, services.NewTestLogger())

	thread, err := svc.Thread(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Len(t, thread, 1)

	_, err = svc.Thread(context.Background(), "a", "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestEmailCodeService(t *testing.T) {
	newService := func(user *models.User) (*services.MockEmailCodeRepository, *services.MockEmailSender, *services.EmailCodeService) {
		codes := services.NewMockEmailCodeRepository()
		sender := services.NewMockEmailSender()
		store := services.UserStore{user.ID: user}
		svc := services.NewEmailCodeService(codes, store, sender, 15*time.Minute, time.Minute, services.NewTestLogger())
		return codes, sender, svc
	}

	t.Run("issue then verify", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		codes, sender, svc := newService(user)

		require.NoError(t, svc.Issue(context.Background(), user))
		code := sender.Sent[user.Email]
		require.Len(t, code, 6)
		assert.NotEqual(t, code, codes.Codes["u1"].CodeHash)

		require.NoError(t, svc.Verify(context.Background(), "u1", code))
		assert.Equal(t, []string{"u1"}, codes.Redeemed)

		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", code), models.ErrInvalidCode)
	})

	t.Run("wrong code", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		_, sender, svc := newService(user)
		require.NoError(t, svc.Issue(context.Background(), user))

		wrong := "000000"
		if sender.Sent[user.Email] == wrong {
			wrong = "111111"
		}
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", wrong), models.ErrInvalidCode)
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", "12"), models.ErrInvalidCode)
	})

	t.Run("wrong guesses burn the code", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		codes, sender, svc := newService(user)
		require.NoError(t, svc.Issue(context.Background(), user))

		code := sender.Sent[user.Email]
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		for i := 0; i < models.MaxEmailCodeAttempts-1; i++ {
			assert.ErrorIs(t, svc.Verify(context.Background(), "u1", wrong), models.ErrInvalidCode)
		}
		assert.Equal(t, models.MaxEmailCodeAttempts-1, codes.Codes["u1"].Attempts)

		// one more miss exhausts it, then even the right code fails
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", wrong), models.ErrInvalidCode)
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", code), models.ErrInvalidCode)
		assert.Empty(t, codes.Redeemed)

		// a fresh code starts over
		require.NoError(t, svc.Issue(context.Background(), user))
		require.NoError(t, svc.Verify(context.Background(), "u1", sender.Sent[user.Email]))
	})

	t.Run("right code after a few misses", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		codes, sender, svc := newService(user)
		require.NoError(t, svc.Issue(context.Background(), user))

		code := sender.Sent[user.Email]
		wrong := "000000"
		if code == wrong {
			wrong = "111111"
		}
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", wrong), models.ErrInvalidCode)
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", wrong), models.ErrInvalidCode)

		require.NoError(t, svc.Verify(context.Background(), "u1", code))
		assert.Equal(t, []string{"u1"}, codes.Redeemed)
	})

	t.Run("expired code", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		codes, sender, svc := newService(user)
		require.NoError(t, svc.Issue(context.Background(), user))
		codes.Codes["u1"].ExpiresAt = time.Now().Add(-time.Second)

		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", sender.Sent[user.Email]), models.ErrInvalidCode)
	})

	t.Run("no code issued", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		_, _, svc := newService(user)
		assert.ErrorIs(t, svc.Verify(context.Background(), "u1", "123456"), models.ErrInvalidCode)
	})

	t.Run("request respects cooldown", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		codes, _, svc := newService(user)

		require.NoError(t, svc.Request(context.Background(), "u1"))
		assert.ErrorIs(t, svc.Request(context.Background(), "u1"), models.ErrCodeCooldown)

		codes.LastSent["u1"] = time.Now().Add(-2 * time.Minute)
		assert.NoError(t, svc.Request(context.Background(), "u1"))
	})

	t.Run("request on verified email", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		user.IsEmailVerified = true
		_, _, svc := newService(user)

		assert.ErrorIs(t, svc.Request(context.Background(), "u1"), models.ErrValidation)
	})

	t.Run("delivery failure is internal", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		_, sender, svc := newService(user)
		sender.SendErr = errors.New("smtp down")

		assert.ErrorIs(t, svc.Issue(context.Background(), user), models.ErrInternalServer)
	})
}

type stubStats struct{}

func (stubStats) Forum(ctx context.Context) (*models.ForumStats, error) {
	return &models.ForumStats{TotalPosts: 3, TotalUsers: 2, TotalComments: 5, OnlineUsers: 1}, nil
}

func (stubStats) Admin(ctx context.Context) (*models.AdminStats, error) {
	return &models.AdminStats{ForumStats: models.ForumStats{TotalPosts: 3}, PendingPosts: 1, PendingApplications: 2}, nil
}

func TestStatsService(t *testing.T) {
	store := services.UserStore{
		"admin":  services.NewTestUser("admin", "admin", models.RoleAdmin),
		"helper": services.NewTestUser("helper", "helper", models.RoleHelper),
	}
	activity := &services.MockActivityRepository{Entries: []*models.ActivityLog{
		models.NewActivity("admin", models.ActivityBanUser, "Забанил player", nil),
	}}
	svc := services.NewStatsService(stubStats{}, activity, store, services.NewTestLogger())

	public, err := svc.PublicStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(5), public.TotalComments)

	dashboard, err := svc.AdminStats(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(2), dashboard.Stats.PendingApplications)
	assert.Len(t, dashboard.RecentActivity, 1)

	_, err = svc.AdminStats(context.Background(), "helper")
	assert.ErrorIs(t, err, models.ErrForbidden)
}
