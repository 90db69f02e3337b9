package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postFixture() (*services.MockPostRepository, *services.MockCommentRepository, services.UserStore, *services.PostService) {
	users := services.UserStore{
		"author": services.NewTestUser("author", "author", models.RoleUser),
		"other":  services.NewTestUser("other", "other", models.RoleUser),
		"helper": services.NewTestUser("helper", "helper", models.RoleHelper),
		"mod":    services.NewTestUser("mod", "mod", models.RoleModerator),
		"admin":  services.NewTestUser("admin", "admin", models.RoleAdmin),
	}
	posts := &services.MockPostRepository{Posts: map[string]*models.Post{
		"p1": services.NewTestPost("p1", "author", models.StatusPending),
	}}
	comments := &services.MockCommentRepository{}
	svc := services.NewPostService(posts, comments, users, services.NewTestLogger(), services.NewTestAuditLogger())
	return posts, comments, users, svc
}

func TestPostService_CreatePost(t *testing.T) {
	valid := services.CreatePostInput{Category: models.CategoryComplaints, Title: " Жалоба ", Content: "Текст"}

	t.Run("new topic starts pending", func(t *testing.T) {
		_, _, _, svc := postFixture()

		post, err := svc.CreatePost(context.Background(), "author", valid)

		require.NoError(t, err)
		assert.Equal(t, "Жалоба", post.Title)
		assert.Equal(t, models.StatusPending, post.Status)
		assert.Equal(t, "На рассмотрении", post.StatusText)
		assert.False(t, post.IsPinned)
		assert.Zero(t, post.Views)
	})

	t.Run("records creation activity", func(t *testing.T) {
		posts, _, _, svc := postFixture()
		var activity *models.ActivityLog
		posts.CreateFunc = func(ctx context.Context, post *models.Post, a *models.ActivityLog) (*models.Post, error) {
			activity = a
			post.ID = "p2"
			return post, nil
		}

		_, err := svc.CreatePost(context.Background(), "author", valid)
		require.NoError(t, err)
		require.NotNil(t, activity)
		assert.Equal(t, models.ActivityPostCreate, activity.Action)
		assert.Equal(t, "author", activity.UserID)
	})

	t.Run("muted author is rejected before storage", func(t *testing.T) {
		posts, _, users, svc := postFixture()
		expires := time.Now().Add(time.Hour)
		users["author"].IsMuted = true
		users["author"].MuteReason = "флуд"
		users["author"].MuteExpiresAt = &expires
		called := false
		posts.CreateFunc = func(ctx context.Context, post *models.Post, a *models.ActivityLog) (*models.Post, error) {
			called = true
			return post, nil
		}

		_, err := svc.CreatePost(context.Background(), "author", valid)

		var muted *models.MutedError
		require.ErrorAs(t, err, &muted)
		assert.Equal(t, "флуд", muted.Reason)
		assert.False(t, called)
	})

	t.Run("expired mute still blocks", func(t *testing.T) {
		_, _, users, svc := postFixture()
		past := time.Now().Add(-time.Hour)
		users["author"].IsMuted = true
		users["author"].MuteExpiresAt = &past

		_, err := svc.CreatePost(context.Background(), "author", valid)
		assert.ErrorIs(t, err, models.ErrMuted)
	})

	tests := []struct {
		name string
		in   services.CreatePostInput
	}{
		{"unknown category", services.CreatePostInput{Category: "news", Title: "t", Content: "c"}},
		{"empty title", services.CreatePostInput{Category: models.CategoryQuestions, Title: " ", Content: "c"}},
		{"empty content", services.CreatePostInput{Category: models.CategoryQuestions, Title: "t", Content: ""}},
		{"title too long", services.CreatePostInput{Category: models.CategoryQuestions, Title: strings.Repeat("я", services.MaxTitleLength+1), Content: "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, _, svc := postFixture()
			_, err := svc.CreatePost(context.Background(), "author", tt.in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestPostService_AddComment(t *testing.T) {
	t.Run("snapshots author display fields", func(t *testing.T) {
		_, comments, users, svc := postFixture()
		users["author"].Avatar = "🐱"

		comment, err := svc.AddComment(context.Background(), "p1", "author", "  привет  ")

		require.NoError(t, err)
		assert.Equal(t, "привет", comment.Text)
		assert.Equal(t, "author", comment.AuthorUsername)
		assert.Equal(t, "🐱", comment.AuthorAvatar)
		assert.False(t, comment.IsAdminAction)
		assert.Len(t, comments.Created, 1)
	})

	t.Run("empty text", func(t *testing.T) {
		_, comments, _, svc := postFixture()
		_, err := svc.AddComment(context.Background(), "p1", "author", "   ")
		assert.ErrorIs(t, err, models.ErrEmptyText)
		assert.Empty(t, comments.Created)
	})

	t.Run("text too long", func(t *testing.T) {
		_, _, _, svc := postFixture()
		_, err := svc.AddComment(context.Background(), "p1", "author", strings.Repeat("a", models.MaxCommentLength+1))
		assert.ErrorIs(t, err, models.ErrTooLong)
	})

	t.Run("muted author", func(t *testing.T) {
		_, comments, users, svc := postFixture()
		users["author"].IsMuted = true

		_, err := svc.AddComment(context.Background(), "p1", "author", "привет")
		assert.ErrorIs(t, err, models.ErrMuted)
		assert.Empty(t, comments.Created)
	})

	t.Run("missing post surfaces from storage", func(t *testing.T) {
		_, comments, _, svc := postFixture()
		comments.CreateFunc = func(ctx context.Context, c *models.Comment) (*models.Comment, error) {
			return nil, models.ErrPostNotFound
		}

		_, err := svc.AddComment(context.Background(), "nope", "author", "привет")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestPostService_DeletePost(t *testing.T) {
	tests := []struct {
		name      string
		requester string
		wantErr   error
	}{
		{"author deletes own topic", "author", nil},
		{"moderator deletes any topic", "mod", nil},
		{"admin deletes any topic", "admin", nil},
		{"other user forbidden", "other", models.ErrForbidden},
		{"helper forbidden", "helper", models.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, _, _, svc := postFixture()

			err := svc.DeletePost(context.Background(), "p1", tt.requester)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Contains(t, posts.Posts, "p1")
				return
			}
			require.NoError(t, err)
			assert.NotContains(t, posts.Posts, "p1")
		})
	}

	t.Run("missing topic", func(t *testing.T) {
		_, _, _, svc := postFixture()
		assert.ErrorIs(t, svc.DeletePost(context.Background(), "nope", "admin"), models.ErrNotFound)
	})
}

func TestPostService_Views(t *testing.T) {
	posts, _, _, svc := postFixture()

	post, err := svc.GetPost(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, post.Views)

	views, err := svc.IncrementViews(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, views)
	assert.Equal(t, 2, posts.Posts["p1"].Views)

	_, err = svc.GetPost(context.Background(), "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostService_ListPosts(t *testing.T) {
	posts, _, _, svc := postFixture()
	var got models.PostFilter
	posts.ListFunc = func(ctx context.Context, filter models.PostFilter) ([]*models.Post, int, error) {
		got = filter
		return []*models.Post{}, 42, nil
	}

	page, err := svc.ListPosts(context.Background(), services.PostQuery{Category: models.CategoryAppeals, Page: 3, Limit: 10, Search: " бан "})
	require.NoError(t, err)
	assert.Equal(t, 42, page.Total)
	assert.Equal(t, 20, got.Offset)
	assert.Equal(t, 10, got.Limit)
	assert.Equal(t, "бан", got.Search)

	page, err = svc.ListPosts(context.Background(), services.PostQuery{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, services.MaxPageSize, page.Limit)
	assert.Equal(t, 1, page.Page)

	_, err = svc.ListPosts(context.Background(), services.PostQuery{Status: "closed"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestPostService_Toggles(t *testing.T) {
	posts, _, _, svc := postFixture()

	pinned, err := svc.TogglePin(context.Background(), "admin", "p1")
	require.NoError(t, err)
	assert.True(t, pinned)

	pinned, err = svc.TogglePin(context.Background(), "admin", "p1")
	require.NoError(t, err)
	assert.False(t, pinned)

	hot, err := svc.ToggleHot(context.Background(), "admin", "p1")
	require.NoError(t, err)
	assert.True(t, hot)
	assert.True(t, posts.Posts["p1"].IsHot)

	_, err = svc.TogglePin(context.Background(), "mod", "p1")
	assert.ErrorIs(t, err, models.ErrForbidden)
}
