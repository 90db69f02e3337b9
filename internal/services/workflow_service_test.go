package services_test

import (
	"context"
	"strings"
	"testing"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reviewers() services.UserStore {
	return services.UserStore{
		"admin":   services.NewTestUser("admin", "admin", models.RoleAdmin),
		"manager": services.NewTestUser("manager", "manager", models.RoleManagement),
		"mod":     services.NewTestUser("mod", "mod", models.RoleModerator),
		"player":  services.NewTestUser("player", "player", models.RoleUser),
	}
}

// applicationsOf serves one pending application per applicant id
func applicationsOf(byID map[string]string) func(ctx context.Context, id string) (*models.AdminApplication, error) {
	return func(ctx context.Context, id string) (*models.AdminApplication, error) {
		userID, ok := byID[id]
		if !ok {
			return nil, models.ErrApplicationNotFound
		}
		return &models.AdminApplication{ID: id, UserID: userID, Status: models.ReviewPending}, nil
	}
}

func validApplication() services.ApplicationInput {
	return services.ApplicationInput{
		Nick:       "player_rbx",
		Age:        16,
		Hours:      "4-5",
		Experience: "модератор на другом сервере",
		Reason:     "хочу помогать",
		Discord:    "player#0001",
	}
}

func TestApplicationService_Submit(t *testing.T) {
	t.Run("creates pending application", func(t *testing.T) {
		svc := services.NewApplicationService(&services.MockApplicationRepository{}, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		app, err := svc.Submit(context.Background(), "player", validApplication())

		require.NoError(t, err)
		assert.Equal(t, models.ReviewPending, app.Status)
		assert.Equal(t, "player", app.UserID)
	})

	t.Run("one pending application per user", func(t *testing.T) {
		repo := &services.MockApplicationRepository{
			HasPendingFunc: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		}
		svc := services.NewApplicationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Submit(context.Background(), "player", validApplication())
		assert.ErrorIs(t, err, models.ErrApplicationPending)
	})

	tests := []struct {
		name   string
		mutate func(in *services.ApplicationInput)
	}{
		{"too young", func(in *services.ApplicationInput) { in.Age = 13 }},
		{"missing reason", func(in *services.ApplicationInput) { in.Reason = " " }},
		{"missing discord", func(in *services.ApplicationInput) { in.Discord = "" }},
		{"nick too long", func(in *services.ApplicationInput) { in.Nick = strings.Repeat("n", 51) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := services.NewApplicationService(&services.MockApplicationRepository{}, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())
			in := validApplication()
			tt.mutate(&in)

			_, err := svc.Submit(context.Background(), "player", in)
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}
}

func TestApplicationService_Review(t *testing.T) {
	t.Run("approve defaults to helper", func(t *testing.T) {
		var got models.Review
		repo := &services.MockApplicationRepository{
			GetByIDFunc: applicationsOf(map[string]string{"a1": "player"}),
			ReviewFunc: func(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.AdminApplication, error) {
				got = review
				return &models.AdminApplication{ID: id, Status: review.Status, ApprovedRole: review.Role}, nil
			},
		}
		svc := services.NewApplicationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		app, err := svc.Approve(context.Background(), "admin", "a1", "")

		require.NoError(t, err)
		assert.Equal(t, models.RoleHelper, app.ApprovedRole)
		assert.Equal(t, "admin", got.ReviewerID)
		assert.Equal(t, models.RoleUser, got.ApplicantRole)
		assert.False(t, got.At.IsZero())
	})

	t.Run("applicant promoted since applying cannot be demoted", func(t *testing.T) {
		reviewed := false
		repo := &services.MockApplicationRepository{
			GetByIDFunc: applicationsOf(map[string]string{"stale": "manager"}),
			ReviewFunc: func(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.AdminApplication, error) {
				reviewed = true
				return &models.AdminApplication{ID: id}, nil
			},
		}
		svc := services.NewApplicationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Approve(context.Background(), "admin", "stale", models.RoleHelper)

		assert.ErrorIs(t, err, models.ErrForbidden)
		assert.False(t, reviewed, "application must stay pending")
	})

	t.Run("reviewer cannot approve own application", func(t *testing.T) {
		repo := &services.MockApplicationRepository{GetByIDFunc: applicationsOf(map[string]string{"own": "admin"})}
		svc := services.NewApplicationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Approve(context.Background(), "admin", "own", models.RoleHelper)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("unknown application", func(t *testing.T) {
		svc := services.NewApplicationService(&services.MockApplicationRepository{}, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Approve(context.Background(), "admin", "missing", models.RoleHelper)
		assert.ErrorIs(t, err, models.ErrApplicationNotFound)
	})

	t.Run("cannot grant above own rank", func(t *testing.T) {
		svc := services.NewApplicationService(&services.MockApplicationRepository{}, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Approve(context.Background(), "admin", "a1", models.RoleManager)
		assert.ErrorIs(t, err, models.ErrForbidden)

		_, err = svc.Approve(context.Background(), "admin", "a1", models.Role("owner"))
		assert.ErrorIs(t, err, models.ErrValidation)
	})

	t.Run("already reviewed passes through", func(t *testing.T) {
		repo := &services.MockApplicationRepository{
			ReviewFunc: func(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.AdminApplication, error) {
				return nil, models.ErrAlreadyReviewed
			},
		}
		svc := services.NewApplicationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Reject(context.Background(), "admin", "a1", "не подходит")
		assert.ErrorIs(t, err, models.ErrAlreadyReviewed)
	})

	t.Run("moderator cannot review", func(t *testing.T) {
		svc := services.NewApplicationService(&services.MockApplicationRepository{}, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Reject(context.Background(), "mod", "a1", "")
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("list filter", func(t *testing.T) {
		var gotStatus models.ReviewStatus
		var gotLimit int
		repo := &services.MockApplicationRepository{
			ListFunc: func(ctx context.Context, status models.ReviewStatus, limit int) ([]*models.AdminApplication, error) {
				gotStatus, gotLimit = status, limit
				return nil, nil
			},
		}
		svc := services.NewApplicationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.List(context.Background(), "admin", "all", 0)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewStatus(""), gotStatus)
		assert.Equal(t, 100, gotLimit)

		_, err = svc.List(context.Background(), "admin", "approved", 9999)
		require.NoError(t, err)
		assert.Equal(t, models.ReviewApproved, gotStatus)
		assert.Equal(t, 500, gotLimit)

		_, err = svc.List(context.Background(), "admin", "maybe", 0)
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestVerificationService_Submit(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr error
	}{
		{"numeric id", "123456789", nil},
		{"padded numeric id", " 42 ", nil},
		{"empty id", "", models.ErrValidation},
		{"letters", "12ab", models.ErrValidation},
		{"negative", "-5", models.ErrValidation},
		{"too long", strings.Repeat("9", 21), models.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := services.NewVerificationService(&services.MockVerificationRepository{}, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

			v, err := svc.Submit(context.Background(), "player", tt.id)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, strings.TrimSpace(tt.id), v.RobloxUserID)
			assert.Equal(t, "player_rbx", v.RobloxNick)
			assert.Equal(t, models.ReviewPending, v.Status)
		})
	}

	t.Run("pending request blocks another", func(t *testing.T) {
		repo := &services.MockVerificationRepository{
			HasPendingFunc: func(ctx context.Context, userID string) (bool, error) { return true, nil },
		}
		svc := services.NewVerificationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Submit(context.Background(), "player", "1")
		assert.ErrorIs(t, err, models.ErrVerificationPending)
	})

	t.Run("requires a roblox nick on the profile", func(t *testing.T) {
		users := reviewers()
		users["player"].RobloxNick = ""
		svc := services.NewVerificationService(&services.MockVerificationRepository{}, users, services.NewTestLogger(), services.NewTestAuditLogger())

		_, err := svc.Submit(context.Background(), "player", "1")
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}

func TestVerificationService_Review(t *testing.T) {
	var got models.Review
	repo := &services.MockVerificationRepository{
		ReviewFunc: func(ctx context.Context, id string, review models.Review, activity *models.ActivityLog) (*models.RobloxVerification, error) {
			if id == "done" {
				return nil, models.ErrAlreadyReviewed
			}
			got = review
			return &models.RobloxVerification{ID: id, Status: review.Status}, nil
		},
	}
	svc := services.NewVerificationService(repo, reviewers(), services.NewTestLogger(), services.NewTestAuditLogger())

	v, err := svc.Reject(context.Background(), "admin", "v1", " скриншот не совпадает ")
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRejected, v.Status)
	assert.Equal(t, "скриншот не совпадает", got.Reason)

	_, err = svc.Approve(context.Background(), "admin", "done")
	assert.ErrorIs(t, err, models.ErrAlreadyReviewed)

	_, err = svc.Approve(context.Background(), "player", "v1")
	assert.ErrorIs(t, err, models.ErrForbidden)
}
