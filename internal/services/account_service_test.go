package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkgauth "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-at-least-32-chars"

type stubIssuer struct {
	issued []string
	err    error
}

func (s *stubIssuer) Issue(ctx context.Context, user *models.User) error {
	s.issued = append(s.issued, user.Email)
	return s.err
}

func newAccountService(users *services.MockUserRepository, revoke *services.MockTokenRevocationRepository, codes services.CodeIssuer) *services.AccountService {
	tm := auth.NewTokenManager(testSecret, time.Hour)
	timing := auth.NewTimingDelay(auth.TimingConfig{})
	return services.NewAccountService(users, &services.MockPostRepository{}, revoke, tm, timing, codes,
		services.NewTestLogger(), services.NewTestAuditLogger())
}

func cheapHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := pkgauth.HashPasswordWithParams(password, pkgauth.Argon2idParams{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	require.NoError(t, err)
	return hash
}

func validRegistration() services.RegisterInput {
	return services.RegisterInput{
		Username:   "Игрок_1",
		Email:      "Player@Example.com ",
		Password:   "secret123",
		RobloxNick: "player_rbx",
		Rod:        "Police",
	}
}

func TestAccountService_Register(t *testing.T) {
	t.Run("creates user with role user and signs in", func(t *testing.T) {
		users := &services.MockUserRepository{Users: services.UserStore{}}
		codes := &stubIssuer{}
		svc := newAccountService(users, nil, codes)

		result, err := svc.Register(context.Background(), validRegistration(), services.RequestMeta{IPAddress: "127.0.0.1"})

		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.Equal(t, models.RoleUser, result.User.Role)
		assert.Equal(t, "player@example.com", result.User.Email)
		assert.Equal(t, models.DefaultAvatar, result.User.Avatar)
		assert.NotEqual(t, "secret123", result.User.PasswordHash)
		assert.Equal(t, []string{"player@example.com"}, codes.issued)
	})

	t.Run("code delivery failure does not fail registration", func(t *testing.T) {
		users := &services.MockUserRepository{Users: services.UserStore{}}
		svc := newAccountService(users, nil, &stubIssuer{err: errors.New("smtp down")})

		_, err := svc.Register(context.Background(), validRegistration(), services.RequestMeta{})
		assert.NoError(t, err)
	})

	t.Run("duplicate identity", func(t *testing.T) {
		created := false
		users := &services.MockUserRepository{
			IdentityTakenFunc: func(ctx context.Context, username, email, excludeID string) (bool, error) {
				return true, nil
			},
			CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
				created = true
				return user, nil
			},
		}
		svc := newAccountService(users, nil, nil)

		_, err := svc.Register(context.Background(), validRegistration(), services.RequestMeta{})
		assert.ErrorIs(t, err, models.ErrDuplicateAccount)
		assert.False(t, created)
	})

	tests := []struct {
		name   string
		mutate func(in *services.RegisterInput)
	}{
		{"missing field", func(in *services.RegisterInput) { in.Rod = " " }},
		{"short username", func(in *services.RegisterInput) { in.Username = "ab" }},
		{"username with symbols", func(in *services.RegisterInput) { in.Username = "bad-name!" }},
		{"invalid email", func(in *services.RegisterInput) { in.Email = "not-an-email" }},
		{"short password", func(in *services.RegisterInput) { in.Password = "12345" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newAccountService(&services.MockUserRepository{}, nil, nil)
			in := validRegistration()
			tt.mutate(&in)

			_, err := svc.Register(context.Background(), in, services.RequestMeta{})
			assert.ErrorIs(t, err, models.ErrValidation)
		})
	}

	t.Run("repository failure is internal", func(t *testing.T) {
		users := &services.MockUserRepository{
			IdentityTakenFunc: func(ctx context.Context, username, email, excludeID string) (bool, error) {
				return false, errors.New("connection reset")
			},
		}
		svc := newAccountService(users, nil, nil)

		_, err := svc.Register(context.Background(), validRegistration(), services.RequestMeta{})
		assert.ErrorIs(t, err, models.ErrInternalServer)
	})
}

func TestAccountService_Authenticate(t *testing.T) {
	hash := cheapHash(t, "secret123")

	lookup := func(u *models.User) *services.MockUserRepository {
		return &services.MockUserRepository{
			GetByUsernameFunc: func(ctx context.Context, username string) (*models.User, error) {
				if username == u.Username {
					copied := *u
					return &copied, nil
				}
				return nil, models.ErrUserNotFound
			},
		}
	}

	t.Run("success records login", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		user.PasswordHash = hash
		users := lookup(user)
		var touched bool
		users.TouchPresenceFunc = func(ctx context.Context, id string, login bool) error {
			touched = login && id == "u1"
			return nil
		}
		svc := newAccountService(users, nil, nil)

		result, err := svc.Authenticate(context.Background(), "player", "secret123", services.RequestMeta{})

		require.NoError(t, err)
		assert.NotEmpty(t, result.Token)
		assert.True(t, result.User.IsOnline)
		assert.NotNil(t, result.User.LastLoginAt)
		assert.True(t, touched)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc := newAccountService(lookup(services.NewTestUser("u1", "player", models.RoleUser)), nil, nil)

		_, err := svc.Authenticate(context.Background(), "ghost", "secret123", services.RequestMeta{})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	})

	t.Run("wrong password on banned account does not reveal the ban", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		user.PasswordHash = hash
		user.IsBanned = true
		user.BanReason = "читы"
		svc := newAccountService(lookup(user), nil, nil)

		_, err := svc.Authenticate(context.Background(), "player", "wrong-password", services.RequestMeta{})
		assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		assert.NotErrorIs(t, err, models.ErrAccountBanned)
	})

	t.Run("banned after correct password", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		user.PasswordHash = hash
		user.IsBanned = true
		user.BanReason = "читы"
		svc := newAccountService(lookup(user), nil, nil)

		_, err := svc.Authenticate(context.Background(), "player", "secret123", services.RequestMeta{})

		var banned *models.AccountBannedError
		require.ErrorAs(t, err, &banned)
		assert.Equal(t, "читы", banned.Reason)
	})
}

func TestAccountService_Logout(t *testing.T) {
	revoke := &services.MockTokenRevocationRepository{}
	var offline string
	users := &services.MockUserRepository{
		MarkOfflineFunc: func(ctx context.Context, id string) error {
			offline = id
			return nil
		},
	}
	svc := newAccountService(users, revoke, nil)

	tm := auth.NewTokenManager(testSecret, time.Hour)
	token, err := tm.GenerateSessionToken("u1")
	require.NoError(t, err)
	claims, err := tm.ValidateToken(token.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), claims))
	assert.Equal(t, "logout", revoke.Revoked[token.JTI])
	assert.Equal(t, "u1", offline)

	assert.ErrorIs(t, svc.Logout(context.Background(), nil), models.ErrUnauthorized)
}

func TestAccountService_UpdateProfile(t *testing.T) {
	ptr := func(s string) *string { return &s }

	t.Run("only the owner may edit", func(t *testing.T) {
		users := &services.MockUserRepository{Users: services.UserStore{
			"u1": services.NewTestUser("u1", "player", models.RoleUser),
		}}
		svc := newAccountService(users, nil, nil)

		_, err := svc.UpdateProfile(context.Background(), "u2", "u1", models.ProfilePatch{Rod: ptr("FBI")})
		assert.ErrorIs(t, err, models.ErrForbidden)
	})

	t.Run("changing nick clears roblox verification", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		user.IsRobloxVerified = true
		users := &services.MockUserRepository{Users: services.UserStore{"u1": user}}
		svc := newAccountService(users, nil, nil)

		updated, err := svc.UpdateProfile(context.Background(), "u1", "u1", models.ProfilePatch{RobloxNick: ptr(" new_nick ")})

		require.NoError(t, err)
		assert.Equal(t, "new_nick", updated.RobloxNick)
		assert.False(t, updated.IsRobloxVerified)
	})

	t.Run("changing email clears verification and sends a code", func(t *testing.T) {
		user := services.NewTestUser("u1", "player", models.RoleUser)
		user.IsEmailVerified = true
		users := &services.MockUserRepository{Users: services.UserStore{"u1": user}}
		codes := &stubIssuer{}
		svc := newAccountService(users, nil, codes)

		updated, err := svc.UpdateProfile(context.Background(), "u1", "u1", models.ProfilePatch{Email: ptr("New@Example.com")})

		require.NoError(t, err)
		assert.Equal(t, "new@example.com", updated.Email)
		assert.False(t, updated.IsEmailVerified)
		assert.Equal(t, []string{"new@example.com"}, codes.issued)
	})

	t.Run("email taken by another account", func(t *testing.T) {
		users := &services.MockUserRepository{
			Users: services.UserStore{"u1": services.NewTestUser("u1", "player", models.RoleUser)},
			IdentityTakenFunc: func(ctx context.Context, username, email, excludeID string) (bool, error) {
				return excludeID == "u1", nil
			},
		}
		svc := newAccountService(users, nil, nil)

		_, err := svc.UpdateProfile(context.Background(), "u1", "u1", models.ProfilePatch{Email: ptr("other@example.com")})
		assert.ErrorIs(t, err, models.ErrDuplicateAccount)
	})

	t.Run("empty nick rejected", func(t *testing.T) {
		users := &services.MockUserRepository{Users: services.UserStore{"u1": services.NewTestUser("u1", "player", models.RoleUser)}}
		svc := newAccountService(users, nil, nil)

		_, err := svc.UpdateProfile(context.Background(), "u1", "u1", models.ProfilePatch{RobloxNick: ptr("  ")})
		assert.ErrorIs(t, err, models.ErrValidation)
	})
}
