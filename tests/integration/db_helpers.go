//go:build integration

package integration

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/repositories"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/auth"
)

// TestDB manages PostgreSQL testcontainer and database operations
type TestDB struct {
	Container  testcontainers.Container
	ConnString string
	Pool       *pgxpool.Pool
	DB         *database.DB
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// SetupTestDatabase creates a PostgreSQL testcontainer, runs migrations, returns TestDB
func SetupTestDatabase(ctx context.Context) (*TestDB, error) {
	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("forum"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &TestDB{
		Container:  container,
		ConnString: connStr,
		Pool:       pool,
		DB:         database.NewFromPool(pool, quietLogger()),
	}, nil
}

// runMigrations applies the embedded goose migrations through the pgx stdlib adapter
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	defer sqlDB.Close()

	return database.MigrateDB(ctx, sqlDB, quietLogger())
}

// Teardown stops the container and closes the connection pool
func (db *TestDB) Teardown(ctx context.Context) error {
	if db.Pool != nil {
		db.Pool.Close()
	}
	if db.Container != nil {
		return db.Container.Terminate(ctx)
	}
	return nil
}

var forumTables = []string{
	"email_codes",
	"revoked_tokens",
	"activity_log",
	"favorites",
	"messages",
	"notifications",
	"roblox_verifications",
	"admin_applications",
	"comments",
	"posts",
	"users",
}

// CleanupTables truncates all tables for test isolation
func (db *TestDB) CleanupTables(ctx context.Context) error {
	query := "TRUNCATE TABLE " + strings.Join(forumTables, ", ") + " CASCADE"
	if _, err := db.Pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// Repositories bundles every repository over one database
type Repositories struct {
	Users         *repositories.UserRepository
	Posts         *repositories.PostRepository
	Comments      *repositories.CommentRepository
	Applications  *repositories.ApplicationRepository
	Verifications *repositories.VerificationRepository
	Notifications *repositories.NotificationRepository
	Messages      *repositories.MessageRepository
	Favorites     *repositories.FavoriteRepository
	Activity      *repositories.ActivityLogRepository
	Stats         *repositories.StatsRepository
	EmailCodes    *repositories.EmailCodeRepository
	Revocations   *repositories.TokenRevocationRepository
}

// InitializeRepositories creates all repository instances from database wrapper
func InitializeRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Users:         repositories.NewUserRepository(db),
		Posts:         repositories.NewPostRepository(db),
		Comments:      repositories.NewCommentRepository(db),
		Applications:  repositories.NewApplicationRepository(db),
		Verifications: repositories.NewVerificationRepository(db),
		Notifications: repositories.NewNotificationRepository(db),
		Messages:      repositories.NewMessageRepository(db),
		Favorites:     repositories.NewFavoriteRepository(db),
		Activity:      repositories.NewActivityLogRepository(db),
		Stats:         repositories.NewStatsRepository(db),
		EmailCodes:    repositories.NewEmailCodeRepository(db),
		Revocations:   repositories.NewTokenRevocationRepository(db),
	}
}

// SeedUser inserts an account with the given role and TestPassword
func SeedUser(ctx context.Context, users *repositories.UserRepository, username string, role models.Role) (*models.User, error) {
	hash, err := auth.HashPasswordWithParams(TestPassword, auth.Argon2idParams{
		Memory: 8 * 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := users.Create(ctx, &models.User{
		Username:     username,
		Email:        TestEmail(username),
		PasswordHash: hash,
		RobloxNick:   username + "_rbx",
		Rod:          "Police",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	if role != models.RoleUser {
		return users.SetRole(ctx, user.ID, role)
	}
	return user, nil
}

// SeedPost inserts a topic in the initial moderation status
func SeedPost(ctx context.Context, posts *repositories.PostRepository, authorID string) (*models.Post, error) {
	post := &models.Post{
		AuthorID: authorID,
		Category: models.CategoryComplaints,
		Title:    "Жалоба на игрока",
		Content:  "Нарушение правил",
	}
	post.SetStatus(models.InitialPostStatus)
	return posts.Create(ctx, post, nil)
}
