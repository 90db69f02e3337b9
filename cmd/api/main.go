package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/background"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/config"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/database"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/handlers"
	middlewareCustom "github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/middleware"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/repositories"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/routes"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkgauth "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/auth"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	pkglogger "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if cfg.Database.RunMigrations {
		migrateCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err := database.Migrate(migrateCtx, &cfg.Database, logger)
		cancel()
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxy list", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	postRepo := repositories.NewPostRepository(db)
	commentRepo := repositories.NewCommentRepository(db)
	applicationRepo := repositories.NewApplicationRepository(db)
	verificationRepo := repositories.NewVerificationRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	messageRepo := repositories.NewMessageRepository(db)
	favoriteRepo := repositories.NewFavoriteRepository(db)
	activityRepo := repositories.NewActivityLogRepository(db)
	statsRepo := repositories.NewStatsRepository(db)
	emailCodeRepo := repositories.NewEmailCodeRepository(db)
	revokeRepo := repositories.NewTokenRevocationRepository(db)

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTokenExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{BaseDelay: cfg.Auth.TimingDelay, Jitter: cfg.Auth.TimingDelay / 2})
	auditLogger := pkglogger.NewAuditLogger(logger)

	senderCtx, senderCancel := context.WithTimeout(context.Background(), 10*time.Second)
	emailSender, err := services.NewEmailSender(senderCtx, cfg.Email, logger)
	senderCancel()
	if err != nil {
		logger.Error("failed to initialize email sender", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize services
	emailCodeService := services.NewEmailCodeService(emailCodeRepo, userRepo, emailSender, cfg.Email.CodeExpiry, cfg.Email.ResendCooldown, logger)
	accountService := services.NewAccountService(userRepo, postRepo, revokeRepo, tokenManager, timingDelay, emailCodeService, logger, auditLogger)
	userAdminService := services.NewUserAdminService(userRepo, activityRepo, logger, auditLogger)
	postService := services.NewPostService(postRepo, commentRepo, userRepo, logger, auditLogger)
	moderationService := services.NewModerationService(postRepo, userRepo, logger, auditLogger)
	applicationService := services.NewApplicationService(applicationRepo, userRepo, logger, auditLogger)
	verificationService := services.NewVerificationService(verificationRepo, userRepo, logger, auditLogger)
	notificationService := services.NewNotificationService(notificationRepo, logger)
	messageService := services.NewMessageService(messageRepo, userRepo, logger)
	favoriteService := services.NewFavoriteService(favoriteRepo, logger)
	statsService := services.NewStatsService(statsRepo, activityRepo, userRepo, logger)

	// Initialize handlers
	h := routes.Handlers{
		Auth:     handlers.NewAuthHandler(accountService, emailCodeService, verificationService, ipConfig),
		Users:    handlers.NewUserHandler(accountService),
		Posts:    handlers.NewPostHandler(postService, moderationService),
		Admin:    handlers.NewAdminHandler(userAdminService, postService, statsService),
		Workflow: handlers.NewWorkflowHandler(applicationService, verificationService),
		Social:   handlers.NewSocialHandler(notificationService, messageService, favoriteService),
		Stats:    handlers.NewStatsHandler(statsService),
	}
	authenticator := auth.NewAuthenticator(tokenManager, revokeRepo, userRepo, logger)

	// Bootstrap the first management account if configured
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := ensureAdminUser(ctx, userRepo, cfg.Forum, logger); err != nil {
		logger.Error("failed to ensure admin user", slog.Any("error", err))
	}
	cancel()

	cleanupManager := background.NewCleanupManager(revokeRepo, emailCodeRepo, userRepo, userRepo, logger, cfg.Auth.CleanupInterval, cfg.Forum.OnlineWindow)

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(middlewareCustom.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	if cfg.Metrics.Enabled {
		router.Use(middlewareCustom.Metrics)
	}
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	router.Route("/api", func(r chi.Router) {
		routes.RegisterRoutes(r, h, authenticator, routes.Limits{
			Auth:     middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Auth.LoginRatePerMinute},
			Publish:  middlewareCustom.RateLimitConfig{RequestsPerMinute: cfg.Auth.PostRatePerMinute},
			IPConfig: ipConfig,
		})
	})

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			pkghttp.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "database": "down"})
			return
		}
		pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy", "database": "up"})
	})

	if cfg.Metrics.Enabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start cleanup task
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()

	go cleanupManager.Start(cleanupCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ensureAdminUser creates the management account named in ADMIN_USERNAME if it does not exist
func ensureAdminUser(ctx context.Context, userRepo *repositories.UserRepository, cfg config.ForumConfig, logger *slog.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logger.Info("admin bootstrap not configured, skipping")
		return nil
	}

	_, err := userRepo.GetByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		logger.Info("admin user already exists")
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	hashedPassword, err := pkgauth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		Username:         cfg.AdminUsername,
		Email:            cfg.AdminEmail,
		PasswordHash:     hashedPassword,
		RobloxNick:       cfg.AdminUsername,
		Rod:              "Администрация",
		Avatar:           models.DefaultAvatar,
		Role:             models.RoleManagement,
		IsEmailVerified:  true,
		IsRobloxVerified: true,
	}

	if _, err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.Info("admin user created", slog.String("username", cfg.AdminUsername))
	return nil
}
