package routes

import (
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/auth"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/handlers"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/middleware"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/go-chi/chi/v5"
)

// Handlers groups every HTTP handler mounted under /api
type Handlers struct {
	Auth     *handlers.AuthHandler
	Users    *handlers.UserHandler
	Posts    *handlers.PostHandler
	Admin    *handlers.AdminHandler
	Workflow *handlers.WorkflowHandler
	Social   *handlers.SocialHandler
	Stats    *handlers.StatsHandler
}

// Limits configures the per-minute request budgets
type Limits struct {
	Auth     middleware.RateLimitConfig
	Publish  middleware.RateLimitConfig
	IPConfig *pkghttp.IPConfig
}

// RegisterRoutes registers all application routes on router, which is expected to be mounted at /api
func RegisterRoutes(router chi.Router, h Handlers, authenticator *auth.Authenticator, limits Limits) {
	authLimit := middleware.RateLimitByIP(limits.Auth, limits.IPConfig)
	publishLimit := middleware.RateLimitByUser(limits.Publish, limits.IPConfig)

	// Public routes - no authentication required
	router.With(authLimit).Post("/auth/register", h.Auth.Register)
	router.With(authLimit).Post("/auth/login", h.Auth.Login)

	router.Get("/posts", h.Posts.ListPosts)
	router.Get("/posts/{id}", h.Posts.GetPost)
	router.Get("/posts/{id}/comments", h.Posts.ListComments)

	router.Get("/users/online/list", h.Users.ListOnline)
	router.Get("/users/{id}", h.Users.GetUser)
	router.Get("/users/{id}/posts", h.Users.ListUserPosts)
	router.Get("/stats", h.Stats.PublicStats)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)

		r.Get("/auth/me", h.Auth.Me)
		r.Post("/auth/logout", h.Auth.Logout)
		r.With(authLimit).Post("/auth/email-code", h.Auth.SendEmailCode)
		r.With(authLimit).Post("/auth/resend-email-code", h.Auth.SendEmailCode)
		r.With(authLimit).Post("/auth/verify-email", h.Auth.VerifyEmail)
		r.Post("/auth/verify-roblox-userid", h.Auth.VerifyRoblox)

		r.With(publishLimit).Post("/posts", h.Posts.CreatePost)
		r.With(publishLimit).Post("/posts/{id}/comments", h.Posts.AddComment)
		r.Delete("/posts/{id}", h.Posts.DeletePost)
		// Rank is checked by the moderation service
		r.Put("/posts/{id}/status", h.Posts.UpdateStatus)

		r.Put("/users/{id}", h.Users.UpdateProfile)

		r.Post("/applications", h.Workflow.SubmitApplication)

		r.Get("/favorites", h.Social.ListFavorites)
		r.Post("/favorites/{postId}", h.Social.AddFavorite)
		r.Delete("/favorites/{postId}", h.Social.RemoveFavorite)

		r.Get("/messages", h.Social.Conversations)
		r.Get("/messages/unread/count", h.Social.UnreadMessages)
		r.Get("/messages/{userId}", h.Social.Thread)
		r.With(publishLimit).Post("/messages", h.Social.SendMessage)

		r.Get("/notifications", h.Social.ListNotifications)
		r.Get("/notifications/unread/count", h.Social.UnreadNotifications)
		r.Put("/notifications/read-all", h.Social.MarkAllNotificationsRead)
		r.Put("/notifications/{id}/read", h.Social.MarkNotificationRead)

		// Admin panel; individual operations re-check rank against the target
		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireLevel(models.LevelAdminPanel))

			r.Get("/stats", h.Admin.Stats)
			r.Get("/roles", h.Admin.Roles)

			r.Get("/users/list", h.Admin.ListUsers)
			r.Get("/users/search/{username}", h.Admin.SearchUser)
			r.Put("/users/{id}/role", h.Admin.SetRole)
			r.Post("/users/{id}/ban", h.Admin.Ban)
			r.Post("/users/{id}/unban", h.Admin.Unban)
			r.Post("/users/{id}/mute", h.Admin.Mute)
			r.Post("/users/{id}/unmute", h.Admin.Unmute)
			r.Delete("/users/{id}", h.Admin.DeleteUser)

			r.Get("/posts", h.Admin.ListPosts)
			r.Post("/posts/{id}/pin", h.Admin.TogglePin)
			r.Post("/posts/{id}/hot", h.Admin.ToggleHot)

			r.Get("/applications", h.Workflow.ListApplications)
			r.Get("/applications/count", h.Workflow.CountApplications)
			r.Post("/applications/{id}/approve", h.Workflow.ApproveApplication)
			r.Post("/applications/{id}/reject", h.Workflow.RejectApplication)

			r.Get("/verifications", h.Workflow.ListVerifications)
			r.Get("/verifications/count", h.Workflow.CountVerifications)
			r.Post("/verifications/{id}/approve", h.Workflow.ApproveVerification)
			r.Post("/verifications/{id}/reject", h.Workflow.RejectVerification)
		})
	})
}
