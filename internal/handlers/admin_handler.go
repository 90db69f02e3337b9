package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserAdminServiceInterface defines the staff account operations
type UserAdminServiceInterface interface {
	SetRole(ctx context.Context, actorID, targetID string, role models.Role) (*models.User, error)
	Ban(ctx context.Context, actorID, targetID, reason string) (*models.User, error)
	Unban(ctx context.Context, actorID, targetID string) (*models.User, error)
	Mute(ctx context.Context, actorID, targetID, reason string, durationMinutes *int) (*models.User, error)
	Unmute(ctx context.Context, actorID, targetID string) (*models.User, error)
	Delete(ctx context.Context, actorID, targetID string) error
	ListUsers(ctx context.Context, actorID, search string, role models.Role, limit int) ([]*models.User, error)
	SearchUser(ctx context.Context, actorID, username string) (*models.User, error)
}

// PostAdminServiceInterface defines the staff topic operations
type PostAdminServiceInterface interface {
	TogglePin(ctx context.Context, actorID, postID string) (bool, error)
	ToggleHot(ctx context.Context, actorID, postID string) (bool, error)
	AdminListPosts(ctx context.Context, actorID string, status models.PostStatus, category models.Category, limit int) ([]*models.Post, error)
}

// StatsServiceInterface provides forum counters
type StatsServiceInterface interface {
	PublicStats(ctx context.Context) (*models.ForumStats, error)
	AdminStats(ctx context.Context, actorID string) (*services.AdminDashboard, error)
}

// AdminHandler serves the staff panel
type AdminHandler struct {
	users UserAdminServiceInterface
	posts PostAdminServiceInterface
	stats StatsServiceInterface
}

func NewAdminHandler(users UserAdminServiceInterface, posts PostAdminServiceInterface, stats StatsServiceInterface) *AdminHandler {
	return &AdminHandler{users: users, posts: posts, stats: stats}
}

type SetRoleRequest struct {
	Role string `json:"role" validate:"required,known_role"`
}

type BanRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

type MuteRequest struct {
	Reason   string `json:"reason" validate:"max=500"`
	Duration *int   `json:"duration" validate:"omitempty,gte=0,lte=525600"`
}

type UsersResponse struct {
	Users []AccountResponse `json:"users"`
}

type ToggleResponse struct {
	Value bool `json:"value"`
}

type RolesResponse struct {
	Roles []models.RoleInfo `json:"roles"`
}

// Stats returns queue sizes and recent staff activity
// @Router /admin/stats [get]
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	dashboard, err := h.stats.AdminStats(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	activity := make([]ActivityResponse, 0, len(dashboard.RecentActivity))
	for _, a := range dashboard.RecentActivity {
		activity = append(activity, ActivityResponse{
			ID:        a.ID,
			UserID:    a.UserID,
			Username:  a.Username,
			Action:    a.Action,
			Details:   a.Details,
			Metadata:  a.Metadata,
			CreatedAt: a.CreatedAt,
		})
	}

	pkghttp.WriteJSON(w, http.StatusOK, AdminStatsResponse{
		StatsResponse:        toStatsResponse(&dashboard.Stats.ForumStats),
		PendingPosts:         dashboard.Stats.PendingPosts,
		PendingApplications:  dashboard.Stats.PendingApplications,
		PendingVerifications: dashboard.Stats.PendingVerifications,
		RecentActivity:       activity,
	})
}

// ListUsers filters accounts by search text and role
// @Param search query string false "Username or email substring"
// @Param role query string false "Role"
// @Param limit query int false "Limit"
// @Router /admin/users/list [get]
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	users, err := h.users.ListUsers(r.Context(), actorID, q.Get("search"), models.Role(q.Get("role")), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, UsersResponse{Users: toAccountResponses(users)})
}

// SearchUser returns the first account whose username contains the fragment
// @Router /admin/users/search/{username} [get]
func (h *AdminHandler) SearchUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.SearchUser(r.Context(), actorID, chi.URLParam(r, "username"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toAccountResponse(user))
}

// SetRole changes a user's role
// @Router /admin/users/{id}/role [put]
func (h *AdminHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req SetRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.SetRole(r.Context(), actorID, chi.URLParam(r, "id"), models.Role(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toAccountResponse(user))
}

// Ban blocks an account
// @Router /admin/users/{id}/ban [post]
func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req BanRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Ban(r.Context(), actorID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toAccountResponse(user))
}

// @Router /admin/users/{id}/unban [post]
func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.users.Unban)
}

// Mute blocks publishing, for duration minutes when given
// @Router /admin/users/{id}/mute [post]
func (h *AdminHandler) Mute(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req MuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.users.Mute(r.Context(), actorID, chi.URLParam(r, "id"), req.Reason, req.Duration)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toAccountResponse(user))
}

// @Router /admin/users/{id}/unmute [post]
func (h *AdminHandler) Unmute(w http.ResponseWriter, r *http.Request) {
	h.userAction(w, r, h.users.Unmute)
}

func (h *AdminHandler) userAction(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, targetID string) (*models.User, error)) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	user, err := fn(r.Context(), actorID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toAccountResponse(user))
}

// DeleteUser removes an account and everything it wrote
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), actorID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageOnlyResponse{Message: "Пользователь удалён"})
}

// ListPosts is the moderation queue view
// @Param status query string false "Status"
// @Param category query string false "Category"
// @Router /admin/posts [get]
func (h *AdminHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	status := q.Get("status")
	if strings.EqualFold(status, "all") {
		status = ""
	}

	posts, err := h.posts.AdminListPosts(r.Context(), actorID, models.PostStatus(status), models.Category(q.Get("category")), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, UserPostsResponse{Posts: toPostResponses(posts)})
}

// @Router /admin/posts/{id}/pin [post]
func (h *AdminHandler) TogglePin(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.posts.TogglePin)
}

// @Router /admin/posts/{id}/hot [post]
func (h *AdminHandler) ToggleHot(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.posts.ToggleHot)
}

func (h *AdminHandler) toggle(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID, postID string) (bool, error)) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	value, err := fn(r.Context(), actorID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, ToggleResponse{Value: value})
}

// Roles lists the role hierarchy
// @Router /admin/roles [get]
func (h *AdminHandler) Roles(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, RolesResponse{Roles: models.Roles()})
}
