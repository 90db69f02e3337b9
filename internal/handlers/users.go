package handlers

import (
	"net/http"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/go-chi/chi/v5"
)

// UserHandler serves profiles and the online list
type UserHandler struct {
	accounts AccountServiceInterface
}

func NewUserHandler(accounts AccountServiceInterface) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// UpdateProfileRequest carries self-editable profile fields; omitted fields stay unchanged
type UpdateProfileRequest struct {
	Email      *string `json:"email" validate:"omitempty,max=254"`
	RobloxNick *string `json:"roblox_nick" validate:"omitempty,max=50"`
	Rod        *string `json:"rod" validate:"omitempty,max=100"`
	Discord    *string `json:"discord" validate:"omitempty,max=100"`
	Avatar     *string `json:"avatar" validate:"omitempty,max=16"`
	AvatarURL  *string `json:"avatar_url" validate:"omitempty,max=500"`
}

// UserPostsResponse lists a user's topics
type UserPostsResponse struct {
	Posts []PostResponse `json:"posts"`
}

// OnlineUsersResponse lists users currently online
type OnlineUsersResponse struct {
	Users []UserResponse `json:"users"`
	Count int            `json:"count"`
}

// GetUser returns a public profile
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.GetProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// ListUserPosts returns the newest topics written by the user
// @Router /users/{id}/posts [get]
func (h *UserHandler) ListUserPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.accounts.ListUserPosts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, UserPostsResponse{Posts: toPostResponses(posts)})
}

// ListOnline returns users currently online
// @Router /users/online/list [get]
func (h *UserHandler) ListOnline(w http.ResponseWriter, r *http.Request) {
	users, err := h.accounts.ListOnline(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, OnlineUsersResponse{Users: toUserResponses(users), Count: len(users)})
}

// UpdateProfile applies a partial update to the caller's own profile
// @Router /users/{id} [put]
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.accounts.UpdateProfile(r.Context(), actorID, chi.URLParam(r, "id"), models.ProfilePatch{
		Email:      req.Email,
		RobloxNick: req.RobloxNick,
		Rod:        req.Rod,
		Discord:    req.Discord,
		Avatar:     req.Avatar,
		AvatarURL:  req.AvatarURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toAccountResponse(user))
}
