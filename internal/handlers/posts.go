package handlers

import (
	"context"
	"net/http"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/go-chi/chi/v5"
)

// PostServiceInterface defines the topic operations used by HTTP handlers
type PostServiceInterface interface {
	CreatePost(ctx context.Context, authorID string, in services.CreatePostInput) (*models.Post, error)
	GetPost(ctx context.Context, id string) (*models.Post, error)
	ListPosts(ctx context.Context, q services.PostQuery) (*services.PostPage, error)
	DeletePost(ctx context.Context, postID, requesterID string) error
	AddComment(ctx context.Context, postID, authorID, text string) (*models.Comment, error)
	ListComments(ctx context.Context, postID string) ([]*models.Comment, error)
}

// ModerationServiceInterface applies moderation actions to topics
type ModerationServiceInterface interface {
	Apply(ctx context.Context, actorID, postID string, action models.ModerationAction, reason string) (*models.Post, error)
}

// PostHandler serves topics and comments
type PostHandler struct {
	posts      PostServiceInterface
	moderation ModerationServiceInterface
}

func NewPostHandler(posts PostServiceInterface, moderation ModerationServiceInterface) *PostHandler {
	return &PostHandler{posts: posts, moderation: moderation}
}

type CreatePostRequest struct {
	Category string `json:"category" validate:"required"`
	Title    string `json:"title" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type CreateCommentRequest struct {
	Text string `json:"text"`
}

type UpdateStatusRequest struct {
	Action string `json:"action" validate:"required,oneof=approve reject resolve reopen"`
	Reason string `json:"reason" validate:"max=1000"`
}

type CommentsResponse struct {
	Comments []CommentResponse `json:"comments"`
}

// ListPosts returns one page of topics
// @Param category query string false "Category"
// @Param status query string false "Status"
// @Param search query string false "Title or content substring"
// @Param page query int false "Page, from 1"
// @Param limit query int false "Page size"
// @Router /posts [get]
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := h.posts.ListPosts(r.Context(), services.PostQuery{
		Category: models.Category(q.Get("category")),
		Status:   models.PostStatus(q.Get("status")),
		Search:   q.Get("search"),
		Page:     queryInt(r, "page"),
		Limit:    queryInt(r, "limit"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toPostListResponse(page))
}

// GetPost returns a topic and counts one view
// @Router /posts/{id} [get]
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toPostResponse(post))
}

// CreatePost publishes a topic pending moderation
// @Router /posts [post]
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.posts.CreatePost(r.Context(), userID, services.CreatePostInput{
		Category: models.Category(req.Category),
		Title:    req.Title,
		Content:  req.Content,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, toPostResponse(post))
}

// DeletePost removes a topic for its author or staff
// @Router /posts/{id} [delete]
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.posts.DeletePost(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageOnlyResponse{Message: "Тема удалена"})
}

// ListComments returns the topic's comments oldest first
// @Router /posts/{id}/comments [get]
func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.posts.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, CommentsResponse{Comments: toCommentResponses(comments)})
}

// AddComment appends a comment to the topic
// @Router /posts/{id}/comments [post]
func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req CreateCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.posts.AddComment(r.Context(), chi.URLParam(r, "id"), userID, req.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, toCommentResponse(comment))
}

// UpdateStatus applies a moderation action
// @Router /posts/{id}/status [put]
func (h *PostHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.moderation.Apply(r.Context(), userID, chi.URLParam(r, "id"), models.ModerationAction(req.Action), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toPostResponse(post))
}
