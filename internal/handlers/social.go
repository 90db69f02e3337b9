package handlers

import (
	"context"
	"net/http"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/go-chi/chi/v5"
)

type NotificationServiceInterface interface {
	List(ctx context.Context, userID string) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type MessageServiceInterface interface {
	Send(ctx context.Context, senderID, receiverID, content string) (*models.Message, error)
	Conversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	Thread(ctx context.Context, userID, otherID string) ([]*models.Message, error)
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

type FavoriteServiceInterface interface {
	Add(ctx context.Context, userID, postID string) error
	Remove(ctx context.Context, userID, postID string) error
	List(ctx context.Context, userID string) ([]*models.Post, error)
}

// SocialHandler serves notifications, private messages and favorites
type SocialHandler struct {
	notifications NotificationServiceInterface
	messages      MessageServiceInterface
	favorites     FavoriteServiceInterface
}

func NewSocialHandler(notifications NotificationServiceInterface, messages MessageServiceInterface, favorites FavoriteServiceInterface) *SocialHandler {
	return &SocialHandler{notifications: notifications, messages: messages, favorites: favorites}
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

type NotificationsResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
}

type ConversationsResponse struct {
	Conversations []ConversationResponse `json:"conversations"`
}

type ThreadResponse struct {
	Messages []MessageResponse `json:"messages"`
}

type MarkedResponse struct {
	Updated int64 `json:"updated"`
}

// @Router /notifications [get]
func (h *SocialHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	list, err := h.notifications.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		out = append(out, NotificationResponse{
			ID:        n.ID,
			Type:      n.Type,
			Message:   n.Message,
			Link:      n.Link,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, NotificationsResponse{Notifications: out})
}

// @Router /notifications/unread/count [get]
func (h *SocialHandler) UnreadNotifications(w http.ResponseWriter, r *http.Request) {
	h.unread(w, r, h.notifications.UnreadCount)
}

// @Router /notifications/{id}/read [put]
func (h *SocialHandler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MarkedResponse{Updated: 1})
}

// @Router /notifications/read-all [put]
func (h *SocialHandler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	n, err := h.notifications.MarkAllRead(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MarkedResponse{Updated: n})
}

// @Router /messages [get]
func (h *SocialHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	list, err := h.messages.Conversations(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]ConversationResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ConversationResponse{
			OtherUserID:     c.OtherUserID,
			OtherUsername:   c.OtherUsername,
			OtherAvatar:     c.OtherAvatar,
			OtherAvatarURL:  c.OtherAvatarURL,
			LastMessageTime: c.LastMessageTime,
			UnreadCount:     c.UnreadCount,
		})
	}
	pkghttp.WriteJSON(w, http.StatusOK, ConversationsResponse{Conversations: out})
}

// Thread returns the conversation with another user and marks it read
// @Router /messages/{userId} [get]
func (h *SocialHandler) Thread(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	list, err := h.messages.Thread(r.Context(), userID, chi.URLParam(r, "userId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]MessageResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMessageResponse(m))
	}
	pkghttp.WriteJSON(w, http.StatusOK, ThreadResponse{Messages: out})
}

// @Router /messages [post]
func (h *SocialHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.messages.Send(r.Context(), userID, req.ReceiverID, req.Content)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, toMessageResponse(msg))
}

// @Router /messages/unread/count [get]
func (h *SocialHandler) UnreadMessages(w http.ResponseWriter, r *http.Request) {
	h.unread(w, r, h.messages.UnreadCount)
}

// @Router /favorites [get]
func (h *SocialHandler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	posts, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := toPostResponses(posts)
	for i := range out {
		out[i].IsFavorite = true
	}
	pkghttp.WriteJSON(w, http.StatusOK, UserPostsResponse{Posts: out})
}

// @Router /favorites/{postId} [post]
func (h *SocialHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.favorites.Add(r.Context(), userID, chi.URLParam(r, "postId")); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageOnlyResponse{Message: "Добавлено в избранное"})
}

// @Router /favorites/{postId} [delete]
func (h *SocialHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	if err := h.favorites.Remove(r.Context(), userID, chi.URLParam(r, "postId")); err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, MessageOnlyResponse{Message: "Удалено из избранного"})
}

func (h *SocialHandler) unread(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, userID string) (int64, error)) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	n, err := fn(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, CountResponse{Count: n})
}
