package handlers

import (
	"context"
	"net/http"

	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/models"
	"github.com/AbobaRoblox/Unfiltered-RP-Forum/internal/services"
	pkghttp "github.com/AbobaRoblox/Unfiltered-RP-Forum/pkg/http"
	"github.com/go-chi/chi/v5"
)

// ApplicationServiceInterface defines the staff application workflow
type ApplicationServiceInterface interface {
	Submit(ctx context.Context, userID string, in services.ApplicationInput) (*models.AdminApplication, error)
	Approve(ctx context.Context, actorID, id string, role models.Role) (*models.AdminApplication, error)
	Reject(ctx context.Context, actorID, id, reason string) (*models.AdminApplication, error)
	List(ctx context.Context, actorID, status string, limit int) ([]*models.AdminApplication, error)
	CountPending(ctx context.Context, actorID string) (int64, error)
}

// VerificationReviewerInterface defines the staff side of Roblox verification
type VerificationReviewerInterface interface {
	Approve(ctx context.Context, actorID, id string) (*models.RobloxVerification, error)
	Reject(ctx context.Context, actorID, id, reason string) (*models.RobloxVerification, error)
	List(ctx context.Context, actorID, status string, limit int) ([]*models.RobloxVerification, error)
	CountPending(ctx context.Context, actorID string) (int64, error)
}

// WorkflowHandler serves staff applications and Roblox verifications
type WorkflowHandler struct {
	applications  ApplicationServiceInterface
	verifications VerificationReviewerInterface
}

func NewWorkflowHandler(applications ApplicationServiceInterface, verifications VerificationReviewerInterface) *WorkflowHandler {
	return &WorkflowHandler{applications: applications, verifications: verifications}
}

type ApplicationRequest struct {
	Nick       string `json:"nick" validate:"required,max=50"`
	Age        int    `json:"age" validate:"required,gte=14,lte=120"`
	Hours      string `json:"hours" validate:"required,max=50"`
	Experience string `json:"experience" validate:"max=2000"`
	Reason     string `json:"reason" validate:"required,max=2000"`
	Discord    string `json:"discord" validate:"required,max=100"`
}

type ApproveApplicationRequest struct {
	Role string `json:"role" validate:"omitempty,known_role"`
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type ApplicationsResponse struct {
	Applications []ApplicationResponse `json:"applications"`
}

type VerificationsResponse struct {
	Verifications []VerificationResponse `json:"verifications"`
}

// SubmitApplication files a staff application for the caller
// @Router /applications [post]
func (h *WorkflowHandler) SubmitApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req ApplicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.applications.Submit(r.Context(), userID, services.ApplicationInput{
		Nick:       req.Nick,
		Age:        req.Age,
		Hours:      req.Hours,
		Experience: req.Experience,
		Reason:     req.Reason,
		Discord:    req.Discord,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusCreated, toApplicationResponse(app))
}

// ListApplications returns applications filtered by ?status=
// @Router /admin/applications [get]
func (h *WorkflowHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	apps, err := h.applications.List(r.Context(), actorID, r.URL.Query().Get("status"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]ApplicationResponse, 0, len(apps))
	for _, a := range apps {
		out = append(out, toApplicationResponse(a))
	}
	pkghttp.WriteJSON(w, http.StatusOK, ApplicationsResponse{Applications: out})
}

// @Router /admin/applications/count [get]
func (h *WorkflowHandler) CountApplications(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, h.applications.CountPending)
}

// ApproveApplication grants the requested role, helper by default
// @Router /admin/applications/{id}/approve [post]
func (h *WorkflowHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req ApproveApplicationRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.applications.Approve(r.Context(), actorID, chi.URLParam(r, "id"), models.Role(req.Role))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

// @Router /admin/applications/{id}/reject [post]
func (h *WorkflowHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.applications.Reject(r.Context(), actorID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toApplicationResponse(app))
}

// ListVerifications returns verification requests filtered by ?status=
// @Router /admin/verifications [get]
func (h *WorkflowHandler) ListVerifications(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	list, err := h.verifications.List(r.Context(), actorID, r.URL.Query().Get("status"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	out := make([]VerificationResponse, 0, len(list))
	for _, v := range list {
		out = append(out, toVerificationResponse(v))
	}
	pkghttp.WriteJSON(w, http.StatusOK, VerificationsResponse{Verifications: out})
}

// @Router /admin/verifications/count [get]
func (h *WorkflowHandler) CountVerifications(w http.ResponseWriter, r *http.Request) {
	h.count(w, r, h.verifications.CountPending)
}

// @Router /admin/verifications/{id}/approve [post]
func (h *WorkflowHandler) ApproveVerification(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	v, err := h.verifications.Approve(r.Context(), actorID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toVerificationResponse(v))
}

// @Router /admin/verifications/{id}/reject [post]
func (h *WorkflowHandler) RejectVerification(w http.ResponseWriter, r *http.Request) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req RejectRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}

	v, err := h.verifications.Reject(r.Context(), actorID, chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, toVerificationResponse(v))
}

func (h *WorkflowHandler) count(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actorID string) (int64, error)) {
	actorID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	n, err := fn(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, CountResponse{Count: n})
}
