package principal

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Handler exposes account and membership management as a JSON surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountReadRoutes registers the read-only account routes.
func (h *Handler) MountReadRoutes(r chi.Router) {
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/claims", h.handleClaims)
}

// MountWriteRoutes registers the mutating account routes.
func (h *Handler) MountWriteRoutes(r chi.Router) {
	r.Post("/", h.handleRegister)
	r.Delete("/{id}", h.handleDeactivate)
	r.Put("/{id}/department", h.handleSelectDepartment)
	r.Post("/{id}/staff-memberships", h.handleAssignStaff)
	r.Delete("/{id}/staff-memberships/{deptID}", h.handleRemoveStaff)
	r.Post("/{id}/learner-memberships", h.handleAssignLearner)
	r.Delete("/{id}/learner-memberships/{deptID}", h.handleRemoveLearner)
}

type registerRequest struct {
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Kinds    []string `json:"kinds"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	kinds := make([]shared.PrincipalKind, 0, len(req.Kinds))
	for _, k := range req.Kinds {
		kinds = append(kinds, shared.PrincipalKind(k))
	}
	user, err := h.service.Register(r.Context(), req.Email, req.Password, kinds)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, user)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleClaims(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	claims, err := h.service.Claims(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, claims)
}

type selectDepartmentRequest struct {
	DepartmentID int64 `json:"department_id"`
}

func (h *Handler) handleSelectDepartment(w http.ResponseWriter, r *http.Request) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req selectDepartmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.SelectDepartment(r.Context(), id, req.DepartmentID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type membershipRequest struct {
	DepartmentID int64    `json:"department_id"`
	Roles        []string `json:"roles"`
	IsPrimary    bool     `json:"is_primary"`
}

func (h *Handler) handleAssignStaff(w http.ResponseWriter, r *http.Request) {
	h.assignMembership(w, r, h.service.AssignStaffMembership)
}

func (h *Handler) handleAssignLearner(w http.ResponseWriter, r *http.Request) {
	h.assignMembership(w, r, h.service.AssignLearnerMembership)
}

func (h *Handler) assignMembership(w http.ResponseWriter, r *http.Request, assign func(ctx context.Context, userID, departmentID int64, roleNames []string, primary bool) error) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	var req membershipRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := assign(r.Context(), id, req.DepartmentID, req.Roles, req.IsPrimary); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRemoveStaff(w http.ResponseWriter, r *http.Request) {
	h.removeMembership(w, r, h.service.DeactivateStaffMembership)
}

func (h *Handler) handleRemoveLearner(w http.ResponseWriter, r *http.Request) {
	h.removeMembership(w, r, h.service.DeactivateLearnerMembership)
}

func (h *Handler) removeMembership(w http.ResponseWriter, r *http.Request, remove func(ctx context.Context, userID, departmentID int64) error) {
	id, ok := userID(w, r)
	if !ok {
		return
	}
	deptID, err := strconv.ParseInt(chi.URLParam(r, "deptID"), 10, 64)
	if err != nil || deptID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid department id")
		return
	}
	if err := remove(r.Context(), id, deptID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return 0, false
	}
	return id, true
}
