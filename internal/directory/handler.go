package directory

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Handler exposes the department directory as a JSON surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountReadRoutes registers the read-only directory routes.
func (h *Handler) MountReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	r.Get("/{id}/subtree", h.handleSubtree)
	r.Get("/{id}/ancestors", h.handleAncestors)
}

// MountWriteRoutes registers the mutating directory routes.
func (h *Handler) MountWriteRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDeactivate)
}

type departmentRequest struct {
	Name     string `json:"name"`
	Code     string `json:"code"`
	ParentID *int64 `json:"parent_id"`
	IsMaster bool   `json:"is_master"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	depts, err := h.service.List(r.Context())
	if err != nil {
		h.logger.Error("list departments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"departments": depts})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req departmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	dept, err := h.service.Create(r.Context(), Department{
		Name:     req.Name,
		Code:     req.Code,
		ParentID: req.ParentID,
		IsMaster: req.IsMaster,
		IsActive: true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dept)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	dept, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dept)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req departmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	dept, err := h.service.Update(r.Context(), Department{
		ID:       id,
		Name:     req.Name,
		Code:     req.Code,
		ParentID: req.ParentID,
		IsMaster: req.IsMaster,
		IsActive: true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dept)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.Deactivate(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubtree(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	ids, err := h.service.DepartmentAndSubdepartments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"department_ids": ids})
}

func (h *Handler) handleAncestors(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	chain, err := h.service.AncestorChain(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ancestors": chain})
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid department id")
		return 0, false
	}
	return id, true
}
