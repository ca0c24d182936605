package rights

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
)

// Handler exposes the access-right catalog as a JSON surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountReadRoutes registers the read-only catalog routes.
func (h *Handler) MountReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
}

// MountWriteRoutes registers the mutating catalog routes.
func (h *Handler) MountWriteRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Put("/{id}", h.handleUpdate)
	r.Delete("/{id}", h.handleDeactivate)
}

type rightRequest struct {
	ID                  string `json:"id"`
	Description         string `json:"description"`
	Sensitive           bool   `json:"sensitive"`
	SensitivityCategory string `json:"sensitivity_category"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.service.Catalog(r.Context())
	if err != nil {
		h.logger.Error("list rights", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rights": catalog})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	right, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, right)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req rightRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	right, err := h.service.Create(r.Context(), AccessRight{
		ID:                  req.ID,
		Description:         req.Description,
		Sensitive:           req.Sensitive,
		SensitivityCategory: req.SensitivityCategory,
		IsActive:            true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, right)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req rightRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	right, err := h.service.Update(r.Context(), AccessRight{
		ID:                  chi.URLParam(r, "id"),
		Description:         req.Description,
		Sensitive:           req.Sensitive,
		SensitivityCategory: req.SensitivityCategory,
		IsActive:            true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, right)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
