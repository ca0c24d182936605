package roles

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Handler exposes the role definition registry as a JSON surface.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountReadRoutes registers the read-only registry routes.
func (h *Handler) MountReadRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Get("/{name}", h.handleGet)
	r.Get("/{name}/rights", h.handleRights)
}

// MountWriteRoutes registers the mutating registry routes.
func (h *Handler) MountWriteRoutes(r chi.Router) {
	r.Post("/", h.handleCreate)
	r.Put("/{name}", h.handleUpdate)
	r.Delete("/{name}", h.handleDeactivate)
}

type definitionRequest struct {
	Name        string   `json:"name"`
	Kind        string   `json:"kind"`
	DisplayName string   `json:"display_name"`
	Description string   `json:"description"`
	RightIDs    []string `json:"right_ids"`
	IsDefault   bool     `json:"is_default"`
	SortOrder   int      `json:"sort_order"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if kind := r.URL.Query().Get("kind"); kind != "" {
		defs, err := h.service.ByKind(r.Context(), shared.PrincipalKind(kind))
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"roles": defs})
		return
	}
	defs, err := h.service.Definitions(r.Context())
	if err != nil {
		h.logger.Error("list roles", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"roles": defs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	def, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, def)
}

// handleRights expands one role into its concrete right identifiers.
func (h *Handler) handleRights(w http.ResponseWriter, r *http.Request) {
	def, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	set, err := h.service.Combine(r.Context(), def.Kind, def.Name)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"role": def.Name, "rights": set.Identifiers()})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	def, err := h.service.Create(r.Context(), Definition{
		Name:        req.Name,
		Kind:        shared.PrincipalKind(req.Kind),
		DisplayName: req.DisplayName,
		Description: req.Description,
		RightIDs:    req.RightIDs,
		IsDefault:   req.IsDefault,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, def)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	def, err := h.service.Update(r.Context(), Definition{
		Name:        chi.URLParam(r, "name"),
		DisplayName: req.DisplayName,
		Description: req.Description,
		RightIDs:    req.RightIDs,
		IsDefault:   req.IsDefault,
		SortOrder:   req.SortOrder,
		IsActive:    true,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, def)
}

func (h *Handler) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "name")); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
