package escalation

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/principal"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// TokenHeader carries the escalation session token on elevated requests.
const TokenHeader = "X-Escalation-Token"

// ClaimsSource resolves a login session's user id into full claims.
type ClaimsSource interface {
	Claims(ctx context.Context, userID int64) (principal.Claims, error)
}

// AttemptMetrics counts escalation attempts by outcome.
type AttemptMetrics interface {
	Escalation(outcome string)
}

// Handler wires HTTP endpoints for the escalation flow.
type Handler struct {
	logger  *slog.Logger
	service *Service
	claims  ClaimsSource
	metrics AttemptMetrics
}

func NewHandler(logger *slog.Logger, service *Service, claims ClaimsSource, metrics AttemptMetrics) *Handler {
	return &Handler{logger: logger, service: service, claims: claims, metrics: metrics}
}

// MountRoutes registers escalation routes on the provided router. The router
// must already have the session middleware applied.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/escalate", h.handleEscalate)
	r.Post("/de-escalate", h.handleDeEscalate)
	r.Get("/escalation/status", h.handleStatus)
	r.Put("/escalation/secret", h.handleSetSecret)
}

type escalateRequest struct {
	Secret string `json:"secret"`
}

type escalateResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) handleEscalate(w http.ResponseWriter, r *http.Request) {
	userID, kinds, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	var req escalateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}

	sess, err := h.service.Escalate(r.Context(), userID, kinds, req.Secret)
	if err != nil {
		if h.metrics != nil {
			h.metrics.Escalation("denied")
		}
		httpx.RespondError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.Escalation("granted")
	}
	httpx.JSON(w, http.StatusOK, escalateResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt()})
}

func (h *Handler) handleDeEscalate(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := h.currentUser(w, r); !ok {
		return
	}
	if err := h.service.DeEscalate(r.Context(), r.Header.Get(TokenHeader)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type statusResponse struct {
	Escalated bool       `json:"escalated"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	sess, live, err := h.service.IsEscalated(r.Context(), r.Header.Get(TokenHeader))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if !live || sess.UserID != userID {
		httpx.JSON(w, http.StatusOK, statusResponse{Escalated: false})
		return
	}
	expires := sess.ExpiresAt()
	httpx.JSON(w, http.StatusOK, statusResponse{Escalated: true, ExpiresAt: &expires})
}

type setSecretRequest struct {
	Secret         string `json:"secret"`
	TimeoutMinutes int    `json:"timeout_minutes"`
}

func (h *Handler) handleSetSecret(w http.ResponseWriter, r *http.Request) {
	userID, kinds, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	if !hasGlobalAdmin(kinds) {
		httpx.RespondError(w, shared.ErrEscalationDenied)
		return
	}
	var req setSecretRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.service.SetSecret(r.Context(), userID, req.Secret, req.TimeoutMinutes); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (int64, []shared.PrincipalKind, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return 0, nil, false
	}
	claims, err := h.claims.Claims(r.Context(), sess.User())
	if err != nil {
		h.logger.Error("resolve claims", slog.Any("error", err))
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return 0, nil, false
	}
	return claims.UserID, claims.Kinds, true
}
