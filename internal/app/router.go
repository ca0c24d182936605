package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-lms/meridian-lms/internal/audit"
	"github.com/meridian-lms/meridian-lms/internal/auth"
	"github.com/meridian-lms/meridian-lms/internal/authz"
	"github.com/meridian-lms/meridian-lms/internal/directory"
	"github.com/meridian-lms/meridian-lms/internal/escalation"
	"github.com/meridian-lms/meridian-lms/internal/observability"
	"github.com/meridian-lms/meridian-lms/internal/principal"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/roles"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	SessionManager    *shared.SessionManager
	AuthHandler       *auth.Handler
	PrincipalHandler  *principal.Handler
	DirectoryHandler  *directory.Handler
	RightsHandler     *rights.Handler
	RolesHandler      *roles.Handler
	EscalationHandler *escalation.Handler
	AuditHandler      *audit.Handler
	Authz             authz.Middleware
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)
	r.Route("/escalation", params.EscalationHandler.MountRoutes)

	r.Route("/departments", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireRight(rights.RightDepartmentsView))
			params.DirectoryHandler.MountReadRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireRight(rights.RightDepartmentsManage))
			params.DirectoryHandler.MountWriteRoutes(r)
		})
	})

	r.Route("/rights", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireRight(rights.RightRolesView))
			params.RightsHandler.MountReadRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireEscalated(rights.RightRolesManage))
			params.RightsHandler.MountWriteRoutes(r)
		})
	})

	r.Route("/roles", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireRight(rights.RightRolesView))
			params.RolesHandler.MountReadRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireEscalated(rights.RightRolesManage))
			params.RolesHandler.MountWriteRoutes(r)
		})
	})

	r.Route("/users", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireRight(rights.RightUsersView))
			params.PrincipalHandler.MountReadRoutes(r)
		})
		r.Group(func(r chi.Router) {
			r.Use(params.Authz.RequireRight(rights.RightUsersManage))
			params.PrincipalHandler.MountWriteRoutes(r)
		})
	})

	r.Route("/audit", func(r chi.Router) {
		r.Use(params.Authz.RequireRight(rights.RightAuditView))
		params.AuditHandler.MountRoutes(r)
	})

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
