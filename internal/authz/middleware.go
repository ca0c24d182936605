package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridian-lms/meridian-lms/internal/escalation"
	"github.com/meridian-lms/meridian-lms/internal/platform/httpx"
	"github.com/meridian-lms/meridian-lms/internal/principal"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// EscalationHeader carries the elevated-session token alongside the login
// cookie. The two expire independently; neither implies the other.
const EscalationHeader = escalation.TokenHeader

// ClaimsSource resolves a login session's user id into full claims.
type ClaimsSource interface {
	Claims(ctx context.Context, userID int64) (principal.Claims, error)
}

// Middleware wires authorization checks for HTTP handlers.
type Middleware struct {
	Engine *Engine
	Claims ClaimsSource
	Logger *slog.Logger
}

// RequireRight gates a route on one access right. The identifier is parsed
// once at registration; a malformed identifier is a programming error.
func (m Middleware) RequireRight(identifier string) func(http.Handler) http.Handler {
	required := rights.MustParse(identifier)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.currentPrincipal(w, r)
			if !ok {
				return
			}
			if err := m.Engine.Authorize(r.Context(), p, required); err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireEscalated gates a route on one access right evaluated in the
// elevated context. The escalation token is read from the request header;
// the ordinary login session alone never passes.
func (m Middleware) RequireEscalated(identifier string) func(http.Handler) http.Handler {
	required := rights.MustParse(identifier)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := m.currentPrincipal(w, r)
			if !ok {
				return
			}
			p = p.WithEscalation(r.Header.Get(EscalationHeader))
			if err := m.Engine.AuthorizeEscalated(r.Context(), p, required); err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(contextWithPrincipal(r.Context(), p)))
		})
	}
}

func (m Middleware) currentPrincipal(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == 0 {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return Principal{}, false
	}
	claims, err := m.Claims.Claims(r.Context(), sess.User())
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("resolve claims", slog.Any("error", err))
		}
		httpx.RespondError(w, shared.ErrAuthorizationDenied)
		return Principal{}, false
	}
	return FromClaims(claims), true
}

type principalCtxKey struct{}

func contextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext returns the principal stored by the middleware, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalCtxKey{}).(Principal)
	return p, ok
}
