package httpx

import (
	"errors"
	"net/http"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Authorization and escalation denials deliberately carry no detail beyond
// the title so callers never learn which right was missing.
func RespondError(w http.ResponseWriter, err error) {
	var vErr *shared.ValidationError
	switch {
	case errors.As(err, &vErr):
		JSON(w, http.StatusBadRequest, ProblemDetail{
			Title:  "Validation Failed",
			Status: http.StatusBadRequest,
			Fields: vErr.Fields,
		})
	case errors.Is(err, shared.ErrValidation):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrAuthorizationDenied):
		Problem(w, http.StatusForbidden, "Forbidden", "insufficient permission")
	case errors.Is(err, shared.ErrEscalationDenied):
		Problem(w, http.StatusForbidden, "Escalation Denied", "escalation denied")
	case errors.Is(err, shared.ErrInvalidCredentials):
		Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
	case errors.Is(err, shared.ErrIntegrity):
		Problem(w, http.StatusConflict, "Integrity Violation", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
