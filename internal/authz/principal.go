package authz

import (
	"github.com/meridian-lms/meridian-lms/internal/principal"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Membership is one department-scoped role assignment as the engine sees it.
// Either Roles or Rights is populated: Roles carries raw names expanded at
// decision time, Rights carries a set pre-expanded at authentication time.
type Membership struct {
	DepartmentID int64
	Kind         shared.PrincipalKind
	Roles        []string
	Rights       rights.Set
	IsActive     bool
}

// Principal is the resolved actor a decision runs on behalf of. It is a flat
// view over the claims produced at login; EscalationToken is empty unless the
// caller presented one alongside the login session.
type Principal struct {
	UserID          int64
	Email           string
	Kinds           []shared.PrincipalKind
	Memberships     []Membership
	EscalationToken string
}

// FromClaims flattens authenticated claims into the engine's principal view.
func FromClaims(c principal.Claims) Principal {
	p := Principal{
		UserID: c.UserID,
		Email:  c.Email,
		Kinds:  c.Kinds,
	}
	for _, m := range c.Staff {
		p.Memberships = append(p.Memberships, Membership{
			DepartmentID: m.DepartmentID,
			Kind:         shared.KindStaff,
			Roles:        m.Roles,
			IsActive:     m.IsActive,
		})
	}
	for _, m := range c.Learner {
		p.Memberships = append(p.Memberships, Membership{
			DepartmentID: m.DepartmentID,
			Kind:         shared.KindLearner,
			Roles:        m.Roles,
			IsActive:     m.IsActive,
		})
	}
	return p
}

// HasKind reports whether the principal holds the given kind.
func (p Principal) HasKind(kind shared.PrincipalKind) bool {
	for _, k := range p.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ActiveDepartments lists the departments of active memberships, deduplicated.
func (p Principal) ActiveDepartments() []int64 {
	seen := make(map[int64]struct{}, len(p.Memberships))
	out := make([]int64, 0, len(p.Memberships))
	for _, m := range p.Memberships {
		if !m.IsActive {
			continue
		}
		if _, ok := seen[m.DepartmentID]; ok {
			continue
		}
		seen[m.DepartmentID] = struct{}{}
		out = append(out, m.DepartmentID)
	}
	return out
}

// WithEscalation returns a copy of the principal carrying an escalation token.
func (p Principal) WithEscalation(token string) Principal {
	p.EscalationToken = token
	return p
}
