package principal

import (
	"time"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// User is the principal root record. A user may hold several principal kinds
// at once; memberships are stored per kind so a role can never be attached
// under the wrong kind.
type User struct {
	ID               int64                  `json:"id"`
	Email            string                 `json:"email"`
	PasswordHash     string                 `json:"-"`
	Kinds            []shared.PrincipalKind `json:"kinds"`
	LastDepartmentID *int64                 `json:"last_department_id,omitempty"`
	IsActive         bool                   `json:"is_active"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// HasKind reports whether the user holds the given principal kind.
func (u User) HasKind(kind shared.PrincipalKind) bool {
	for _, k := range u.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// DefaultSurface computes the landing surface for this user.
func (u User) DefaultSurface() shared.PrincipalKind {
	return shared.DefaultSurface(u.Kinds)
}

// StaffMembership scopes a set of staff roles to one department.
type StaffMembership struct {
	UserID       int64     `json:"user_id"`
	DepartmentID int64     `json:"department_id"`
	Roles        []string  `json:"roles"`
	IsPrimary    bool      `json:"is_primary"`
	JoinedAt     time.Time `json:"joined_at"`
	IsActive     bool      `json:"is_active"`
}

// LearnerMembership scopes a set of learner roles to one department. It is a
// distinct type from StaffMembership so a staff role under a learner account
// is unrepresentable rather than merely rejected at write time.
type LearnerMembership struct {
	UserID       int64     `json:"user_id"`
	DepartmentID int64     `json:"department_id"`
	Roles        []string  `json:"roles"`
	IsPrimary    bool      `json:"is_primary"`
	JoinedAt     time.Time `json:"joined_at"`
	IsActive     bool      `json:"is_active"`
}

// Claims is the resolved principal identity handed to the authorization
// engine after authentication. It carries raw role names per department; the
// engine expands them, or consumers may pre-expand into rights at auth time.
type Claims struct {
	UserID  int64
	Email   string
	Kinds   []shared.PrincipalKind
	Staff   []StaffMembership
	Learner []LearnerMembership
}

// HasKind reports whether the claims include the given principal kind.
func (c Claims) HasKind(kind shared.PrincipalKind) bool {
	for _, k := range c.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ActiveStaffDepartments lists the department ids of active staff memberships.
func (c Claims) ActiveStaffDepartments() []int64 {
	out := make([]int64, 0, len(c.Staff))
	for _, m := range c.Staff {
		if m.IsActive {
			out = append(out, m.DepartmentID)
		}
	}
	return out
}

// ActiveLearnerDepartments lists the department ids of active learner memberships.
func (c Claims) ActiveLearnerDepartments() []int64 {
	out := make([]int64, 0, len(c.Learner))
	for _, m := range c.Learner {
		if m.IsActive {
			out = append(out, m.DepartmentID)
		}
	}
	return out
}
