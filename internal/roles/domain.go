package roles

import (
	"time"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Definition maps a role name, scoped to one principal kind, to an ordered
// list of access right identifiers.
type Definition struct {
	Name        string               `json:"name"`
	Kind        shared.PrincipalKind `json:"kind"`
	DisplayName string               `json:"display_name"`
	Description string               `json:"description"`
	RightIDs    []string             `json:"right_ids"`
	IsDefault   bool                 `json:"is_default"`
	SortOrder   int                  `json:"sort_order"`
	IsActive    bool                 `json:"is_active"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// Built-in role names. A role name belongs to exactly one principal kind.
const (
	RoleStudent = "student"
	RoleAuditor = "course-auditor"

	RoleInstructor      = "instructor"
	RoleContentAuthor   = "content-author"
	RoleDepartmentAdmin = "department-admin"
	RoleReportViewer    = "report-viewer"

	RoleGlobalAdmin = "global-admin"
)
