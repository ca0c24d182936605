package directory

import "time"

// Department is a node in the organizational forest. The master department is
// a singleton and the only valid home for global-admin memberships.
type Department struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	ParentID  *int64    `json:"parent_id,omitempty"`
	IsMaster  bool      `json:"is_master"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRoot reports whether the department has no parent.
func (d Department) IsRoot() bool { return d.ParentID == nil }
