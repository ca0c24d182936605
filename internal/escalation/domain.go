package escalation

import "time"

// Session timeout bounds in minutes.
const (
	MinTimeoutMinutes     = 5
	MaxTimeoutMinutes     = 60
	DefaultTimeoutMinutes = 15
)

// AdminMembership scopes global-admin roles to the master department. Every
// membership on an escalation record must target the master department; that
// invariant is enforced at write time.
type AdminMembership struct {
	UserID       int64     `json:"user_id"`
	DepartmentID int64     `json:"department_id"`
	Roles        []string  `json:"roles"`
	IsPrimary    bool      `json:"is_primary"`
	JoinedAt     time.Time `json:"joined_at"`
	IsActive     bool      `json:"is_active"`
}

// Record holds a principal's escalation state. The secret hash is distinct
// from the login credential and never serialized into responses.
type Record struct {
	UserID          int64
	SecretHash      string `json:"-"`
	Memberships     []AdminMembership
	LastEscalatedAt *time.Time
	TimeoutMinutes  int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Timeout returns the bounded session timeout.
func (r Record) Timeout() time.Duration {
	minutes := r.TimeoutMinutes
	if minutes < MinTimeoutMinutes || minutes > MaxTimeoutMinutes {
		minutes = DefaultTimeoutMinutes
	}
	return time.Duration(minutes) * time.Minute
}

// ActiveMasterRoles collects the role names across active memberships.
func (r Record) ActiveMasterRoles() []string {
	var out []string
	for _, m := range r.Memberships {
		if m.IsActive {
			out = append(out, m.Roles...)
		}
	}
	return out
}

// Session is an escalation session token with its validity window. It is a
// second, independently expiring context carried alongside the login
// session; holding one without the other grants nothing.
type Session struct {
	Token       string        `json:"token"`
	UserID      int64         `json:"user_id"`
	EscalatedAt time.Time     `json:"escalated_at"`
	Timeout     time.Duration `json:"timeout"`
}

// ValidAt computes whether the session is still live at the given instant.
// Expiry is always computed from the escalation timestamp, never tracked by
// a timer.
func (s Session) ValidAt(now time.Time) bool {
	if s.Token == "" || s.EscalatedAt.IsZero() {
		return false
	}
	return now.Before(s.EscalatedAt.Add(s.Timeout))
}

// ExpiresAt returns the instant the session lapses.
func (s Session) ExpiresAt() time.Time {
	return s.EscalatedAt.Add(s.Timeout)
}
