package rights

import "time"

// Permission domains form a fixed enumeration; an AccessRight outside these
// domains is rejected at write time.
const (
	DomainSystem      = "system"
	DomainUsers       = "users"
	DomainDepartments = "departments"
	DomainRoles       = "roles"
	DomainContent     = "content"
	DomainEnrollment  = "enrollment"
	DomainAssessment  = "assessment"
	DomainReports     = "reports"
	DomainAudit       = "audit"
	DomainBilling     = "billing"
)

// Domains lists every valid permission domain.
func Domains() []string {
	return []string{
		DomainSystem,
		DomainUsers,
		DomainDepartments,
		DomainRoles,
		DomainContent,
		DomainEnrollment,
		DomainAssessment,
		DomainReports,
		DomainAudit,
		DomainBilling,
	}
}

// ValidDomain reports whether d belongs to the fixed domain enumeration.
func ValidDomain(d string) bool {
	for _, known := range Domains() {
		if d == known {
			return true
		}
	}
	return false
}

// Sensitivity categories drive the masking policy for consumers that render
// personal data.
const (
	SensitivityCompliance = "regulated-education-record"
	SensitivityBilling    = "billing"
	SensitivityPII        = "personal-identifying-information"
	SensitivityAudit      = "audit"
)

// ValidSensitivityCategory reports whether c is a known category.
func ValidSensitivityCategory(c string) bool {
	switch c {
	case SensitivityCompliance, SensitivityBilling, SensitivityPII, SensitivityAudit:
		return true
	}
	return false
}

// AccessRight is a catalog entry for a granular permission string.
type AccessRight struct {
	ID                  string    `json:"id"`
	Domain              string    `json:"domain"`
	Resource            string    `json:"resource"`
	Action              string    `json:"action"`
	Description         string    `json:"description"`
	Sensitive           bool      `json:"sensitive"`
	SensitivityCategory string    `json:"sensitivity_category,omitempty"`
	IsActive            bool      `json:"is_active"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Right parses the catalog entry identifier into its structured form.
func (a AccessRight) Right() (Right, error) {
	return Parse(a.ID)
}
