package rights

// Core platform rights referenced from code. The full catalog lives in the
// database; these constants exist so services and middleware never spell an
// identifier ad hoc.
const (
	RightSystemAll = "system:*"

	RightUsersView   = "users:accounts:view"
	RightUsersManage = "users:accounts:manage"

	RightDepartmentsView   = "departments:units:view"
	RightDepartmentsManage = "departments:units:manage"

	RightRolesView   = "roles:definitions:view"
	RightRolesManage = "roles:definitions:manage"

	RightContentView   = "content:courses:view"
	RightContentRead   = "content:courses:read"
	RightContentManage = "content:courses:manage"

	RightEnrollmentView   = "enrollment:students:view"
	RightEnrollmentManage = "enrollment:students:manage"

	RightAssessmentGrade = "assessment:submissions:grade"
	RightAssessmentView  = "assessment:submissions:view"

	RightReportsView     = "reports:progress:view"
	RightReportsUnmasked = "reports:progress:unmasked"

	RightAuditView = "audit:log:view"

	RightBillingView = "billing:invoices:view"
)

// SeedCatalog enumerates the rights installed into an empty database.
func SeedCatalog() []AccessRight {
	return []AccessRight{
		{ID: RightSystemAll, Domain: DomainSystem, Resource: "*", Action: "*", Description: "Universal grant reserved for global administrators", Sensitive: true, SensitivityCategory: SensitivityAudit, IsActive: true},

		{ID: RightUsersView, Domain: DomainUsers, Resource: "accounts", Action: "view", Description: "View user accounts", IsActive: true},
		{ID: RightUsersManage, Domain: DomainUsers, Resource: "accounts", Action: "manage", Description: "Create and edit user accounts", Sensitive: true, SensitivityCategory: SensitivityPII, IsActive: true},

		{ID: RightDepartmentsView, Domain: DomainDepartments, Resource: "units", Action: "view", Description: "View departments", IsActive: true},
		{ID: RightDepartmentsManage, Domain: DomainDepartments, Resource: "units", Action: "manage", Description: "Create and edit departments", IsActive: true},

		{ID: RightRolesView, Domain: DomainRoles, Resource: "definitions", Action: "view", Description: "View role definitions", IsActive: true},
		{ID: RightRolesManage, Domain: DomainRoles, Resource: "definitions", Action: "manage", Description: "Edit role definitions and their rights", IsActive: true},

		{ID: RightContentView, Domain: DomainContent, Resource: "courses", Action: "view", Description: "Browse course catalog", IsActive: true},
		{ID: RightContentRead, Domain: DomainContent, Resource: "courses", Action: "read", Description: "Read course material", IsActive: true},
		{ID: RightContentManage, Domain: DomainContent, Resource: "courses", Action: "manage", Description: "Author and publish courses", IsActive: true},

		{ID: RightEnrollmentView, Domain: DomainEnrollment, Resource: "students", Action: "view", Description: "View enrollments", IsActive: true},
		{ID: RightEnrollmentManage, Domain: DomainEnrollment, Resource: "students", Action: "manage", Description: "Enroll and withdraw students", Sensitive: true, SensitivityCategory: SensitivityCompliance, IsActive: true},

		{ID: RightAssessmentView, Domain: DomainAssessment, Resource: "submissions", Action: "view", Description: "View assessment submissions", IsActive: true},
		{ID: RightAssessmentGrade, Domain: DomainAssessment, Resource: "submissions", Action: "grade", Description: "Grade assessment submissions", Sensitive: true, SensitivityCategory: SensitivityCompliance, IsActive: true},

		{ID: RightReportsView, Domain: DomainReports, Resource: "progress", Action: "view", Description: "View progress reports with masked personal data", IsActive: true},
		{ID: RightReportsUnmasked, Domain: DomainReports, Resource: "progress", Action: "unmasked", Description: "View progress reports with unmasked personal data", Sensitive: true, SensitivityCategory: SensitivityPII, IsActive: true},

		{ID: RightAuditView, Domain: DomainAudit, Resource: "log", Action: "view", Description: "Query the audit log", Sensitive: true, SensitivityCategory: SensitivityAudit, IsActive: true},

		{ID: RightBillingView, Domain: DomainBilling, Resource: "invoices", Action: "view", Description: "View billing records", Sensitive: true, SensitivityCategory: SensitivityBilling, IsActive: true},
	}
}
