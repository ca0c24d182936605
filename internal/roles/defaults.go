package roles

import (
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// SeedDefinitions enumerates the role definitions installed into an empty
// database. Right identifiers reference the seed catalog in the rights
// package.
func SeedDefinitions() []Definition {
	return []Definition{
		{
			Name:        RoleStudent,
			Kind:        shared.KindLearner,
			DisplayName: "Student",
			Description: "Enrolled learner with access to course material",
			RightIDs:    []string{rights.RightContentView, rights.RightContentRead},
			IsDefault:   true,
			SortOrder:   10,
			IsActive:    true,
		},
		{
			Name:        RoleAuditor,
			Kind:        shared.KindLearner,
			DisplayName: "Course Auditor",
			Description: "Learner auditing courses without assessment access",
			RightIDs:    []string{rights.RightContentView},
			SortOrder:   20,
			IsActive:    true,
		},
		{
			Name:        RoleInstructor,
			Kind:        shared.KindStaff,
			DisplayName: "Instructor",
			Description: "Teaches courses and grades submissions",
			RightIDs: []string{
				rights.RightContentView,
				rights.RightContentRead,
				rights.RightContentManage,
				rights.RightAssessmentView,
				rights.RightAssessmentGrade,
				rights.RightEnrollmentView,
			},
			IsDefault: true,
			SortOrder: 10,
			IsActive:  true,
		},
		{
			Name:        RoleContentAuthor,
			Kind:        shared.KindStaff,
			DisplayName: "Content Author",
			Description: "Authors course content across the content domain",
			RightIDs:    []string{"content:*"},
			SortOrder:   20,
			IsActive:    true,
		},
		{
			Name:        RoleDepartmentAdmin,
			Kind:        shared.KindStaff,
			DisplayName: "Department Administrator",
			Description: "Manages enrollments, reporting and staff within a department",
			RightIDs: []string{
				rights.RightContentView,
				rights.RightContentRead,
				rights.RightEnrollmentView,
				rights.RightEnrollmentManage,
				rights.RightReportsView,
				rights.RightUsersView,
				rights.RightDepartmentsView,
			},
			SortOrder: 30,
			IsActive:  true,
		},
		{
			Name:        RoleReportViewer,
			Kind:        shared.KindStaff,
			DisplayName: "Report Viewer",
			Description: "Read-only access to progress reporting",
			RightIDs:    []string{rights.RightReportsView},
			SortOrder:   40,
			IsActive:    true,
		},
		{
			Name:        RoleGlobalAdmin,
			Kind:        shared.KindGlobalAdmin,
			DisplayName: "Global Administrator",
			Description: "Unrestricted platform administration under escalation",
			RightIDs:    []string{rights.RightSystemAll},
			IsDefault:   true,
			SortOrder:   10,
			IsActive:    true,
		},
	}
}
