package principal

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-lms/meridian-lms/internal/directory"
	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// RoleValidator checks that role names are valid for a principal kind.
type RoleValidator interface {
	ValidateNames(ctx context.Context, kind shared.PrincipalKind, names []string) error
}

// DepartmentStore is the subset of the directory the principal service needs.
type DepartmentStore interface {
	Get(ctx context.Context, id int64) (directory.Department, error)
}

// Service wraps account and membership business rules.
type Service struct {
	repo     Repository
	roles    RoleValidator
	depts    DepartmentStore
	validate *validator.Validate
}

// NewService constructs a Service.
func NewService(repo Repository, roles RoleValidator, depts DepartmentStore) *Service {
	return &Service{repo: repo, roles: roles, depts: depts, validate: validator.New()}
}

// Register creates a user account with a bcrypt-hashed login credential.
func (s *Service) Register(ctx context.Context, email, password string, kinds []shared.PrincipalKind) (User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	vErr := shared.NewValidationError()
	if err := s.validate.Var(email, "required,email"); err != nil {
		vErr.Add("email", "a valid email address is required")
	}
	if len(password) < 12 {
		vErr.Add("password", "password must be at least 12 characters")
	}
	if len(kinds) == 0 {
		vErr.Add("kinds", "at least one principal kind is required")
	}
	for _, k := range kinds {
		if !k.Valid() {
			vErr.Add("kinds", fmt.Sprintf("unknown principal kind %q", k))
		}
	}
	if vErr.HasErrors() {
		return User{}, vErr
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("principal: hash password: %w", err)
	}
	return s.repo.Create(ctx, User{
		Email:        email,
		PasswordHash: string(hash),
		Kinds:        kinds,
		IsActive:     true,
	})
}

// Get fetches one user.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// GetByEmail fetches one user by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// Claims assembles the resolved principal identity the authorization engine
// consumes. The password hash never leaves this package.
func (s *Service) Claims(ctx context.Context, userID int64) (Claims, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return Claims{}, err
	}
	claims := Claims{UserID: user.ID, Email: user.Email, Kinds: user.Kinds}

	if user.HasKind(shared.KindStaff) || user.HasKind(shared.KindGlobalAdmin) {
		claims.Staff, err = s.repo.StaffMemberships(ctx, userID)
		if err != nil {
			return Claims{}, err
		}
	}
	if user.HasKind(shared.KindLearner) {
		claims.Learner, err = s.repo.LearnerMemberships(ctx, userID)
		if err != nil {
			return Claims{}, err
		}
	}
	return claims, nil
}

// AssignStaffMembership grants staff roles in a department. The role set must
// be non-empty and valid for staff accounts; the department must exist.
func (s *Service) AssignStaffMembership(ctx context.Context, userID, departmentID int64, roleNames []string, primary bool) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasKind(shared.KindStaff) {
		return shared.NewValidationError(shared.FieldError{Field: "user_id", Message: "account does not hold the staff kind"})
	}
	if err := s.checkDepartment(ctx, departmentID); err != nil {
		return err
	}
	if err := s.roles.ValidateNames(ctx, shared.KindStaff, roleNames); err != nil {
		return err
	}
	return s.repo.UpsertStaffMembership(ctx, StaffMembership{
		UserID:       userID,
		DepartmentID: departmentID,
		Roles:        roleNames,
		IsPrimary:    primary,
		IsActive:     true,
	})
}

// AssignLearnerMembership grants learner roles in a department.
func (s *Service) AssignLearnerMembership(ctx context.Context, userID, departmentID int64, roleNames []string, primary bool) error {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.HasKind(shared.KindLearner) {
		return shared.NewValidationError(shared.FieldError{Field: "user_id", Message: "account does not hold the learner kind"})
	}
	if err := s.checkDepartment(ctx, departmentID); err != nil {
		return err
	}
	if err := s.roles.ValidateNames(ctx, shared.KindLearner, roleNames); err != nil {
		return err
	}
	return s.repo.UpsertLearnerMembership(ctx, LearnerMembership{
		UserID:       userID,
		DepartmentID: departmentID,
		Roles:        roleNames,
		IsPrimary:    primary,
		IsActive:     true,
	})
}

// DeactivateStaffMembership soft-disables one staff membership.
func (s *Service) DeactivateStaffMembership(ctx context.Context, userID, departmentID int64) error {
	return s.repo.SetStaffMembershipActive(ctx, userID, departmentID, false)
}

// DeactivateLearnerMembership soft-disables one learner membership.
func (s *Service) DeactivateLearnerMembership(ctx context.Context, userID, departmentID int64) error {
	return s.repo.SetLearnerMembershipActive(ctx, userID, departmentID, false)
}

// SelectDepartment records the department the user last worked in.
func (s *Service) SelectDepartment(ctx context.Context, userID, departmentID int64) error {
	if err := s.checkDepartment(ctx, departmentID); err != nil {
		return err
	}
	return s.repo.SetLastDepartment(ctx, userID, departmentID)
}

// Deactivate soft-disables the account.
func (s *Service) Deactivate(ctx context.Context, userID int64) error {
	return s.repo.SetActive(ctx, userID, false)
}

func (s *Service) checkDepartment(ctx context.Context, id int64) error {
	dept, err := s.depts.Get(ctx, id)
	if err != nil {
		return err
	}
	if !dept.IsActive {
		return shared.NewValidationError(shared.FieldError{Field: "department_id", Message: "department is inactive"})
	}
	return nil
}
