package principal

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Repository defines persistence operations for users and their memberships.
type Repository interface {
	Get(ctx context.Context, id int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	SetActive(ctx context.Context, id int64, active bool) error
	SetLastDepartment(ctx context.Context, id int64, departmentID int64) error

	StaffMemberships(ctx context.Context, userID int64) ([]StaffMembership, error)
	LearnerMemberships(ctx context.Context, userID int64) ([]LearnerMembership, error)
	UpsertStaffMembership(ctx context.Context, m StaffMembership) error
	UpsertLearnerMembership(ctx context.Context, m LearnerMembership) error
	SetStaffMembershipActive(ctx context.Context, userID, departmentID int64, active bool) error
	SetLearnerMembershipActive(ctx context.Context, userID, departmentID int64, active bool) error
}

// PGRepository implements Repository using PostgreSQL. Each membership is one
// row; adding a role or flipping a flag is a single-row update, matching the
// atomicity the decision engine relies on.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const userColumns = `id, email, password_hash, kinds, last_department_id, is_active, created_at, updated_at`

// Get fetches one user.
func (r *PGRepository) Get(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// GetByEmail fetches one user by email.
func (r *PGRepository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

// Create inserts a user.
func (r *PGRepository) Create(ctx context.Context, user User) (User, error) {
	kinds := make([]string, len(user.Kinds))
	for i, k := range user.Kinds {
		kinds[i] = string(k)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, kinds, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		user.Email, user.PasswordHash, kinds, user.IsActive)
	created, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, shared.ErrDuplicate
		}
		return User{}, err
	}
	return created, nil
}

// SetActive toggles the account.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetLastDepartment records the last department the user selected.
func (r *PGRepository) SetLastDepartment(ctx context.Context, id int64, departmentID int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET last_department_id = $2, updated_at = NOW() WHERE id = $1`, id, departmentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// StaffMemberships returns every staff membership of a user.
func (r *PGRepository) StaffMemberships(ctx context.Context, userID int64) ([]StaffMembership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, department_id, roles, is_primary, joined_at, is_active
		FROM staff_memberships WHERE user_id = $1 ORDER BY department_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StaffMembership
	for rows.Next() {
		var m StaffMembership
		if err := rows.Scan(&m.UserID, &m.DepartmentID, &m.Roles, &m.IsPrimary, &m.JoinedAt, &m.IsActive); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// LearnerMemberships returns every learner membership of a user.
func (r *PGRepository) LearnerMemberships(ctx context.Context, userID int64) ([]LearnerMembership, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, department_id, roles, is_primary, joined_at, is_active
		FROM learner_memberships WHERE user_id = $1 ORDER BY department_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LearnerMembership
	for rows.Next() {
		var m LearnerMembership
		if err := rows.Scan(&m.UserID, &m.DepartmentID, &m.Roles, &m.IsPrimary, &m.JoinedAt, &m.IsActive); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpsertStaffMembership writes one staff membership row atomically.
func (r *PGRepository) UpsertStaffMembership(ctx context.Context, m StaffMembership) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_memberships (user_id, department_id, roles, is_primary, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, department_id)
		DO UPDATE SET roles = EXCLUDED.roles, is_primary = EXCLUDED.is_primary, is_active = EXCLUDED.is_active`,
		m.UserID, m.DepartmentID, m.Roles, m.IsPrimary, m.IsActive)
	return err
}

// UpsertLearnerMembership writes one learner membership row atomically.
func (r *PGRepository) UpsertLearnerMembership(ctx context.Context, m LearnerMembership) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO learner_memberships (user_id, department_id, roles, is_primary, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, department_id)
		DO UPDATE SET roles = EXCLUDED.roles, is_primary = EXCLUDED.is_primary, is_active = EXCLUDED.is_active`,
		m.UserID, m.DepartmentID, m.Roles, m.IsPrimary, m.IsActive)
	return err
}

// SetStaffMembershipActive toggles one staff membership.
func (r *PGRepository) SetStaffMembershipActive(ctx context.Context, userID, departmentID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staff_memberships SET is_active = $3 WHERE user_id = $1 AND department_id = $2`,
		userID, departmentID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetLearnerMembershipActive toggles one learner membership.
func (r *PGRepository) SetLearnerMembershipActive(ctx context.Context, userID, departmentID int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE learner_memberships SET is_active = $3 WHERE user_id = $1 AND department_id = $2`,
		userID, departmentID, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var kinds []string
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &kinds, &user.LastDepartmentID,
		&user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	user.Kinds = make([]shared.PrincipalKind, len(kinds))
	for i, k := range kinds {
		user.Kinds[i] = shared.PrincipalKind(k)
	}
	return user, nil
}

var _ Repository = (*PGRepository)(nil)
