package directory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Repository defines persistence operations for departments.
type Repository interface {
	List(ctx context.Context) ([]Department, error)
	Get(ctx context.Context, id int64) (Department, error)
	GetMaster(ctx context.Context) (Department, error)
	Create(ctx context.Context, dept Department) (Department, error)
	Update(ctx context.Context, dept Department) (Department, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const departmentColumns = `id, name, code, parent_id, is_master, is_active, created_at, updated_at`

// List returns every department, active or not, ordered by id.
func (r *PGRepository) List(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+departmentColumns+` FROM departments ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Department
	for rows.Next() {
		dept, err := scanDepartment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dept)
	}
	return out, rows.Err()
}

// Get fetches one department.
func (r *PGRepository) Get(ctx context.Context, id int64) (Department, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE id = $1`, id)
	dept, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return dept, nil
}

// GetMaster fetches the master department singleton.
func (r *PGRepository) GetMaster(ctx context.Context) (Department, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+departmentColumns+` FROM departments WHERE is_master LIMIT 1`)
	dept, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return dept, nil
}

// Create inserts a department.
func (r *PGRepository) Create(ctx context.Context, dept Department) (Department, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO departments (name, code, parent_id, is_master, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+departmentColumns,
		dept.Name, dept.Code, dept.ParentID, dept.IsMaster, dept.IsActive)
	created, err := scanDepartment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Department{}, shared.ErrDuplicate
		}
		return Department{}, err
	}
	return created, nil
}

// Update rewrites name, code and parent of a department.
func (r *PGRepository) Update(ctx context.Context, dept Department) (Department, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE departments
		SET name = $2, code = $3, parent_id = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+departmentColumns,
		dept.ID, dept.Name, dept.Code, dept.ParentID)
	updated, err := scanDepartment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Department{}, shared.ErrNotFound
		}
		return Department{}, err
	}
	return updated, nil
}

// SetActive toggles a department. Departments are never hard-deleted while
// memberships reference them.
func (r *PGRepository) SetActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE departments SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanDepartment(row pgx.Row) (Department, error) {
	var dept Department
	err := row.Scan(&dept.ID, &dept.Name, &dept.Code, &dept.ParentID, &dept.IsMaster,
		&dept.IsActive, &dept.CreatedAt, &dept.UpdatedAt)
	return dept, err
}

var _ Repository = (*PGRepository)(nil)
