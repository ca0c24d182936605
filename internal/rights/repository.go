package rights

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Repository defines persistence operations for the access right catalog.
type Repository interface {
	List(ctx context.Context) ([]AccessRight, error)
	Get(ctx context.Context, id string) (AccessRight, error)
	Create(ctx context.Context, right AccessRight) (AccessRight, error)
	Update(ctx context.Context, right AccessRight) (AccessRight, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const rightColumns = `id, domain, resource, action, description, sensitive, sensitivity_category, is_active, created_at, updated_at`

// List returns the full catalog ordered by identifier.
func (r *PGRepository) List(ctx context.Context) ([]AccessRight, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+rightColumns+` FROM access_rights ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []AccessRight
	for rows.Next() {
		right, err := scanRight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, right)
	}
	return out, rows.Err()
}

// Get fetches one catalog entry.
func (r *PGRepository) Get(ctx context.Context, id string) (AccessRight, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+rightColumns+` FROM access_rights WHERE id = $1`, id)
	right, err := scanRight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessRight{}, shared.ErrNotFound
		}
		return AccessRight{}, err
	}
	return right, nil
}

// Create inserts a catalog entry.
func (r *PGRepository) Create(ctx context.Context, right AccessRight) (AccessRight, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO access_rights (id, domain, resource, action, description, sensitive, sensitivity_category, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+rightColumns,
		right.ID, right.Domain, right.Resource, right.Action, right.Description,
		right.Sensitive, right.SensitivityCategory, right.IsActive)
	created, err := scanRight(row)
	if err != nil {
		if isUniqueViolation(err) {
			return AccessRight{}, shared.ErrDuplicate
		}
		return AccessRight{}, err
	}
	return created, nil
}

// Update rewrites the mutable fields of a catalog entry.
func (r *PGRepository) Update(ctx context.Context, right AccessRight) (AccessRight, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE access_rights
		SET description = $2, sensitive = $3, sensitivity_category = $4, is_active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING `+rightColumns,
		right.ID, right.Description, right.Sensitive, right.SensitivityCategory, right.IsActive)
	updated, err := scanRight(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccessRight{}, shared.ErrNotFound
		}
		return AccessRight{}, err
	}
	return updated, nil
}

// SetActive toggles a catalog entry without touching its definition.
func (r *PGRepository) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE access_rights SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func scanRight(row pgx.Row) (AccessRight, error) {
	var right AccessRight
	err := row.Scan(&right.ID, &right.Domain, &right.Resource, &right.Action, &right.Description,
		&right.Sensitive, &right.SensitivityCategory, &right.IsActive, &right.CreatedAt, &right.UpdatedAt)
	return right, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Repository = (*PGRepository)(nil)
