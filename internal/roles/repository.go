package roles

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Repository defines persistence operations for role definitions.
type Repository interface {
	List(ctx context.Context) ([]Definition, error)
	ListByKind(ctx context.Context, kind shared.PrincipalKind) ([]Definition, error)
	Get(ctx context.Context, name string) (Definition, error)
	Create(ctx context.Context, def Definition) (Definition, error)
	Update(ctx context.Context, def Definition) (Definition, error)
	SetActive(ctx context.Context, name string, active bool) error
}

// PGRepository implements Repository using PostgreSQL. Right identifiers are
// stored as a text array on the definition row, keeping the ordered list a
// single-document update.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const definitionColumns = `name, kind, display_name, description, right_ids, is_default, sort_order, is_active, created_at, updated_at`

// List returns every role definition ordered by kind and sort order.
func (r *PGRepository) List(ctx context.Context) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+definitionColumns+` FROM role_definitions ORDER BY kind, sort_order, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDefinitions(rows)
}

// ListByKind returns the definitions valid for one principal kind.
func (r *PGRepository) ListByKind(ctx context.Context, kind shared.PrincipalKind) ([]Definition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+definitionColumns+` FROM role_definitions WHERE kind = $1 ORDER BY sort_order, name`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectDefinitions(rows)
}

// Get fetches one definition by role name.
func (r *PGRepository) Get(ctx context.Context, name string) (Definition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+definitionColumns+` FROM role_definitions WHERE name = $1`, name)
	def, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, shared.ErrNotFound
		}
		return Definition{}, err
	}
	return def, nil
}

// Create inserts a role definition.
func (r *PGRepository) Create(ctx context.Context, def Definition) (Definition, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO role_definitions (name, kind, display_name, description, right_ids, is_default, sort_order, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+definitionColumns,
		def.Name, string(def.Kind), def.DisplayName, def.Description, def.RightIDs,
		def.IsDefault, def.SortOrder, def.IsActive)
	created, err := scanDefinition(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Definition{}, shared.ErrDuplicate
		}
		return Definition{}, err
	}
	return created, nil
}

// Update rewrites a definition, including its right list, in one statement.
func (r *PGRepository) Update(ctx context.Context, def Definition) (Definition, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE role_definitions
		SET display_name = $2, description = $3, right_ids = $4, is_default = $5, sort_order = $6, is_active = $7, updated_at = NOW()
		WHERE name = $1
		RETURNING `+definitionColumns,
		def.Name, def.DisplayName, def.Description, def.RightIDs, def.IsDefault, def.SortOrder, def.IsActive)
	updated, err := scanDefinition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Definition{}, shared.ErrNotFound
		}
		return Definition{}, err
	}
	return updated, nil
}

// SetActive toggles a definition without touching its rights.
func (r *PGRepository) SetActive(ctx context.Context, name string, active bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE role_definitions SET is_active = $2, updated_at = NOW() WHERE name = $1`, name, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectDefinitions(rows pgx.Rows) ([]Definition, error) {
	var out []Definition
	for rows.Next() {
		def, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, def)
	}
	return out, rows.Err()
}

func scanDefinition(row pgx.Row) (Definition, error) {
	var def Definition
	var kind string
	err := row.Scan(&def.Name, &kind, &def.DisplayName, &def.Description, &def.RightIDs,
		&def.IsDefault, &def.SortOrder, &def.IsActive, &def.CreatedAt, &def.UpdatedAt)
	def.Kind = shared.PrincipalKind(kind)
	return def, err
}

var _ Repository = (*PGRepository)(nil)
