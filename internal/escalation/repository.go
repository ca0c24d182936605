package escalation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

// Repository persists escalation records and admin memberships.
type Repository interface {
	Get(ctx context.Context, userID int64) (*Record, error)
	Upsert(ctx context.Context, rec *Record) error
	TouchEscalated(ctx context.Context, userID int64) error
	UpsertMembership(ctx context.Context, m AdminMembership) error
	DeactivateMembership(ctx context.Context, userID, departmentID int64) error
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

func (r *PGRepository) Get(ctx context.Context, userID int64) (*Record, error) {
	const q = `
		SELECT user_id, secret_hash, timeout_minutes, last_escalated_at, is_active, created_at, updated_at
		FROM escalation_records
		WHERE user_id = $1`

	var rec Record
	err := r.pool.QueryRow(ctx, q, userID).Scan(
		&rec.UserID, &rec.SecretHash, &rec.TimeoutMinutes,
		&rec.LastEscalatedAt, &rec.IsActive, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("escalation: get record: %w", err)
	}

	memberships, err := r.memberships(ctx, userID)
	if err != nil {
		return nil, err
	}
	rec.Memberships = memberships
	return &rec, nil
}

func (r *PGRepository) memberships(ctx context.Context, userID int64) ([]AdminMembership, error) {
	const q = `
		SELECT user_id, department_id, roles, is_primary, joined_at, is_active
		FROM admin_memberships
		WHERE user_id = $1
		ORDER BY department_id`

	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("escalation: list memberships: %w", err)
	}
	defer rows.Close()

	var out []AdminMembership
	for rows.Next() {
		var m AdminMembership
		if err := rows.Scan(&m.UserID, &m.DepartmentID, &m.Roles, &m.IsPrimary, &m.JoinedAt, &m.IsActive); err != nil {
			return nil, fmt.Errorf("escalation: scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *PGRepository) Upsert(ctx context.Context, rec *Record) error {
	const q = `
		INSERT INTO escalation_records (user_id, secret_hash, timeout_minutes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			secret_hash = EXCLUDED.secret_hash,
			timeout_minutes = EXCLUDED.timeout_minutes,
			is_active = EXCLUDED.is_active,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, q, rec.UserID, rec.SecretHash, rec.TimeoutMinutes, rec.IsActive); err != nil {
		return fmt.Errorf("escalation: upsert record: %w", err)
	}
	return nil
}

func (r *PGRepository) TouchEscalated(ctx context.Context, userID int64) error {
	const q = `
		UPDATE escalation_records
		SET last_escalated_at = now(), updated_at = now()
		WHERE user_id = $1`

	tag, err := r.pool.Exec(ctx, q, userID)
	if err != nil {
		return fmt.Errorf("escalation: touch record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *PGRepository) UpsertMembership(ctx context.Context, m AdminMembership) error {
	const q = `
		INSERT INTO admin_memberships (user_id, department_id, roles, is_primary, joined_at, is_active)
		VALUES ($1, $2, $3, $4, now(), true)
		ON CONFLICT (user_id, department_id) DO UPDATE SET
			roles = EXCLUDED.roles,
			is_primary = EXCLUDED.is_primary,
			is_active = true`

	if _, err := r.pool.Exec(ctx, q, m.UserID, m.DepartmentID, m.Roles, m.IsPrimary); err != nil {
		return fmt.Errorf("escalation: upsert membership: %w", err)
	}
	return nil
}

func (r *PGRepository) DeactivateMembership(ctx context.Context, userID, departmentID int64) error {
	const q = `
		UPDATE admin_memberships
		SET is_active = false
		WHERE user_id = $1 AND department_id = $2`

	tag, err := r.pool.Exec(ctx, q, userID, departmentID)
	if err != nil {
		return fmt.Errorf("escalation: deactivate membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
