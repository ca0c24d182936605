package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/shared"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// DecisionRow is one persisted authorization decision.
type DecisionRow struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	RequiredRight string    `json:"required_right"`
	DepartmentIDs []int64   `json:"department_ids"`
	Decision      string    `json:"decision"`
	Escalated     bool      `json:"escalated"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// TimelineFilters narrows a decision timeline query.
type TimelineFilters struct {
	UserID    int64
	Decision  string
	Escalated *bool
	Since     time.Time
	Page      int
	PageSize  int
}

// Repository reads persisted decisions.
type Repository interface {
	Timeline(ctx context.Context, f TimelineFilters) ([]DecisionRow, int64, error)
}

type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

func (r *PGRepository) Timeline(ctx context.Context, f TimelineFilters) ([]DecisionRow, int64, error) {
	const q = `
		SELECT id, user_id, required_right, department_ids, decision, escalated, occurred_at,
		       COUNT(*) OVER () AS total
		FROM authz_decisions
		WHERE ($1 = 0 OR user_id = $1)
		  AND ($2 = '' OR decision = $2)
		  AND ($3::boolean IS NULL OR escalated = $3)
		  AND ($4::timestamptz IS NULL OR occurred_at >= $4)
		ORDER BY occurred_at DESC, id DESC
		LIMIT $5 OFFSET $6`

	var since any
	if !f.Since.IsZero() {
		since = f.Since
	}
	rows, err := r.pool.Query(ctx, q,
		f.UserID, f.Decision, f.Escalated, since, f.PageSize, (f.Page-1)*f.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: timeline query: %w", err)
	}
	defer rows.Close()

	var out []DecisionRow
	var total int64
	for rows.Next() {
		var row DecisionRow
		if err := rows.Scan(&row.ID, &row.UserID, &row.RequiredRight, &row.DepartmentIDs,
			&row.Decision, &row.Escalated, &row.OccurredAt, &total); err != nil {
			return nil, 0, fmt.Errorf("audit: scan decision: %w", err)
		}
		out = append(out, row)
	}
	return out, total, rows.Err()
}

// Service coordinates decision timeline reads.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline lists recent decisions, newest first, with paging.
func (s *Service) Timeline(ctx context.Context, f TimelineFilters) ([]DecisionRow, shared.Pagination, error) {
	verr := shared.NewValidationError()
	if f.Decision != "" && f.Decision != "grant" && f.Decision != "deny" {
		verr.Add("decision", "must be grant or deny")
	}
	if f.Page < 0 || f.PageSize < 0 {
		verr.Add("page", "paging values must not be negative")
	}
	if verr.HasErrors() {
		return nil, shared.Pagination{}, verr
	}

	if f.Page == 0 {
		f.Page = 1
	}
	if f.PageSize == 0 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > maxPageSize {
		f.PageSize = maxPageSize
	}

	rows, total, err := s.repo.Timeline(ctx, f)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return rows, shared.NewPagination(f.Page, f.PageSize, int(total)), nil
}
