package audit

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-lms/meridian-lms/internal/authz"
)

// Recorder persists authorization decisions into authz_decisions. It is a
// pure sink: a failed insert is logged and dropped, never surfaced to the
// decision that produced it.
type Recorder struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewRecorder(pool *pgxpool.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

var _ authz.Sink = (*Recorder)(nil)

func (r *Recorder) Record(ctx context.Context, evt authz.Event) {
	const q = `
		INSERT INTO authz_decisions (user_id, required_right, department_ids, decision, escalated, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.pool.Exec(ctx, q,
		evt.UserID, evt.Right, evt.DepartmentIDs, evt.Decision, evt.Escalated, evt.OccurredAt)
	if err != nil {
		r.logger.Error("audit decision insert failed",
			slog.Int64("user_id", evt.UserID),
			slog.Any("error", err))
	}
}
