package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridian-lms/meridian-lms/internal/directory"
	jobmetrics "github.com/meridian-lms/meridian-lms/internal/jobs"
	"github.com/meridian-lms/meridian-lms/internal/rights"
	"github.com/meridian-lms/meridian-lms/internal/roles"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ReferenceWarmupJob re-primes the redis reference caches so the first
// request after an invalidation does not pay the database round trip.
type ReferenceWarmupJob struct {
	rights    *rights.Service
	roles     *roles.Service
	directory *directory.Service
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
}

func NewReferenceWarmupJob(rightsSvc *rights.Service, rolesSvc *roles.Service, directorySvc *directory.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReferenceWarmupJob {
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &ReferenceWarmupJob{rights: rightsSvc, roles: rolesSvc, directory: directorySvc, logger: logger, metrics: metrics}
}

// Handle processes TaskReferenceWarmup tasks.
func (j *ReferenceWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("reference_warmup")
	var payload ReferenceWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}

	warm := func(name string, load func(context.Context) error) {
		if err := load(ctx); err != nil {
			j.logger.Warn("reference warmup", slog.String("collection", name), slog.Any("error", err))
		}
	}

	switch payload.Scope {
	case "", "all":
		warm("rights", func(ctx context.Context) error { _, err := j.rights.Catalog(ctx); return err })
		warm("roles", func(ctx context.Context) error { _, err := j.roles.Definitions(ctx); return err })
		warm("departments", func(ctx context.Context) error { _, err := j.directory.List(ctx); return err })
	case "rights":
		warm("rights", func(ctx context.Context) error { _, err := j.rights.Catalog(ctx); return err })
	case "roles":
		warm("roles", func(ctx context.Context) error { _, err := j.roles.Definitions(ctx); return err })
	case "departments":
		warm("departments", func(ctx context.Context) error { _, err := j.directory.List(ctx); return err })
	default:
		return tracker.End(asynq.SkipRetry)
	}

	j.logger.Info("reference warmup complete", slog.String("scope", payload.Scope))
	return tracker.End(nil)
}
