package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-lms/meridian-lms/internal/escalation"
	jobmetrics "github.com/meridian-lms/meridian-lms/internal/jobs"
)

// EscalationSweepJob deletes escalation sessions whose computed window has
// lapsed. Redis TTLs already expire abandoned tokens; the sweep also covers
// sessions whose record timeout was shortened after they were issued.
type EscalationSweepJob struct {
	client  *redis.Client
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

func NewEscalationSweepJob(client *redis.Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *EscalationSweepJob {
	if metrics == nil {
		metrics = defaultJobMetrics
	}
	return &EscalationSweepJob{client: client, logger: logger, metrics: metrics, now: time.Now}
}

// Handle processes TaskEscalationSweep tasks.
func (j *EscalationSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("escalation_sweep")
	var payload EscalationSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	batch := int64(payload.BatchSize)
	if batch <= 0 {
		batch = 100
	}

	var swept int
	iter := j.client.Scan(ctx, 0, "escalation:*", batch).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := j.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		var sess escalation.Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			// Unreadable entries are junk; drop them.
			if err := j.client.Del(ctx, key).Err(); err != nil {
				j.logger.Warn("escalation sweep delete", slog.String("key", key), slog.Any("error", err))
			}
			swept++
			continue
		}
		if sess.ValidAt(j.now()) {
			continue
		}
		if err := j.client.Del(ctx, key).Err(); err != nil {
			j.logger.Warn("escalation sweep delete", slog.String("key", key), slog.Any("error", err))
			continue
		}
		swept++
	}
	if err := iter.Err(); err != nil {
		return tracker.End(err)
	}

	j.metrics.AddSweptSessions(swept)
	j.logger.Info("escalation sweep complete", slog.Int("swept", swept))
	return tracker.End(nil)
}
