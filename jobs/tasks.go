package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReferenceWarmup re-primes the reference-data caches.
	TaskReferenceWarmup = "reference:warmup"
	// TaskEscalationSweep removes lapsed escalation sessions.
	TaskEscalationSweep = "escalation:sweep"
)

// ReferenceWarmupPayload selects which reference collections to warm.
type ReferenceWarmupPayload struct {
	Scope string `json:"scope"`
}

// NewReferenceWarmupTask constructs the warmup task.
func NewReferenceWarmupTask(scope string) (*asynq.Task, error) {
	data, err := json.Marshal(ReferenceWarmupPayload{Scope: scope})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReferenceWarmup, data), nil
}

// EscalationSweepPayload bounds one sweep run.
type EscalationSweepPayload struct {
	BatchSize int `json:"batch_size"`
}

// NewEscalationSweepTask constructs the sweep task.
func NewEscalationSweepTask(batchSize int) (*asynq.Task, error) {
	data, err := json.Marshal(EscalationSweepPayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskEscalationSweep, data), nil
}
