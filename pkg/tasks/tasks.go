package tasks

import (
	"time"

	"github.com/hibiken/asynq"
)

const TypeIngestCycle = "news:ingest"

// MaxCycleDuration bounds one ingestion cycle. It is far above any fetch
// period so that a slow cycle finishes its fan-out instead of being cut off.
const MaxCycleDuration = 24 * time.Hour

// NewIngestCycleTask builds the task that runs one ingestion cycle. It has no
// payload so that every slot maps to the same uniqueness key.
func NewIngestCycleTask() *asynq.Task {
	return asynq.NewTask(TypeIngestCycle, nil)
}

// IngestCycleOptions keeps at most one ingest task queued per period. A
// cycle that overruns its period keeps running; the next task waits behind
// it on the single worker. A failed cycle is not retried; the next slot is
// the retry.
func IngestCycleOptions(period time.Duration) []asynq.Option {
	return []asynq.Option{
		asynq.Unique(period),
		asynq.MaxRetry(0),
		asynq.Timeout(MaxCycleDuration),
	}
}
