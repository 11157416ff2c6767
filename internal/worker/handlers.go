package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"newsbot/internal/ingest"
	"newsbot/internal/scheduler"
	"newsbot/pkg/tasks"
)

// CycleRunner runs one ingestion cycle.
type CycleRunner interface {
	Run(ctx context.Context) (ingest.Result, error)
}

type TaskHandler struct {
	cycle CycleRunner
}

func NewTaskHandler(cycle CycleRunner) *TaskHandler {
	return &TaskHandler{cycle: cycle}
}

// HandleIngestCycleTask runs a cycle. Failures are never retried by asynq.
func (h *TaskHandler) HandleIngestCycleTask(ctx context.Context, t *asynq.Task) error {
	taskID, _ := asynq.GetTaskID(ctx)
	log.Printf("Running ingest task %s", taskID)

	res, err := h.cycle.Run(ctx)
	if err != nil {
		return fmt.Errorf("ingest task %s: %w: %w", taskID, err, asynq.SkipRetry)
	}

	log.Printf("Finished ingest task %s in %v, %d new articles", taskID, res.Duration, len(res.Inserted))
	return nil
}

// EnqueueJob returns a scheduler job that enqueues one ingest task per slot.
// A slot that arrives while the previous task is still queued or running is
// dropped, so cycles never overlap.
func EnqueueJob(client tasks.TaskEnqueuer, period time.Duration) scheduler.Job {
	opts := tasks.IngestCycleOptions(period)
	return func(ctx context.Context) {
		info, err := client.EnqueueContext(ctx, tasks.NewIngestCycleTask(), opts...)
		switch {
		case errors.Is(err, asynq.ErrDuplicateTask):
			log.Println("Previous ingest task still pending, skipping this slot")
		case err != nil:
			log.Printf("Failed to enqueue ingest task: %v", err)
		default:
			log.Printf("Enqueued ingest task %s on queue %s", info.ID, info.Queue)
		}
	}
}
