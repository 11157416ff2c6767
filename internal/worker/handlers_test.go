package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"newsbot/internal/ingest"
	"newsbot/internal/models"
	"newsbot/internal/source"
	"newsbot/internal/test"
	"newsbot/pkg/tasks"
)

type fakeCycle struct {
	runs int
	err  error
}

func (f *fakeCycle) Run(ctx context.Context) (ingest.Result, error) {
	f.runs++
	if f.err != nil {
		return ingest.Result{}, f.err
	}
	return ingest.Result{Inserted: []models.Article{{ID: "1"}}}, nil
}

func TestHandleIngestCycleTask(t *testing.T) {
	cycle := &fakeCycle{}
	handler := NewTaskHandler(cycle)

	err := handler.HandleIngestCycleTask(context.Background(), tasks.NewIngestCycleTask())
	require.NoError(t, err)
	assert.Equal(t, 1, cycle.runs)
}

func TestHandleIngestCycleTask_FailureSkipsRetry(t *testing.T) {
	cycle := &fakeCycle{err: fmt.Errorf("fetch candidates: %w", source.ErrSourceUnavailable)}
	handler := NewTaskHandler(cycle)

	err := handler.HandleIngestCycleTask(context.Background(), tasks.NewIngestCycleTask())
	assert.ErrorIs(t, err, asynq.SkipRetry)
	assert.ErrorIs(t, err, source.ErrSourceUnavailable)
}

func TestEnqueueJob(t *testing.T) {
	client := &test.MockTaskEnqueuer{}

	EnqueueJob(client, time.Minute)(context.Background())

	require.Len(t, client.EnqueuedTasks, 1)
	assert.Equal(t, tasks.TypeIngestCycle, client.EnqueuedTasks[0].Type())
	assert.Len(t, client.Options[0], 3)
}

func TestEnqueueJob_OverrunningCycleIsNotCutOff(t *testing.T) {
	client := &test.MockTaskEnqueuer{}
	period := 10 * time.Minute

	EnqueueJob(client, period)(context.Background())

	require.Len(t, client.Options, 1)
	var timeout time.Duration
	var unique, maxRetry bool
	for _, opt := range client.Options[0] {
		switch opt.Type() {
		case asynq.TimeoutOpt:
			timeout = opt.Value().(time.Duration)
		case asynq.UniqueOpt:
			unique = true
			assert.Equal(t, period, opt.Value())
		case asynq.MaxRetryOpt:
			maxRetry = true
			assert.Equal(t, 0, opt.Value())
		}
	}
	assert.True(t, unique)
	assert.True(t, maxRetry)
	assert.Greater(t, timeout, period)
	assert.Equal(t, tasks.MaxCycleDuration, timeout)
}

func TestEnqueueJob_DuplicateIsTolerated(t *testing.T) {
	client := &test.MockTaskEnqueuer{Err: asynq.ErrDuplicateTask}

	assert.NotPanics(t, func() { EnqueueJob(client, time.Minute)(context.Background()) })
	assert.Empty(t, client.EnqueuedTasks)
}

func TestEnqueueJob_BrokerDown(t *testing.T) {
	client := &test.MockTaskEnqueuer{Err: errors.New("dial tcp 127.0.0.1:6379: connection refused")}

	assert.NotPanics(t, func() { EnqueueJob(client, time.Minute)(context.Background()) })
}
