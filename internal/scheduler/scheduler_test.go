package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextSlot(t *testing.T) {
	start := time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC)
	var now time.Time
	s := New(time.Minute, nil)
	s.now = func() time.Time { return now }

	t.Run("on time", func(t *testing.T) {
		now = start.Add(10 * time.Second)
		assert.Equal(t, start.Add(time.Minute), s.nextSlot(start))
	})

	t.Run("finished exactly on the next slot", func(t *testing.T) {
		now = start.Add(time.Minute)
		assert.Equal(t, start.Add(time.Minute), s.nextSlot(start))
	})

	t.Run("overran several slots", func(t *testing.T) {
		now = start.Add(150 * time.Second)
		next := s.nextSlot(start)
		assert.Equal(t, start.Add(2*time.Minute), next)

		// The following run is back on the grid.
		now = start.Add(155 * time.Second)
		assert.Equal(t, start.Add(3*time.Minute), s.nextSlot(next))
	})
}

func TestNewDefaultsPeriod(t *testing.T) {
	assert.Equal(t, DefaultPeriod, New(0, nil).period)
}

func TestRun_StartsImmediatelyAndRepeats(t *testing.T) {
	var (
		mu   sync.Mutex
		runs []time.Time
	)
	s := New(20*time.Millisecond, func(ctx context.Context) {
		mu.Lock()
		runs = append(runs, time.Now())
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	started := time.Now()
	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(runs), 3)
	assert.Less(t, runs[0].Sub(started), 15*time.Millisecond)
}

func TestRun_NeverOverlapsAndCatchesUpAfterOverrun(t *testing.T) {
	var (
		inFlight int32
		overlap  int32
		calls    int32
		mu       sync.Mutex
		starts   []time.Time
		ends     []time.Time
	)
	s := New(20*time.Millisecond, func(ctx context.Context) {
		if atomic.AddInt32(&inFlight, 1) > 1 {
			atomic.StoreInt32(&overlap, 1)
		}
		defer atomic.AddInt32(&inFlight, -1)

		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()

		if atomic.AddInt32(&calls, 1) == 1 {
			time.Sleep(70 * time.Millisecond)
		}

		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	s.Run(ctx)

	assert.Zero(t, atomic.LoadInt32(&overlap))

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(starts), 2)
	// The run after the overrun starts right away instead of waiting a period.
	assert.Less(t, starts[1].Sub(ends[0]), 10*time.Millisecond)
	// Missed slots are coalesced: no burst of back-to-back runs.
	if len(starts) >= 3 {
		assert.GreaterOrEqual(t, starts[2].Sub(starts[1]), 5*time.Millisecond)
	}
}

func TestRun_StopsWhenCanceled(t *testing.T) {
	var calls int32
	s := New(time.Hour, func(ctx context.Context) { atomic.AddInt32(&calls, 1) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
