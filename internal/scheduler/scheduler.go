// Package scheduler runs a job at a fixed rate, one run at a time.
package scheduler

import (
	"context"
	"log"
	"time"
)

// DefaultPeriod is the polling period used when none is configured.
const DefaultPeriod = 60 * time.Second

// Job is one unit of scheduled work. It should return promptly once ctx is
// canceled.
type Job func(ctx context.Context)

// Scheduler starts Job on the grid start, start+period, start+2*period, ...
// Runs never overlap. When a run overruns its slot the next run starts right
// after it, and the missed slots are coalesced into that single run.
type Scheduler struct {
	period time.Duration
	job    Job
	now    func() time.Time
}

func New(period time.Duration, job Job) *Scheduler {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Scheduler{period: period, job: job, now: time.Now}
}

// Run executes the job immediately and then on every tick until ctx is
// canceled. It returns after the in-flight run has finished.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Printf("Scheduler starting, period %s", s.period)
	next := s.now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		if wait := next.Sub(s.now()); wait > 0 {
			timer.Reset(wait)
			select {
			case <-ctx.Done():
				log.Println("Scheduler stopped")
				return ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			log.Println("Scheduler stopped")
			return err
		}

		s.job(ctx)

		next = s.nextSlot(next)
	}
}

// nextSlot returns the start of the run that follows the one scheduled at
// prev. If the grid slot after prev has already passed, it returns the
// latest passed slot so the next run starts immediately.
func (s *Scheduler) nextSlot(prev time.Time) time.Time {
	next := prev.Add(s.period)
	now := s.now()
	if next.After(now) {
		return next
	}
	missed := now.Sub(next) / s.period
	if missed > 0 {
		log.Printf("Scheduler overran by %d period(s), running immediately", missed)
	}
	return next.Add(missed * s.period)
}
