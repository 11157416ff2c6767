// Package ingest runs one polling pass: fetch candidates, persist the new
// ones and notify subscribers about them.
package ingest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"newsbot/internal/metrics"
	"newsbot/internal/models"
	"newsbot/internal/notify"
)

type Source interface {
	Fetch(ctx context.Context) ([]models.Candidate, error)
}

type Store interface {
	InsertNew(ctx context.Context, articles []models.Article) ([]models.Article, error)
}

type Subscribers interface {
	AllSubscriberIDs(ctx context.Context) ([]int64, error)
}

type Notifier interface {
	NotifyAll(ctx context.Context, articles []models.Article, subscriberIDs []int64) (notify.Report, error)
}

// Publisher receives every batch of newly persisted articles.
type Publisher interface {
	PublishArticles(ctx context.Context, articles []models.Article) error
}

// Result describes a finished cycle.
type Result struct {
	ID         string
	StartedAt  time.Time
	Duration   time.Duration
	Candidates int
	Malformed  int
	Inserted   []models.Article
	Notify     notify.Report
	// NotifyErr is set when fan-out was cut short. It does not fail the cycle.
	NotifyErr error
}

type Cycle struct {
	source      Source
	store       Store
	subscribers Subscribers
	notifier    Notifier
	publisher   Publisher
}

func NewCycle(source Source, store Store, subscribers Subscribers, notifier Notifier) *Cycle {
	return &Cycle{
		source:      source,
		store:       store,
		subscribers: subscribers,
		notifier:    notifier,
	}
}

// WithPublisher sets an optional sink for newly persisted articles.
func (c *Cycle) WithPublisher(p Publisher) *Cycle {
	c.publisher = p
	return c
}

// Run executes one cycle. Articles are always persisted before any
// notification about them is sent. An error means the cycle failed before
// anything was notified; notification problems are reported in the Result.
func (c *Cycle) Run(ctx context.Context) (Result, error) {
	res := Result{ID: uuid.NewString(), StartedAt: time.Now()}
	log.Printf("Cycle %s: fetching candidates", res.ID)

	candidates, err := c.source.Fetch(ctx)
	if err != nil {
		c.finish(&res, metrics.StatusSourceUnavailable)
		log.Printf("Cycle %s: failed to fetch candidates: %v", res.ID, err)
		return res, fmt.Errorf("cycle %s: fetch candidates: %w", res.ID, err)
	}
	res.Candidates = len(candidates)

	batch := make([]models.Article, 0, len(candidates))
	for _, cand := range candidates {
		a, err := ParseCandidate(cand)
		if err != nil {
			res.Malformed++
			metrics.MalformedCandidates.Inc()
			log.Printf("Cycle %s: dropping candidate %q: %v", res.ID, cand.URL, err)
			continue
		}
		batch = append(batch, a)
	}

	if err := ctx.Err(); err != nil {
		c.finish(&res, metrics.StatusCanceled)
		return res, fmt.Errorf("cycle %s: %w", res.ID, err)
	}

	inserted, err := c.store.InsertNew(ctx, batch)
	if err != nil {
		c.finish(&res, metrics.StatusStoreUnavailable)
		log.Printf("Cycle %s: failed to persist articles: %v", res.ID, err)
		return res, fmt.Errorf("cycle %s: persist articles: %w", res.ID, err)
	}
	sort.SliceStable(inserted, func(i, j int) bool { return inserted[i].Before(inserted[j]) })
	res.Inserted = inserted
	metrics.ArticlesInserted.Add(float64(len(inserted)))

	if len(inserted) > 0 {
		c.notify(ctx, &res)
		if c.publisher != nil {
			if err := c.publisher.PublishArticles(ctx, inserted); err != nil {
				log.Printf("Cycle %s: failed to publish article events: %v", res.ID, err)
			}
		}
	}

	c.finish(&res, metrics.StatusOK)
	log.Printf("Cycle %s: candidates=%d malformed=%d inserted=%d delivered=%d failed=%d skipped=%d",
		res.ID, res.Candidates, res.Malformed, len(res.Inserted), res.Notify.Delivered, res.Notify.Failed, res.Notify.Skipped)
	return res, nil
}

func (c *Cycle) notify(ctx context.Context, res *Result) {
	ids, err := c.subscribers.AllSubscriberIDs(ctx)
	if err != nil {
		res.NotifyErr = fmt.Errorf("list subscribers: %w", err)
		log.Printf("Cycle %s: %d new articles stored but subscribers could not be listed: %v", res.ID, len(res.Inserted), err)
		return
	}

	report, err := c.notifier.NotifyAll(ctx, res.Inserted, ids)
	res.Notify = report
	if err != nil {
		res.NotifyErr = err
		log.Printf("Cycle %s: notification fan-out aborted: %v", res.ID, err)
	}
}

func (c *Cycle) finish(res *Result, status string) {
	res.Duration = time.Since(res.StartedAt)
	metrics.CyclesTotal.WithLabelValues(status).Inc()
	metrics.CycleDuration.Observe(res.Duration.Seconds())
}
