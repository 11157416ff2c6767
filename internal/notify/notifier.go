// Package notify fans newly discovered articles out to every subscriber.
package notify

import (
	"context"
	"errors"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"newsbot/internal/metrics"
	"newsbot/internal/models"
)

var (
	// ErrTransportUnavailable means the messaging transport as a whole is
	// down. It aborts the remaining sends of the current fan-out.
	ErrTransportUnavailable = errors.New("transport unavailable")

	// ErrDeliveryFailed is a routine per-recipient failure, e.g. a user who
	// blocked the bot.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// Transport delivers a single message to a single subscriber.
type Transport interface {
	Send(ctx context.Context, subscriberID int64, text, link string) error
}

// Formatter renders the notification text and optional link for an article.
type Formatter func(a models.Article) (text, link string)

// Failure describes one (subscriber, article) pair that was not delivered.
type Failure struct {
	SubscriberID int64
	ArticleID    string
	Err          error
}

// Report summarizes a fan-out. Skipped counts pairs that were never
// attempted because the transport went down or the context was canceled.
type Report struct {
	Delivered int
	Failed    int
	Skipped   int
	Failures  []Failure
}

type Notifier struct {
	transport Transport
	format    Formatter
	limiter   *rate.Limiter
	workers   int
}

// New creates a Notifier. limiter caps the overall send rate and may be nil;
// workers bounds how many subscribers are served at the same time.
func New(transport Transport, format Formatter, limiter *rate.Limiter, workers int) *Notifier {
	if format == nil {
		format = func(a models.Article) (string, string) { return a.Title, a.URL }
	}
	if workers < 1 {
		workers = 1
	}
	return &Notifier{
		transport: transport,
		format:    format,
		limiter:   limiter,
		workers:   workers,
	}
}

// NotifyAll attempts one delivery per (subscriber, article) pair. Each
// subscriber receives the articles in the given order, so callers pass them
// oldest first. Per-recipient failures are collected in the report; only a
// transport outage or cancellation is returned as an error.
func (n *Notifier) NotifyAll(ctx context.Context, articles []models.Article, subscriberIDs []int64) (Report, error) {
	var report Report
	if len(articles) == 0 || len(subscriberIDs) == 0 {
		return report, nil
	}

	var mu sync.Mutex
	record := func(delivered, skipped int, failure *Failure) {
		mu.Lock()
		defer mu.Unlock()
		report.Delivered += delivered
		report.Skipped += skipped
		if failure != nil {
			report.Failed++
			report.Failures = append(report.Failures, *failure)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.workers)

	for _, subscriberID := range subscriberIDs {
		g.Go(func() error {
			for i, a := range articles {
				if gctx.Err() != nil {
					record(0, len(articles)-i, nil)
					return nil
				}
				if n.limiter != nil {
					if err := n.limiter.Wait(gctx); err != nil {
						record(0, len(articles)-i, nil)
						return nil
					}
				}

				text, link := n.format(a)
				err := n.transport.Send(gctx, subscriberID, text, link)
				if err == nil {
					record(1, 0, nil)
					metrics.NotificationsTotal.WithLabelValues(metrics.OutcomeDelivered).Inc()
					continue
				}

				// A send that failed because the fan-out was aborted under it
				// never reached the transport's verdict.
				if gctx.Err() != nil {
					record(0, len(articles)-i, nil)
					return nil
				}
				metrics.NotificationsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
				record(0, 0, &Failure{SubscriberID: subscriberID, ArticleID: a.ID, Err: err})
				if errors.Is(err, ErrTransportUnavailable) {
					log.Printf("Transport unavailable while notifying subscriber %d about article %s: %v", subscriberID, a.ID, err)
					record(0, len(articles)-i-1, nil)
					return err
				}
				log.Printf("Failed to notify subscriber %d about article %s: %v", subscriberID, a.ID, err)
			}
			return nil
		})
	}

	err := g.Wait()
	if report.Skipped > 0 {
		metrics.NotificationsTotal.WithLabelValues(metrics.OutcomeSkipped).Add(float64(report.Skipped))
	}
	if err != nil {
		return report, err
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}
