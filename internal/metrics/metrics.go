package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsbot_cycles_total",
			Help: "Total number of ingestion cycles by outcome",
		},
		[]string{"status"},
	)

	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newsbot_cycle_duration_seconds",
			Help:    "Ingestion cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ArticlesInserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsbot_articles_inserted_total",
			Help: "Total number of new articles persisted",
		},
	)

	MalformedCandidates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newsbot_malformed_candidates_total",
			Help: "Total number of scraped candidates dropped as malformed",
		},
	)

	// Fan-out metrics
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsbot_notifications_total",
			Help: "Total number of notification attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Subscriber-facing metrics
	PageRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsbot_page_requests_total",
			Help: "Total number of article page requests by channel",
		},
		[]string{"channel"},
	)
)

const (
	StatusOK                = "ok"
	StatusSourceUnavailable = "source_unavailable"
	StatusStoreUnavailable  = "store_unavailable"
	StatusCanceled          = "canceled"

	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"

	ChannelTelegram = "telegram"
	ChannelHTTP     = "http"
)
