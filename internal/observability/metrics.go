package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "homeservices"

var (
	SearchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "searches_total", Help: "Provider searches by outcome"},
		[]string{"outcome"},
	)
	SearchLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_latency_seconds",
		Help:      "Provider search latency seconds",
		Buckets:   prometheus.DefBuckets,
	})
	SearchCandidates = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_candidates",
		Help:      "Candidates returned per search",
		Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
	})

	BookingTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_transitions_total", Help: "Booking lifecycle events by outcome"},
		[]string{"event", "outcome"},
	)
	JobsMaterializedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "jobs_materialized_total", Help: "Jobs created from accepted bookings",
	})
	RatingsAppliedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "ratings_applied_total", Help: "Ratings folded into provider statistics",
	})
	LocationUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "location_updates_total", Help: "Provider location updates",
	})

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "notifications_total", Help: "Notifications by outcome"},
		[]string{"outcome"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "route", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Outcome labels shared by the counters above.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeSent     = "sent"
	OutcomeDropped  = "dropped"
	OutcomeFailed   = "failed"
)
