package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	PathRemote   = "remote"
	PathFallback = "fallback"
)

var (
	ScoringTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "match_scoring_total",
			Help: "Scoring requests by the path that produced the assessment",
		},
		[]string{"path", "reason"},
	)

	RemoteCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "match_remote_call_duration_seconds",
			Help:    "Duration of language model calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"outcome"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route and status code",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request latency in seconds",
		},
		[]string{"method", "route"},
	)

	InboxEmailsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbox_emails_processed_total",
			Help: "Recruiter emails handled by the inbox watcher",
		},
		[]string{"result"},
	)
)
