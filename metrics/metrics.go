package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Submission outcomes.
const (
	OutcomeOK         = "ok"
	OutcomeInvalidURL = "invalid_url"
	OutcomeFailed     = "failed"
)

// Batch job outcomes.
const (
	BatchProcessed = "processed"
	BatchSkipped   = "skipped"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapeform_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrapeform_http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapeform_submissions_total",
			Help: "Builder submissions by outcome.",
		},
		[]string{"outcome"},
	)

	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scrapeform_submission_duration_seconds",
			Help:    "Round trip of a scrape job submission to the backend.",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	BatchJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapeform_batch_jobs_total",
			Help: "Batch submitter URLs by outcome.",
		},
		[]string{"outcome"},
	)
)
