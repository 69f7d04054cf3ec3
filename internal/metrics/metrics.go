package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casting_submissions_total",
			Help: "Submission pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	SubmissionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "casting_submission_duration_seconds",
			Help:    "Duration of a submission pipeline run in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StagedFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casting_staged_files_total",
			Help: "Media items staged, by kind",
		},
		[]string{"kind"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "casting_notifications_total",
			Help: "Notifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "casting_active_sessions",
			Help: "Number of live wizard sessions",
		},
	)
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
