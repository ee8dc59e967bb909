package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "styleforge",
		Name:      "jobs_processed_total",
		Help:      "Total number of jobs processed, by queue and outcome",
	}, []string{"queue", "outcome"})

	ProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "styleforge",
		Name:      "provider_attempts_total",
		Help:      "Total provider attempts, by provider and outcome",
	}, []string{"provider", "outcome"})

	ProviderCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "styleforge",
		Name:      "provider_call_duration_seconds",
		Help:      "Duration of external provider calls",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"provider", "capability"})

	LearningPasses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "styleforge",
		Name:      "learning_passes_total",
		Help:      "Learning passes, by outcome (updated, insufficient_signal, noop)",
	}, []string{"outcome"})

	GenerationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "styleforge",
		Name:      "generations_created_total",
		Help:      "Total generation records persisted",
	})
)
