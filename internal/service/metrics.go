package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// recomputeDuration tracks projection run latency by trigger.
	recomputeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tempo_recompute_duration_seconds",
		Help:    "Projection recompute duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"trigger"})

	// projectionWrites counts task projections written to storage.
	projectionWrites = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tempo_projection_writes_total",
		Help: "Task projections persisted after a recompute",
	})

	// projectionWarnings counts tasks the engine could not project.
	projectionWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tempo_projection_warnings_total",
		Help: "Tasks skipped by the projection engine",
	})

	// sweepProjects counts sweep outcomes per project.
	sweepProjects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tempo_sweep_projects_total",
		Help: "Projects processed by the stale-project sweep by result",
	}, []string{"result"})

	// lockWait tracks per-project lock acquisition latency.
	lockWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tempo_lock_wait_seconds",
		Help:    "Time spent waiting for a project lock",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}, []string{"result"})

	// writeConflicts counts structural writes that lost a race.
	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tempo_write_conflicts_total",
		Help: "Structural writes rejected with a retryable conflict",
	}, []string{"use_case"})
)

// ObserveLockWait records one lock acquisition attempt. It matches the
// lock.WithWaitObserver callback signature.
func ObserveLockWait(_ string, waited time.Duration, acquired bool) {
	result := "acquired"
	if !acquired {
		result = "timeout"
	}
	lockWait.WithLabelValues(result).Observe(waited.Seconds())
}
