package executor

import "github.com/prometheus/client_golang/prometheus"

// Metric label values for task status.
const (
	statusSucceeded  = "succeeded"
	statusFailed     = "failed"
	statusSuppressed = "suppressed"
)

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procpool_tasks_total",
			Help: "Total number of tasks completed by worker processes, by status.",
		},
		[]string{"status"},
	)

	taskDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "procpool_task_duration_seconds",
			Help:    "Time a task spent running inside its worker process, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)

	batchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procpool_batches_total",
			Help: "Total number of batches run, by final state.",
		},
		[]string{"state"},
	)

	activeWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "procpool_active_workers",
			Help: "Number of currently running worker processes.",
		},
	)

	poolStartDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "procpool_pool_start_seconds",
			Help:    "Duration from spawning the worker processes to every worker being ready, in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(tasksTotal)
	prometheus.MustRegister(taskDuration)
	prometheus.MustRegister(batchesTotal)
	prometheus.MustRegister(activeWorkers)
	prometheus.MustRegister(poolStartDuration)

	for _, status := range []string{statusSucceeded, statusFailed, statusSuppressed} {
		tasksTotal.WithLabelValues(status)
	}
	for _, state := range []State{StateCompleted, StateTimedOut, StateInterrupted, StateFailed} {
		batchesTotal.WithLabelValues(state.String())
	}
}

func observeOutcome(o Outcome) {
	status := statusSucceeded
	switch {
	case o.Suppressed:
		status = statusSuppressed
	case o.Err != nil:
		status = statusFailed
	}
	tasksTotal.WithLabelValues(status).Inc()
	taskDuration.Observe(o.Duration.Seconds())
}
