package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "relax3d",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			// solver phases run for minutes to hours
			Buckets: []float64{1, 2, 5, 10, 30, 60, 300, 900, 1800, 3600, 7200},
		},
		[]string{"pipeline", "stage", "outcome"},
	)

	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "relax3d",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of finished runs by terminal status",
		},
		[]string{"pipeline", "status"},
	)

	solverCPU = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relax3d",
			Subsystem: "solver",
			Name:      "cpu_percent",
			Help:      "Most recent CPU sample of the solver process",
		},
	)

	activeRuns = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "relax3d",
			Subsystem: "pipeline",
			Name:      "active_runs",
			Help:      "Runs currently in progress (0 or 1)",
		},
	)
)

func init() {
	prometheus.MustRegister(stageDuration, runsTotal, solverCPU, activeRuns)
}

func observeStage(kind Kind, stage, outcome string, d time.Duration) {
	stageDuration.WithLabelValues(string(kind), stage, outcome).Observe(d.Seconds())
}
