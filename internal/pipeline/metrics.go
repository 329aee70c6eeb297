package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "frontier_runs_processed_total",
		Help: "Post-processing runs finished, by terminal status.",
	}, []string{"status"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frontier_run_duration_seconds",
		Help:    "Wall time of the merge/rank/frontier pipeline per run.",
		Buckets: prometheus.DefBuckets,
	})

	frontierSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "frontier_points_per_run",
		Help:    "Number of Pareto-optimal ligands per completed run.",
		Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
	})
)
