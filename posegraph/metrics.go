package posegraph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricScansAdded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posegraph_scans_added_total",
		Help: "Scans ingested across all trajectories.",
	})

	metricConstraints = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "posegraph_constraints_total",
		Help: "Constraints accumulated, by kind.",
	}, []string{"tag"})

	metricOptimizations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "posegraph_optimizations_total",
		Help: "Background and final optimizations run.",
	})

	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "posegraph_work_queue_depth",
		Help: "Work items buffered while an optimization is pending.",
	})
)
