// Package posegraph maintains a globally consistent estimate of scan
// and submap poses across one or more trajectories by accumulating
// relative-pose constraints and periodically solving a non-linear
// optimization over them in the background.
package posegraph

import (
	"github.com/viamrobotics/posegraph/posegraph/constraintbuilder"
	"github.com/viamrobotics/posegraph/posegraph/optimization"
)

// Options configure the pose graph.
type Options struct {
	// OptimizeEveryNScans triggers a background optimization once more
	// than this many scans have arrived since the last one. Zero
	// disables periodic optimization.
	OptimizeEveryNScans int

	// MaxNumFinalIterations caps solver iterations during
	// RunFinalOptimization.
	MaxNumFinalIterations int

	// GlobalSamplingRatio gates expensive cross-trajectory matches,
	// per trajectory, in [0, 1].
	GlobalSamplingRatio float64

	// ConstraintBuilder configures the loop closure search.
	ConstraintBuilder constraintbuilder.Options

	// Optimization configures the solver state.
	Optimization optimization.Options
}

// DefaultOptions returns production defaults.
func DefaultOptions() Options {
	return Options{
		OptimizeEveryNScans:   90,
		MaxNumFinalIterations: 200,
		GlobalSamplingRatio:   0.003,
		ConstraintBuilder:     constraintbuilder.DefaultOptions(),
		Optimization:          optimization.Options{MaxNumIterations: 50},
	}
}
