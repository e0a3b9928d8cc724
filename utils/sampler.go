// Package utils contains small shared helpers for the pose graph.
package utils

import "fmt"

// FixedRatioSampler answers Pulse with true such that the ratio of true
// answers to all answers tracks the configured ratio. It is
// deterministic, which keeps sampling-gated behavior reproducible.
type FixedRatioSampler struct {
	ratio      float64
	numPulses  int64
	numSamples int64
}

// NewFixedRatioSampler returns a sampler firing at the given ratio in
// [0, 1]. A ratio of 0 never fires; 1 always fires.
func NewFixedRatioSampler(ratio float64) *FixedRatioSampler {
	if ratio < 0 || ratio > 1 {
		panic(fmt.Sprintf("utils: sampling ratio %f outside [0, 1]", ratio))
	}
	return &FixedRatioSampler{ratio: ratio}
}

// Pulse counts a new event and reports whether it should be sampled.
func (s *FixedRatioSampler) Pulse() bool {
	s.numPulses++
	if float64(s.numSamples)/float64(s.numPulses) < s.ratio {
		s.numSamples++
		return true
	}
	return false
}

// DebugString describes the sampler state, for logging.
func (s *FixedRatioSampler) DebugString() string {
	return fmt.Sprintf("%d (%.2f%%)", s.numSamples, 100*float64(s.numSamples)/float64(s.numPulses))
}
