package mapping

import (
	"sync"

	"go.uber.org/atomic"

	"github.com/viamrobotics/posegraph/spatialmath"
)

// Submap is an opaque handle to a locally-consistent accumulation of
// scans owned by the front-end. The pose graph compares handles by
// identity and never outlives the front-end's ownership of them.
type Submap interface {
	// LocalPose is the submap's frame in local coordinates. It is
	// constant for the lifetime of the submap.
	LocalPose() spatialmath.Rigid3

	// Finished reports whether the submap is complete and will receive
	// no further scans. The transition is one-way.
	Finished() bool
}

// Trajectory is an opaque handle for one moving platform's submap
// collection. Handles are compared by identity.
type Trajectory interface {
	// Submap returns the trajectory's submap at the given index.
	Submap(index int) Submap
}

// BasicSubmap is a minimal Submap for front-ends that track only poses.
type BasicSubmap struct {
	localPose spatialmath.Rigid3
	finished  atomic.Bool
}

// NewBasicSubmap returns an unfinished submap at the given local pose.
func NewBasicSubmap(localPose spatialmath.Rigid3) *BasicSubmap {
	return &BasicSubmap{localPose: localPose}
}

// LocalPose returns the submap's local frame.
func (s *BasicSubmap) LocalPose() spatialmath.Rigid3 {
	return s.localPose
}

// Finished reports whether the submap has been finished.
func (s *BasicSubmap) Finished() bool {
	return s.finished.Load()
}

// Finish marks the submap as complete. It panics if called twice.
func (s *BasicSubmap) Finish() {
	if !s.finished.CompareAndSwap(false, true) {
		panic("mapping: submap finished twice")
	}
}

// BasicTrajectory is a minimal Trajectory that appends BasicSubmaps.
type BasicTrajectory struct {
	mu      sync.Mutex
	submaps []*BasicSubmap
}

// NewBasicTrajectory returns an empty trajectory.
func NewBasicTrajectory() *BasicTrajectory {
	return &BasicTrajectory{}
}

// AppendSubmap creates a new unfinished submap at the given local pose
// and appends it to the trajectory.
func (t *BasicTrajectory) AppendSubmap(localPose spatialmath.Rigid3) *BasicSubmap {
	t.mu.Lock()
	defer t.mu.Unlock()
	submap := NewBasicSubmap(localPose)
	t.submaps = append(t.submaps, submap)
	return submap
}

// Submap returns the submap at the given index.
func (t *BasicTrajectory) Submap(index int) Submap {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.submaps[index]
}

// Len returns the number of submaps in the trajectory.
func (t *BasicTrajectory) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.submaps)
}
