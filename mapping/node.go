package mapping

import (
	"time"

	"github.com/viamrobotics/posegraph/sensor"
	"github.com/viamrobotics/posegraph/spatialmath"
)

// ConstantData is the immutable part of a trajectory node. Records are
// long-lived and shared by flat scan index with the constraint builder.
type ConstantData struct {
	Time             time.Time
	RangeData        sensor.CompressedRangeData
	TrajectoryID     int
	TrackingToSensor spatialmath.Rigid3
}

// TrajectoryNode is one scan in the pose graph: its immutable data plus
// the current best pose estimate in the global frame. Pose is mutated
// only by the optimization driver.
type TrajectoryNode struct {
	ConstantData *ConstantData
	Pose         spatialmath.Rigid3
}
