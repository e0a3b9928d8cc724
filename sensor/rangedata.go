// Package sensor defines the lidar and inertial measurement types
// ingested by the pose graph.
package sensor

import (
	"time"

	"github.com/golang/geo/r3"

	"github.com/viamrobotics/posegraph/spatialmath"
)

// RangeData is a single lidar scan in the tracking frame: the sensor
// origin at capture time, the points that returned, and the points
// along rays that did not.
type RangeData struct {
	Origin  r3.Vector
	Returns []r3.Vector
	Misses  []r3.Vector
}

// IMUData is one inertial sample.
type IMUData struct {
	Time               time.Time
	LinearAcceleration r3.Vector
	AngularVelocity    spatialmath.AngularVelocity
}
