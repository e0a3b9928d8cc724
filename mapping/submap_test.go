package mapping

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viamrobotics/posegraph/spatialmath"
)

func TestBasicSubmapFinish(t *testing.T) {
	submap := NewBasicSubmap(spatialmath.NewRigid3Translation(r3.Vector{X: 1}))
	test.That(t, submap.Finished(), test.ShouldBeFalse)
	submap.Finish()
	test.That(t, submap.Finished(), test.ShouldBeTrue)
	test.That(t, func() { submap.Finish() }, test.ShouldPanic)
}

func TestBasicTrajectory(t *testing.T) {
	trajectory := NewBasicTrajectory()
	test.That(t, trajectory.Len(), test.ShouldEqual, 0)
	first := trajectory.AppendSubmap(spatialmath.Identity())
	second := trajectory.AppendSubmap(spatialmath.NewRigid3Translation(r3.Vector{Y: 2}))
	test.That(t, trajectory.Len(), test.ShouldEqual, 2)
	test.That(t, trajectory.Submap(0), test.ShouldEqual, first)
	test.That(t, trajectory.Submap(1), test.ShouldEqual, second)
}
