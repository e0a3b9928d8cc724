package optimization

import (
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/viamrobotics/posegraph/mapping"
	"github.com/viamrobotics/posegraph/sensor"
	"github.com/viamrobotics/posegraph/spatialmath"
)

type recordingSolver struct {
	calls          int
	lastIterations int
	lastNumEdges   int
}

func (rs *recordingSolver) Solve(
	submaps [][]SubmapData,
	nodes [][]NodeData,
	imuData map[int][]sensor.IMUData,
	constraints []mapping.Constraint,
	maxNumIterations int,
) error {
	rs.calls++
	rs.lastIterations = maxNumIterations
	rs.lastNumEdges = len(constraints)
	return nil
}

func TestProblemBookkeeping(t *testing.T) {
	p := NewProblem(Options{MaxNumIterations: 50}, IdentitySolver{})
	p.AddSubmap(0, spatialmath.Identity())
	p.AddSubmap(2, spatialmath.NewRigid3Translation(r3.Vector{X: 1}))
	p.AddTrajectoryNode(2, time.Unix(1, 0), spatialmath.Identity())
	p.AddIMUData(0, sensor.IMUData{Time: time.Unix(2, 0), LinearAcceleration: r3.Vector{Z: 9.8}})

	test.That(t, p.SubmapData(), test.ShouldHaveLength, 3)
	test.That(t, p.SubmapData()[0], test.ShouldHaveLength, 1)
	test.That(t, p.SubmapData()[1], test.ShouldHaveLength, 0)
	test.That(t, p.SubmapData()[2], test.ShouldHaveLength, 1)
	test.That(t, p.NodeData()[2][0].Time, test.ShouldResemble, time.Unix(1, 0))
	test.That(t, p.IMUData()[0], test.ShouldHaveLength, 1)
}

func TestProblemIterationCap(t *testing.T) {
	solver := &recordingSolver{}
	p := NewProblem(Options{MaxNumIterations: 50}, solver)
	p.AddSubmap(0, spatialmath.Identity())

	test.That(t, p.Solve(nil), test.ShouldBeNil)
	test.That(t, solver.lastIterations, test.ShouldEqual, 50)

	p.SetMaxNumIterations(200)
	test.That(t, p.MaxNumIterations(), test.ShouldEqual, 200)
	test.That(t, p.Solve(nil), test.ShouldBeNil)
	test.That(t, solver.lastIterations, test.ShouldEqual, 200)
	test.That(t, solver.calls, test.ShouldEqual, 2)
}
