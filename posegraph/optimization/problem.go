// Package optimization holds the state handed to the non-linear solver:
// submap and node poses per trajectory plus IMU series. The solver
// itself is external; Problem delegates to an injected Solver.
package optimization

import (
	"time"

	"github.com/viamrobotics/posegraph/mapping"
	"github.com/viamrobotics/posegraph/sensor"
	"github.com/viamrobotics/posegraph/spatialmath"
)

// SubmapData is one submap's pose in the global frame.
type SubmapData struct {
	Pose spatialmath.Rigid3
}

// NodeData is one scan node's timestamp and pose in the global frame.
type NodeData struct {
	Time time.Time
	Pose spatialmath.Rigid3
}

// Solver refines submap and node poses in place given the constraint
// set. Implementations are expected to leave usable poses behind even
// when they fail to converge.
type Solver interface {
	Solve(
		submaps [][]SubmapData,
		nodes [][]NodeData,
		imuData map[int][]sensor.IMUData,
		constraints []mapping.Constraint,
		maxNumIterations int,
	) error
}

// Options configure the optimization problem.
type Options struct {
	// MaxNumIterations caps solver iterations for periodic solves.
	MaxNumIterations int
}

// Problem accumulates poses and IMU data between solves. It is
// externally synchronized by the pose graph: mutators only run inline
// or as drained work items, never while Solve is in flight.
type Problem struct {
	opts    Options
	solver  Solver
	submaps [][]SubmapData
	nodes   [][]NodeData
	imuData map[int][]sensor.IMUData

	maxNumIterations int
}

// NewProblem returns an empty problem backed by the given solver.
func NewProblem(opts Options, solver Solver) *Problem {
	return &Problem{
		opts:             opts,
		solver:           solver,
		imuData:          map[int][]sensor.IMUData{},
		maxNumIterations: opts.MaxNumIterations,
	}
}

// AddSubmap appends a submap pose for the given trajectory.
func (p *Problem) AddSubmap(trajectoryID int, pose spatialmath.Rigid3) {
	p.growTrajectories(trajectoryID)
	p.submaps[trajectoryID] = append(p.submaps[trajectoryID], SubmapData{Pose: pose})
}

// AddTrajectoryNode appends a node pose for the given trajectory.
func (p *Problem) AddTrajectoryNode(trajectoryID int, t time.Time, pose spatialmath.Rigid3) {
	p.growTrajectories(trajectoryID)
	p.nodes[trajectoryID] = append(p.nodes[trajectoryID], NodeData{Time: t, Pose: pose})
}

// AddIMUData appends an inertial sample to the trajectory's series.
func (p *Problem) AddIMUData(trajectoryID int, data sensor.IMUData) {
	p.imuData[trajectoryID] = append(p.imuData[trajectoryID], data)
}

// SetMaxNumIterations overrides the solver iteration cap.
func (p *Problem) SetMaxNumIterations(n int) {
	p.maxNumIterations = n
}

// MaxNumIterations returns the current solver iteration cap.
func (p *Problem) MaxNumIterations() int {
	return p.maxNumIterations
}

// Solve runs the solver over the current state and constraint set. The
// poses are refined in place.
func (p *Problem) Solve(constraints []mapping.Constraint) error {
	return p.solver.Solve(p.submaps, p.nodes, p.imuData, constraints, p.maxNumIterations)
}

// SubmapData returns the per-trajectory submap poses.
func (p *Problem) SubmapData() [][]SubmapData {
	return p.submaps
}

// NodeData returns the per-trajectory node poses.
func (p *Problem) NodeData() [][]NodeData {
	return p.nodes
}

// IMUData returns the per-trajectory IMU series.
func (p *Problem) IMUData() map[int][]sensor.IMUData {
	return p.imuData
}

func (p *Problem) growTrajectories(trajectoryID int) {
	for len(p.submaps) <= trajectoryID {
		p.submaps = append(p.submaps, nil)
	}
	for len(p.nodes) <= trajectoryID {
		p.nodes = append(p.nodes, nil)
	}
}

// IdentitySolver accepts the current pose estimates unchanged. It
// stands in for a real least-squares solver in tests and demos.
type IdentitySolver struct{}

// Solve implements Solver and leaves all poses as they are.
func (IdentitySolver) Solve(
	submaps [][]SubmapData,
	nodes [][]NodeData,
	imuData map[int][]sensor.IMUData,
	constraints []mapping.Constraint,
	maxNumIterations int,
) error {
	return nil
}
