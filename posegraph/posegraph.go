package posegraph

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/viamrobotics/posegraph/mapping"
	"github.com/viamrobotics/posegraph/posegraph/constraintbuilder"
	"github.com/viamrobotics/posegraph/posegraph/optimization"
	"github.com/viamrobotics/posegraph/sensor"
	"github.com/viamrobotics/posegraph/spatialmath"
	"github.com/viamrobotics/posegraph/utils"
)

type submapState struct {
	submap   mapping.Submap
	nodeIDs  map[mapping.NodeID]struct{}
	finished bool
}

// SparsePoseGraph accumulates scans into a graph of relative-pose
// constraints and keeps every scan and submap pose globally consistent
// by solving the graph in the background.
//
// A single mutex serializes all state transitions. Ingestion runs
// synchronously until an optimization is pending; work arriving during
// a solve is buffered and drained, in order, once the solve completes.
type SparsePoseGraph struct {
	opts                Options
	logger              golog.Logger
	optimizationProblem *optimization.Problem
	constraintBuilder   *constraintbuilder.ConstraintBuilder
	clock               clock.Clock
	progressWriter      io.Writer

	mu                         sync.Mutex
	trajectoryIDs              map[mapping.Trajectory]int
	submapIDs                  map[mapping.Submap]mapping.SubmapID
	submapStates               [][]submapState
	constantData               []*mapping.ConstantData
	trajectoryNodes            []mapping.TrajectoryNode
	scanIndexToNodeID          []mapping.NodeID
	numNodesInTrajectory       map[int]int
	constraints                []mapping.Constraint
	connectivity               *mapping.TrajectoryConnectivity
	reverseConnectedComponents map[int]int
	samplers                   map[int]*utils.FixedRatioSampler
	optimizedSubmapTransforms  [][]spatialmath.Rigid3

	// scanQueue is nil while ingestion is synchronous.
	scanQueue                    *workQueue
	runLoopClosure               bool
	numScansSinceLastLoopClosure int
}

// New returns a pose graph that matches scans with the given matcher
// and solves with the given solver.
func New(
	opts Options,
	matcher constraintbuilder.ScanMatcher,
	solver optimization.Solver,
	logger golog.Logger,
) *SparsePoseGraph {
	return &SparsePoseGraph{
		opts:                       opts,
		logger:                     logger,
		optimizationProblem:        optimization.NewProblem(opts.Optimization, solver),
		constraintBuilder:          constraintbuilder.New(opts.ConstraintBuilder, matcher, logger),
		clock:                      clock.New(),
		progressWriter:             os.Stdout,
		trajectoryIDs:              map[mapping.Trajectory]int{},
		submapIDs:                  map[mapping.Submap]mapping.SubmapID{},
		numNodesInTrajectory:       map[int]int{},
		connectivity:               mapping.NewTrajectoryConnectivity(),
		reverseConnectedComponents: map[int]int{},
		samplers:                   map[int]*utils.FixedRatioSampler{},
	}
}

// AddScan ingests one scan: its timestamp, range data in the tracking
// frame, the local pose estimate with its 6x6 covariance, the
// trajectory it belongs to, the submap it was matched against, and the
// submaps it was inserted into, in insertion order. The heavy
// constraint work is enqueued under the scan's flat index.
func (s *SparsePoseGraph) AddScan(
	t time.Time,
	rangeData sensor.RangeData,
	pose spatialmath.Rigid3,
	covariance *mat.SymDense,
	trajectory mapping.Trajectory,
	matchingSubmap mapping.Submap,
	insertionSubmaps []mapping.Submap,
) {
	if len(insertionSubmaps) == 0 {
		panic("posegraph: AddScan needs at least one insertion submap")
	}
	optimizedPose := s.GetLocalToGlobalTransform(trajectory).Mul(pose)

	s.mu.Lock()
	defer s.mu.Unlock()
	trajectoryID := s.trajectoryIDLocked(trajectory)
	flatScanIndex := len(s.trajectoryNodes)
	if flatScanIndex >= math.MaxInt32 {
		panic("posegraph: flat scan index overflow")
	}

	data := &mapping.ConstantData{
		Time:             t,
		RangeData:        sensor.Compress(rangeData),
		TrajectoryID:     trajectoryID,
		TrackingToSensor: spatialmath.Identity(),
	}
	s.constantData = append(s.constantData, data)
	s.trajectoryNodes = append(s.trajectoryNodes, mapping.TrajectoryNode{
		ConstantData: data,
		Pose:         optimizedPose,
	})
	s.connectivity.Add(trajectoryID)
	metricScansAdded.Inc()

	newest := insertionSubmaps[len(insertionSubmaps)-1]
	if _, ok := s.submapIDs[newest]; !ok {
		for len(s.submapStates) <= trajectoryID {
			s.submapStates = append(s.submapStates, nil)
		}
		s.submapIDs[newest] = mapping.SubmapID{
			TrajectoryID: trajectoryID,
			SubmapIndex:  len(s.submapStates[trajectoryID]),
		}
		s.submapStates[trajectoryID] = append(s.submapStates[trajectoryID], submapState{
			submap:  newest,
			nodeIDs: map[mapping.NodeID]struct{}{},
		})
	}

	var finishedSubmap mapping.Submap
	if insertionSubmaps[0].Finished() {
		finishedSubmap = insertionSubmaps[0]
	}

	if s.samplers[trajectoryID] == nil {
		s.samplers[trajectoryID] = utils.NewFixedRatioSampler(s.opts.GlobalSamplingRatio)
	}

	s.addWorkItem(func() {
		s.computeConstraintsForScan(flatScanIndex, matchingSubmap, insertionSubmaps, finishedSubmap, pose, covariance)
	})
}

// AddIMUData enqueues an inertial sample into the optimizer's
// per-trajectory IMU series.
func (s *SparsePoseGraph) AddIMUData(
	trajectory mapping.Trajectory,
	t time.Time,
	linearAcceleration r3.Vector,
	angularVelocity spatialmath.AngularVelocity,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	trajectoryID := s.trajectoryIDLocked(trajectory)
	s.addWorkItem(func() {
		s.optimizationProblem.AddIMUData(trajectoryID, sensor.IMUData{
			Time:               t,
			LinearAcceleration: linearAcceleration,
			AngularVelocity:    angularVelocity,
		})
	})
}

// GetNextTrajectoryNodeIndex returns the flat index the next ingested
// scan will receive.
func (s *SparsePoseGraph) GetNextTrajectoryNodeIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trajectoryNodes)
}

// GetTrajectoryNodes returns every node grouped by trajectory, in
// insertion order within each.
func (s *SparsePoseGraph) GetTrajectoryNodes() [][]mapping.TrajectoryNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([][]mapping.TrajectoryNode, len(s.trajectoryIDs))
	for _, node := range s.trajectoryNodes {
		result[node.ConstantData.TrajectoryID] = append(result[node.ConstantData.TrajectoryID], node)
	}
	return result
}

// Constraints returns a snapshot of the accumulated constraints.
func (s *SparsePoseGraph) Constraints() []mapping.Constraint {
	s.mu.Lock()
	defer s.mu.Unlock()
	constraints := make([]mapping.Constraint, len(s.constraints))
	copy(constraints, s.constraints)
	return constraints
}

// GetConnectedTrajectories returns the connected components of the
// trajectory connectivity graph.
func (s *SparsePoseGraph) GetConnectedTrajectories() [][]int {
	return s.connectivity.ConnectedComponents()
}

// GetSubmapTransforms returns the global pose of every known submap of
// the trajectory, extrapolating past the last optimized snapshot.
func (s *SparsePoseGraph) GetSubmapTransforms(trajectory mapping.Trajectory) []spatialmath.Rigid3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	trajectoryID, ok := s.trajectoryIDs[trajectory]
	if !ok {
		return []spatialmath.Rigid3{spatialmath.Identity()}
	}
	return s.extrapolateSubmapTransforms(s.optimizedSubmapTransforms, trajectoryID)
}

// GetSubmapTransformsByID is GetSubmapTransforms for an already
// registered trajectory id.
func (s *SparsePoseGraph) GetSubmapTransformsByID(trajectoryID int) []spatialmath.Rigid3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extrapolateSubmapTransforms(s.optimizedSubmapTransforms, trajectoryID)
}

// GetLocalToGlobalTransform returns the transform taking the
// trajectory's local frame to the global frame. It is identity for a
// trajectory that has never been registered.
func (s *SparsePoseGraph) GetLocalToGlobalTransform(trajectory mapping.Trajectory) spatialmath.Rigid3 {
	s.mu.Lock()
	trajectoryID, ok := s.trajectoryIDs[trajectory]
	if !ok {
		s.mu.Unlock()
		return spatialmath.Identity()
	}
	transforms := s.extrapolateSubmapTransforms(s.optimizedSubmapTransforms, trajectoryID)
	s.mu.Unlock()
	last := len(transforms) - 1
	return transforms[last].Mul(trajectory.Submap(last).LocalPose().Invert())
}

// WaitForAllComputations blocks until the constraint builder has
// finished every scan ingested so far, reporting progress about once
// per second, then absorbs the final batch of constraints.
func (s *SparsePoseGraph) WaitForAllComputations(ctx context.Context) error {
	s.mu.Lock()
	numFinishedScansAtStart := s.constraintBuilder.GetNumFinishedScans()
	for {
		if s.constraintBuilder.GetNumFinishedScans() >= len(s.trajectoryNodes) {
			break
		}
		s.mu.Unlock()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(time.Second):
		}
		s.mu.Lock()
		finished := s.constraintBuilder.GetNumFinishedScans()
		total := len(s.trajectoryNodes)
		if finished >= total {
			continue
		}
		fmt.Fprintf(s.progressWriter, "\r\x1b[KOptimizing: %.1f%%...",
			100*float64(finished-numFinishedScansAtStart)/float64(total-numFinishedScansAtStart))
	}
	s.mu.Unlock()
	fmt.Fprint(s.progressWriter, "\r\x1b[KOptimizing: Done.     \n")

	done := make(chan struct{})
	s.constraintBuilder.WhenDone(func(result constraintbuilder.Result) {
		s.mu.Lock()
		s.appendConstraintsLocked(result)
		s.mu.Unlock()
		close(done)
	})
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunFinalOptimization waits for the pipeline to go idle, then runs one
// optimization with the solver's iteration cap raised to
// MaxNumFinalIterations, restoring the cap afterwards.
func (s *SparsePoseGraph) RunFinalOptimization(ctx context.Context) error {
	if err := s.WaitForAllComputations(ctx); err != nil {
		return err
	}
	previousCap := s.optimizationProblem.MaxNumIterations()
	s.optimizationProblem.SetMaxNumIterations(s.opts.MaxNumFinalIterations)
	s.runOptimization()
	s.optimizationProblem.SetMaxNumIterations(previousCap)
	return nil
}

// Close waits for quiescence and stops the constraint builder's pool.
func (s *SparsePoseGraph) Close(ctx context.Context) error {
	if err := s.WaitForAllComputations(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	queueActive := s.scanQueue != nil
	s.mu.Unlock()
	if queueActive {
		panic("posegraph: closed with an active work queue")
	}
	s.constraintBuilder.Close()
	return nil
}

// addWorkItem runs the item inline in synchronous mode and buffers it
// while an optimization is pending. Callers hold the mutex.
func (s *SparsePoseGraph) addWorkItem(item func()) {
	if s.scanQueue == nil {
		item()
		return
	}
	s.scanQueue.push(item)
	metricQueueDepth.Set(float64(s.scanQueue.len()))
}

func (s *SparsePoseGraph) trajectoryIDLocked(trajectory mapping.Trajectory) int {
	if id, ok := s.trajectoryIDs[trajectory]; ok {
		return id
	}
	id := len(s.trajectoryIDs)
	s.trajectoryIDs[trajectory] = id
	return id
}

func (s *SparsePoseGraph) submapIDLocked(submap mapping.Submap) mapping.SubmapID {
	id, ok := s.submapIDs[submap]
	if !ok {
		panic("posegraph: unregistered submap")
	}
	return id
}

// growSubmapTransformsAsNeeded seeds the optimizer with poses for newly
// seen insertion submaps. A lone submap must be submap 0 and is seeded
// at identity; a new second submap is seeded by carrying the local
// rigid offset between the pair into the global frame.
func (s *SparsePoseGraph) growSubmapTransformsAsNeeded(insertionSubmaps []mapping.Submap) {
	if len(insertionSubmaps) == 0 {
		panic("posegraph: no insertion submaps")
	}
	firstID := s.submapIDLocked(insertionSubmaps[0])
	trajectoryID := firstID.TrajectoryID
	submapData := s.optimizationProblem.SubmapData()
	if len(insertionSubmaps) == 1 {
		if firstID.SubmapIndex != 0 {
			panic(fmt.Sprintf("posegraph: lone insertion submap has index %d", firstID.SubmapIndex))
		}
		if trajectoryID >= len(submapData) || len(submapData[trajectoryID]) == 0 {
			s.optimizationProblem.AddSubmap(trajectoryID, spatialmath.Identity())
		}
		return
	}
	if len(insertionSubmaps) != 2 {
		panic(fmt.Sprintf("posegraph: %d insertion submaps", len(insertionSubmaps)))
	}
	nextSubmapIndex := len(submapData[trajectoryID])
	secondID := s.submapIDLocked(insertionSubmaps[1])
	if secondID.TrajectoryID != trajectoryID {
		panic(fmt.Sprintf("posegraph: insertion submaps from trajectories %d and %d",
			trajectoryID, secondID.TrajectoryID))
	}
	if secondID.SubmapIndex > nextSubmapIndex {
		panic(fmt.Sprintf("posegraph: submap index %d skips ahead of %d",
			secondID.SubmapIndex, nextSubmapIndex))
	}
	if secondID.SubmapIndex == nextSubmapIndex {
		firstPose := submapData[trajectoryID][firstID.SubmapIndex].Pose
		s.optimizationProblem.AddSubmap(trajectoryID,
			firstPose.
				Mul(insertionSubmaps[0].LocalPose().Invert()).
				Mul(insertionSubmaps[1].LocalPose()))
	}
}

// computeConstraintsForScan runs the deferred part of ingestion for one
// scan: optimizer bookkeeping, intra-submap constraints, loop closure
// proposals, and the optimization trigger. Callers hold the mutex.
func (s *SparsePoseGraph) computeConstraintsForScan(
	scanIndex int,
	matchingSubmap mapping.Submap,
	insertionSubmaps []mapping.Submap,
	finishedSubmap mapping.Submap,
	pose spatialmath.Rigid3,
	covariance *mat.SymDense,
) {
	s.growSubmapTransformsAsNeeded(insertionSubmaps)
	matchingID := s.submapIDLocked(matchingSubmap)
	optimizedPose := s.optimizationProblem.SubmapData()[matchingID.TrajectoryID][matchingID.SubmapIndex].Pose.
		Mul(matchingSubmap.LocalPose().Invert()).
		Mul(pose)
	if scanIndex != len(s.scanIndexToNodeID) {
		panic(fmt.Sprintf("posegraph: scan index %d out of order", scanIndex))
	}
	nodeID := mapping.NodeID{
		TrajectoryID: matchingID.TrajectoryID,
		NodeIndex:    s.numNodesInTrajectory[matchingID.TrajectoryID],
	}
	s.scanIndexToNodeID = append(s.scanIndexToNodeID, nodeID)
	s.numNodesInTrajectory[matchingID.TrajectoryID]++
	scanData := s.trajectoryNodes[scanIndex].ConstantData
	if scanData.TrajectoryID != matchingID.TrajectoryID {
		panic(fmt.Sprintf("posegraph: scan from trajectory %d matched against submap of trajectory %d",
			scanData.TrajectoryID, matchingID.TrajectoryID))
	}
	s.optimizationProblem.AddTrajectoryNode(matchingID.TrajectoryID, scanData.Time, optimizedPose)

	sqrtInformation := spatialmath.SpdMatrixSqrtInverse(
		covariance, s.opts.ConstraintBuilder.LowerCovarianceEigenvalueBound)
	for _, submap := range insertionSubmaps {
		submapID := s.submapIDLocked(submap)
		state := &s.submapStates[submapID.TrajectoryID][submapID.SubmapIndex]
		if state.finished {
			panic(fmt.Sprintf("posegraph: scan inserted into finished submap %v", submapID))
		}
		state.nodeIDs[nodeID] = struct{}{}
		s.appendConstraintsLocked(constraintbuilder.Result{{
			SubmapID:        submapID,
			NodeID:          nodeID,
			Relative:        submap.LocalPose().Invert().Mul(pose),
			SqrtInformation: sqrtInformation,
			Tag:             mapping.IntraSubmap,
		}})
	}

	for trajectoryID := range s.submapStates {
		for submapIndex := range s.submapStates[trajectoryID] {
			state := &s.submapStates[trajectoryID][submapIndex]
			if !state.finished {
				continue
			}
			if _, ok := state.nodeIDs[nodeID]; ok {
				panic(fmt.Sprintf("posegraph: new node %v already in finished submap", nodeID))
			}
			s.computeConstraint(scanIndex, mapping.SubmapID{
				TrajectoryID: trajectoryID,
				SubmapIndex:  submapIndex,
			})
		}
	}

	if finishedSubmap != nil {
		finishedSubmapID := s.submapIDLocked(finishedSubmap)
		state := &s.submapStates[finishedSubmapID.TrajectoryID][finishedSubmapID.SubmapIndex]
		if state.finished {
			panic(fmt.Sprintf("posegraph: submap %v finished twice", finishedSubmapID))
		}
		// A completed submap becomes eligible for matching against
		// every scan that predates it.
		s.computeConstraintsForOldScans(finishedSubmap)
		state.finished = true
	}
	s.constraintBuilder.NotifyEndOfScan(scanIndex)
	s.numScansSinceLastLoopClosure++
	if s.opts.OptimizeEveryNScans > 0 &&
		s.numScansSinceLastLoopClosure > s.opts.OptimizeEveryNScans {
		if s.runLoopClosure {
			panic("posegraph: optimization already pending")
		}
		s.runLoopClosure = true
		// If the queue already exists, the drain in flight handles it.
		if s.scanQueue == nil {
			s.scanQueue = &workQueue{}
			s.handleScanQueue()
		}
	}
}

// computeConstraint proposes a match between an existing scan and a
// finished submap. Cross-trajectory pairs go through the trajectory's
// sampler as global matches; pairs on the same trajectory or already
// connected trajectories get a local match anchored at the optimizer's
// current relative estimate.
func (s *SparsePoseGraph) computeConstraint(scanIndex int, submapID mapping.SubmapID) {
	nodeID := s.scanIndexToNodeID[scanIndex]
	relativePose := s.optimizationProblem.SubmapData()[submapID.TrajectoryID][submapID.SubmapIndex].Pose.
		Invert().
		Mul(s.optimizationProblem.NodeData()[nodeID.TrajectoryID][nodeID.NodeIndex].Pose)
	scanTrajectoryID := s.trajectoryNodes[scanIndex].ConstantData.TrajectoryID
	submap := s.submapStates[submapID.TrajectoryID][submapID.SubmapIndex].submap

	if scanTrajectoryID != submapID.TrajectoryID && s.samplers[scanTrajectoryID].Pulse() {
		s.constraintBuilder.MaybeAddGlobalConstraint(
			submapID, submap, nodeID, scanIndex, s.connectivity, s.trajectoryNodes)
		return
	}
	scanComponent, scanKnown := s.reverseConnectedComponents[scanTrajectoryID]
	submapComponent, submapKnown := s.reverseConnectedComponents[submapID.TrajectoryID]
	connected := scanKnown && submapKnown && scanComponent == submapComponent
	if scanTrajectoryID == submapID.TrajectoryID || connected {
		s.constraintBuilder.MaybeAddConstraint(
			submapID, submap, nodeID, scanIndex, s.trajectoryNodes, relativePose)
	}
}

// computeConstraintsForOldScans proposes matches between a newly
// finished submap and every scan not inserted into it.
func (s *SparsePoseGraph) computeConstraintsForOldScans(submap mapping.Submap) {
	submapID := s.submapIDLocked(submap)
	state := &s.submapStates[submapID.TrajectoryID][submapID.SubmapIndex]
	for scanIndex := range s.scanIndexToNodeID {
		if _, ok := state.nodeIDs[s.scanIndexToNodeID[scanIndex]]; !ok {
			s.computeConstraint(scanIndex, submapID)
		}
	}
}

// handleScanQueue asks the constraint builder to call back once its
// pipeline is idle, then solves, drains buffered work in FIFO order,
// and returns ingestion to synchronous mode. A drained item crossing
// the threshold again re-enters the driver.
func (s *SparsePoseGraph) handleScanQueue() {
	s.constraintBuilder.WhenDone(func(result constraintbuilder.Result) {
		s.mu.Lock()
		s.appendConstraintsLocked(result)
		s.mu.Unlock()
		s.runOptimization()

		s.mu.Lock()
		s.numScansSinceLastLoopClosure = 0
		s.runLoopClosure = false
		for !s.runLoopClosure {
			if s.scanQueue.empty() {
				s.logger.Debug("caught up with the scan queue")
				s.scanQueue = nil
				metricQueueDepth.Set(0)
				s.mu.Unlock()
				return
			}
			item := s.scanQueue.pop()
			metricQueueDepth.Set(float64(s.scanQueue.len()))
			item()
		}
		s.mu.Unlock()
		// A buffered item crossed the threshold again.
		s.handleScanQueue()
	})
}

// runOptimization solves the graph outside the mutex, then writes the
// optimized poses back, extrapolates nodes the solver has not seen onto
// the new global frame, and refreshes connectivity.
func (s *SparsePoseGraph) runOptimization() {
	s.mu.Lock()
	if len(s.optimizationProblem.SubmapData()) == 0 {
		s.mu.Unlock()
		return
	}
	constraints := make([]mapping.Constraint, len(s.constraints))
	copy(constraints, s.constraints)
	s.mu.Unlock()

	if err := s.optimizationProblem.Solve(constraints); err != nil {
		s.logger.Errorw("solver failed; accepting returned poses", "error", err)
	}
	metricOptimizations.Inc()

	s.mu.Lock()
	defer s.mu.Unlock()
	nodeData := s.optimizationProblem.NodeData()
	numOptimizedPoses := len(s.scanIndexToNodeID)
	for i := 0; i < numOptimizedPoses; i++ {
		nodeID := s.scanIndexToNodeID[i]
		s.trajectoryNodes[i].Pose = nodeData[nodeID.TrajectoryID][nodeID.NodeIndex].Pose
	}
	// Nodes appended while the solve ran keep their geometry relative
	// to the submap frame and jump onto the new global frame.
	extrapolationTransforms := map[int]spatialmath.Rigid3{}
	newSubmapData := submapPoses(s.optimizationProblem.SubmapData())
	for i := numOptimizedPoses; i < len(s.trajectoryNodes); i++ {
		trajectoryID := s.trajectoryNodes[i].ConstantData.TrajectoryID
		transform, ok := extrapolationTransforms[trajectoryID]
		if !ok {
			newTransforms := s.extrapolateSubmapTransforms(newSubmapData, trajectoryID)
			oldTransforms := s.extrapolateSubmapTransforms(s.optimizedSubmapTransforms, trajectoryID)
			if len(newTransforms) != len(oldTransforms) {
				panic(fmt.Sprintf("posegraph: extrapolated %d vs %d submap transforms",
					len(newTransforms), len(oldTransforms)))
			}
			transform = newTransforms[len(newTransforms)-1].
				Mul(oldTransforms[len(oldTransforms)-1].Invert())
			extrapolationTransforms[trajectoryID] = transform
		}
		s.trajectoryNodes[i].Pose = transform.Mul(s.trajectoryNodes[i].Pose)
	}
	s.optimizedSubmapTransforms = newSubmapData
	s.reverseConnectedComponents = map[int]int{}
	for i, component := range s.connectivity.ConnectedComponents() {
		for _, trajectoryID := range component {
			s.reverseConnectedComponents[trajectoryID] = i
		}
	}
}

// extrapolateSubmapTransforms returns global poses for every known
// submap of the trajectory: optimized poses verbatim where the snapshot
// has them, the relative local-pose step composed onto the previous
// result beyond it, and a single identity for unknown trajectories.
func (s *SparsePoseGraph) extrapolateSubmapTransforms(
	submapTransforms [][]spatialmath.Rigid3,
	trajectoryID int,
) []spatialmath.Rigid3 {
	if trajectoryID >= len(s.submapStates) {
		return []spatialmath.Rigid3{spatialmath.Identity()}
	}
	var result []spatialmath.Rigid3
	for _, state := range s.submapStates[trajectoryID] {
		if trajectoryID < len(submapTransforms) && len(result) < len(submapTransforms[trajectoryID]) {
			result = append(result, submapTransforms[trajectoryID][len(result)])
		} else if len(result) == 0 {
			result = append(result, spatialmath.Identity())
		} else {
			previous := s.submapStates[trajectoryID][len(result)-1].submap
			result = append(result, result[len(result)-1].
				Mul(previous.LocalPose().Invert()).
				Mul(state.submap.LocalPose()))
		}
	}
	if len(result) == 0 {
		result = append(result, spatialmath.Identity())
	}
	return result
}

func (s *SparsePoseGraph) appendConstraintsLocked(result constraintbuilder.Result) {
	for _, constraint := range result {
		s.constraints = append(s.constraints, constraint)
		metricConstraints.WithLabelValues(constraint.Tag.String()).Inc()
	}
}

func submapPoses(data [][]optimization.SubmapData) [][]spatialmath.Rigid3 {
	poses := make([][]spatialmath.Rigid3, len(data))
	for i, trajectory := range data {
		poses[i] = make([]spatialmath.Rigid3, len(trajectory))
		for j, submap := range trajectory {
			poses[i][j] = submap.Pose
		}
	}
	return poses
}
