package constraintbuilder

import (
	"sync"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"github.com/viamrobotics/posegraph/mapping"
	"github.com/viamrobotics/posegraph/sensor"
	"github.com/viamrobotics/posegraph/spatialmath"
)

type fakeMatcher struct {
	mu           sync.Mutex
	localCalls   int
	globalCalls  int
	localScore   float64
	globalScore  float64
	rejectLocal  bool
	rejectGlobal bool
}

func (m *fakeMatcher) Match(
	submap mapping.Submap,
	scan sensor.RangeData,
	initialRelativePose spatialmath.Rigid3,
) (*Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.localCalls++
	if m.rejectLocal {
		return nil, nil
	}
	return &Match{Relative: initialRelativePose, Score: m.localScore, SqrtInformation: testInformation()}, nil
}

func (m *fakeMatcher) MatchFullSubmap(submap mapping.Submap, scan sensor.RangeData) (*Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.globalCalls++
	if m.rejectGlobal {
		return nil, nil
	}
	return &Match{Relative: spatialmath.Identity(), Score: m.globalScore, SqrtInformation: testInformation()}, nil
}

func testInformation() *mat.SymDense {
	information := mat.NewSymDense(6, nil)
	for i := 0; i < 6; i++ {
		information.SetSym(i, i, 1)
	}
	return information
}

func testNodes(t *testing.T, n int) []mapping.TrajectoryNode {
	t.Helper()
	nodes := make([]mapping.TrajectoryNode, n)
	for i := range nodes {
		data := &mapping.ConstantData{
			Time: time.Unix(int64(i), 0),
			RangeData: sensor.Compress(sensor.RangeData{
				Returns: []r3.Vector{{X: 1}, {Y: 2}},
			}),
			TrackingToSensor: spatialmath.Identity(),
		}
		nodes[i] = mapping.TrajectoryNode{ConstantData: data, Pose: spatialmath.Identity()}
	}
	return nodes
}

func waitForResult(t *testing.T, b *ConstraintBuilder) Result {
	t.Helper()
	resultCh := make(chan Result, 1)
	b.WhenDone(func(result Result) { resultCh <- result })
	select {
	case result := <-resultCh:
		return result
	case <-time.After(10 * time.Second):
		t.Fatal("constraint builder never went idle")
		return nil
	}
}

func TestBuilderAcceptsLocalMatch(t *testing.T) {
	matcher := &fakeMatcher{localScore: 0.9}
	b := New(DefaultOptions(), matcher, golog.NewTestLogger(t))
	defer b.Close()
	nodes := testNodes(t, 1)

	submapID := mapping.SubmapID{TrajectoryID: 0, SubmapIndex: 0}
	nodeID := mapping.NodeID{TrajectoryID: 0, NodeIndex: 0}
	prior := spatialmath.NewRigid3Translation(r3.Vector{X: 2})
	b.MaybeAddConstraint(submapID, mapping.NewBasicSubmap(spatialmath.Identity()), nodeID, 0, nodes, prior)
	b.NotifyEndOfScan(0)

	result := waitForResult(t, b)
	test.That(t, result, test.ShouldHaveLength, 1)
	test.That(t, result[0].SubmapID, test.ShouldResemble, submapID)
	test.That(t, result[0].NodeID, test.ShouldResemble, nodeID)
	test.That(t, result[0].Tag, test.ShouldEqual, mapping.InterSubmap)
	test.That(t, result[0].Relative.ApproxEqual(prior, 1e-9), test.ShouldBeTrue)
	test.That(t, b.GetNumFinishedScans(), test.ShouldEqual, 1)
	test.That(t, matcher.localCalls, test.ShouldEqual, 1)
}

func TestBuilderDropsRejectedAndLowScoreMatches(t *testing.T) {
	matcher := &fakeMatcher{rejectLocal: true, globalScore: 0.1}
	b := New(DefaultOptions(), matcher, golog.NewTestLogger(t))
	defer b.Close()
	nodes := testNodes(t, 2)
	connectivity := mapping.NewTrajectoryConnectivity()

	submapID := mapping.SubmapID{TrajectoryID: 1, SubmapIndex: 0}
	submap := mapping.NewBasicSubmap(spatialmath.Identity())
	b.MaybeAddConstraint(submapID, submap, mapping.NodeID{}, 0, nodes, spatialmath.Identity())
	b.NotifyEndOfScan(0)
	// Scores below GlobalLocalizationMinScore must not connect the
	// trajectories either.
	b.MaybeAddGlobalConstraint(submapID, submap, mapping.NodeID{TrajectoryID: 0, NodeIndex: 1}, 1, connectivity, nodes)
	b.NotifyEndOfScan(1)

	result := waitForResult(t, b)
	test.That(t, result, test.ShouldHaveLength, 0)
	test.That(t, connectivity.TransitivelyConnected(0, 1), test.ShouldBeFalse)
	test.That(t, b.GetNumFinishedScans(), test.ShouldEqual, 2)
}

func TestBuilderGlobalMatchConnectsTrajectories(t *testing.T) {
	matcher := &fakeMatcher{globalScore: 0.9}
	b := New(DefaultOptions(), matcher, golog.NewTestLogger(t))
	defer b.Close()
	nodes := testNodes(t, 1)
	connectivity := mapping.NewTrajectoryConnectivity()

	submapID := mapping.SubmapID{TrajectoryID: 1, SubmapIndex: 0}
	nodeID := mapping.NodeID{TrajectoryID: 0, NodeIndex: 0}
	b.MaybeAddGlobalConstraint(submapID, mapping.NewBasicSubmap(spatialmath.Identity()), nodeID, 0, connectivity, nodes)
	b.NotifyEndOfScan(0)

	result := waitForResult(t, b)
	test.That(t, result, test.ShouldHaveLength, 1)
	test.That(t, connectivity.TransitivelyConnected(0, 1), test.ShouldBeTrue)
	test.That(t, matcher.globalCalls, test.ShouldEqual, 1)
}

func TestBuilderFinishedScansAdvanceInOrder(t *testing.T) {
	matcher := &fakeMatcher{localScore: 0.9}
	b := New(DefaultOptions(), matcher, golog.NewTestLogger(t))
	defer b.Close()

	// A scan with no jobs finishes as soon as it is sealed.
	test.That(t, b.GetNumFinishedScans(), test.ShouldEqual, 0)
	b.NotifyEndOfScan(0)
	test.That(t, b.GetNumFinishedScans(), test.ShouldEqual, 1)
	b.NotifyEndOfScan(1)
	test.That(t, b.GetNumFinishedScans(), test.ShouldEqual, 2)
}

func TestBuilderNotifyOutOfOrderPanics(t *testing.T) {
	b := New(DefaultOptions(), &fakeMatcher{}, golog.NewTestLogger(t))
	defer b.Close()
	test.That(t, func() { b.NotifyEndOfScan(3) }, test.ShouldPanic)
}

func TestBuilderWhenDoneFiresWhenAlreadyIdle(t *testing.T) {
	b := New(DefaultOptions(), &fakeMatcher{}, golog.NewTestLogger(t))
	defer b.Close()
	result := waitForResult(t, b)
	test.That(t, result, test.ShouldHaveLength, 0)
}
