package mapping

import (
	"testing"

	"go.viam.com/test"
)

func TestConnectivitySingletons(t *testing.T) {
	tc := NewTrajectoryConnectivity()
	tc.Add(0)
	tc.Add(1)
	tc.Add(0)
	test.That(t, tc.ConnectedComponents(), test.ShouldResemble, [][]int{{0}, {1}})
	test.That(t, tc.TransitivelyConnected(0, 1), test.ShouldBeFalse)
	test.That(t, tc.TransitivelyConnected(0, 0), test.ShouldBeTrue)
}

func TestConnectivityConnect(t *testing.T) {
	tc := NewTrajectoryConnectivity()
	tc.Connect(0, 1)
	tc.Add(2)
	test.That(t, tc.TransitivelyConnected(0, 1), test.ShouldBeTrue)
	test.That(t, tc.TransitivelyConnected(1, 2), test.ShouldBeFalse)
	test.That(t, tc.ConnectedComponents(), test.ShouldResemble, [][]int{{0, 1}, {2}})

	tc.Connect(2, 3)
	tc.Connect(1, 3)
	test.That(t, tc.TransitivelyConnected(0, 2), test.ShouldBeTrue)
	test.That(t, tc.ConnectedComponents(), test.ShouldResemble, [][]int{{0, 1, 2, 3}})
}

func TestConnectivityUnknownTrajectories(t *testing.T) {
	tc := NewTrajectoryConnectivity()
	test.That(t, tc.TransitivelyConnected(4, 5), test.ShouldBeFalse)
	test.That(t, tc.ConnectedComponents(), test.ShouldHaveLength, 0)
}
