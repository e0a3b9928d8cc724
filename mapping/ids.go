// Package mapping holds the shared pose graph vocabulary: trajectory and
// submap handles, node and submap identifiers, constraints, and the
// trajectory connectivity structure.
package mapping

import "fmt"

// SubmapID identifies a submap by trajectory and position within the
// trajectory's submap list. Submap indices are dense, starting at 0, in
// creation order.
type SubmapID struct {
	TrajectoryID int
	SubmapIndex  int
}

func (s SubmapID) String() string {
	return fmt.Sprintf("(%d, %d)", s.TrajectoryID, s.SubmapIndex)
}

// NodeID identifies a scan node by trajectory and position within the
// trajectory. Node indices are dense in insertion order.
type NodeID struct {
	TrajectoryID int
	NodeIndex    int
}

func (n NodeID) String() string {
	return fmt.Sprintf("(%d, %d)", n.TrajectoryID, n.NodeIndex)
}
