package mapping

import (
	"gonum.org/v1/gonum/mat"

	"github.com/viamrobotics/posegraph/spatialmath"
)

// ConstraintTag distinguishes locally authored constraints from loop
// closures found by the constraint builder.
type ConstraintTag int

const (
	// IntraSubmap tags a constraint between a submap and a scan that
	// was inserted into it.
	IntraSubmap ConstraintTag = iota
	// InterSubmap tags a loop closure between a submap and a scan that
	// was not inserted into it.
	InterSubmap
)

func (t ConstraintTag) String() string {
	switch t {
	case IntraSubmap:
		return "intra_submap"
	case InterSubmap:
		return "inter_submap"
	}
	return "unknown"
}

// Constraint is a rigid-pose edge between a submap and a scan node.
// Relative maps the node into the submap frame; SqrtInformation is the
// 6x6 square root of the edge's information matrix.
type Constraint struct {
	SubmapID        SubmapID
	NodeID          NodeID
	Relative        spatialmath.Rigid3
	SqrtInformation *mat.SymDense
	Tag             ConstraintTag
}
