// Package spatialmath defines the rigid 3D transforms and covariance
// operations used by the pose graph.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Rigid3 is a rigid transform in 3D, a rotation (unit quaternion)
// followed by a translation. The zero value is not a valid transform;
// use Identity or one of the constructors.
type Rigid3 struct {
	Translation r3.Vector
	Rotation    quat.Number
}

// Identity returns the identity transform.
func Identity() Rigid3 {
	return Rigid3{Rotation: quat.Number{Real: 1}}
}

// NewRigid3 returns a transform with the given translation and rotation.
// The rotation is normalized to a unit quaternion.
func NewRigid3(translation r3.Vector, rotation quat.Number) Rigid3 {
	return Rigid3{Translation: translation, Rotation: normalize(rotation)}
}

// NewRigid3Translation returns a pure translation.
func NewRigid3Translation(translation r3.Vector) Rigid3 {
	return Rigid3{Translation: translation, Rotation: quat.Number{Real: 1}}
}

// NewRigid3Rotation returns a pure rotation.
func NewRigid3Rotation(rotation quat.Number) Rigid3 {
	return Rigid3{Rotation: normalize(rotation)}
}

// NewRotationAboutAxis returns the unit quaternion rotating by theta
// radians about the given axis.
func NewRotationAboutAxis(axis r3.Vector, theta float64) quat.Number {
	n := axis.Normalize()
	s, c := math.Sincos(theta / 2)
	return quat.Number{Real: c, Imag: s * n.X, Jmag: s * n.Y, Kmag: s * n.Z}
}

// Mul composes two transforms, applying o first and then t.
func (t Rigid3) Mul(o Rigid3) Rigid3 {
	return Rigid3{
		Translation: t.Apply(o.Translation),
		Rotation:    normalize(quat.Mul(t.Rotation, o.Rotation)),
	}
}

// Invert returns the inverse transform.
func (t Rigid3) Invert() Rigid3 {
	rotInv := quat.Conj(t.Rotation)
	tInv := rotate(rotInv, t.Translation.Mul(-1))
	return Rigid3{Translation: tInv, Rotation: rotInv}
}

// Apply transforms the given point.
func (t Rigid3) Apply(p r3.Vector) r3.Vector {
	return rotate(t.Rotation, p).Add(t.Translation)
}

// ApproxEqual reports whether two transforms are equal to within tol,
// treating q and -q as the same rotation.
func (t Rigid3) ApproxEqual(o Rigid3, tol float64) bool {
	if t.Translation.Sub(o.Translation).Norm() > tol {
		return false
	}
	dot := t.Rotation.Real*o.Rotation.Real + t.Rotation.Imag*o.Rotation.Imag +
		t.Rotation.Jmag*o.Rotation.Jmag + t.Rotation.Kmag*o.Rotation.Kmag
	return math.Abs(dot) > 1-tol
}

func (t Rigid3) String() string {
	return fmt.Sprintf("Rigid3{t: (%.3f, %.3f, %.3f), q: (%.3f, %.3f, %.3f, %.3f)}",
		t.Translation.X, t.Translation.Y, t.Translation.Z,
		t.Rotation.Real, t.Rotation.Imag, t.Rotation.Jmag, t.Rotation.Kmag)
}

func rotate(q quat.Number, p r3.Vector) r3.Vector {
	pq := quat.Number{Imag: p.X, Jmag: p.Y, Kmag: p.Z}
	res := quat.Mul(quat.Mul(q, pq), quat.Conj(q))
	return r3.Vector{X: res.Imag, Y: res.Jmag, Z: res.Kmag}
}

func normalize(q quat.Number) quat.Number {
	n := math.Sqrt(q.Real*q.Real + q.Imag*q.Imag + q.Jmag*q.Jmag + q.Kmag*q.Kmag)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// AngularVelocity contains angular velocity in rad/s across x/y/z axes.
type AngularVelocity r3.Vector
