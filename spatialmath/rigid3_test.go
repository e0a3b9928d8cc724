package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestRigid3Compose(t *testing.T) {
	a := NewRigid3Translation(r3.Vector{X: 1})
	b := NewRigid3Translation(r3.Vector{Y: 2})
	test.That(t, a.Mul(b).Translation, test.ShouldResemble, r3.Vector{X: 1, Y: 2})

	rot := NewRigid3Rotation(NewRotationAboutAxis(r3.Vector{Z: 1}, math.Pi/2))
	moved := rot.Mul(a)
	test.That(t, moved.Translation.X, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, moved.Apply(r3.Vector{}).Y, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestRigid3Invert(t *testing.T) {
	pose := NewRigid3(
		r3.Vector{X: 1, Y: -2, Z: 3},
		NewRotationAboutAxis(r3.Vector{X: 1, Y: 1, Z: 0}, 0.7),
	)
	test.That(t, pose.Mul(pose.Invert()).ApproxEqual(Identity(), 1e-9), test.ShouldBeTrue)
	test.That(t, pose.Invert().Mul(pose).ApproxEqual(Identity(), 1e-9), test.ShouldBeTrue)
}

func TestRigid3Apply(t *testing.T) {
	rot := NewRigid3(
		r3.Vector{Z: 1},
		NewRotationAboutAxis(r3.Vector{Z: 1}, math.Pi),
	)
	got := rot.Apply(r3.Vector{X: 1})
	test.That(t, got.X, test.ShouldAlmostEqual, -1, 1e-9)
	test.That(t, got.Y, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, got.Z, test.ShouldAlmostEqual, 1, 1e-9)
}

func TestRigid3ApproxEqualNegatedQuaternion(t *testing.T) {
	q := NewRotationAboutAxis(r3.Vector{Z: 1}, 1.1)
	negated := NewRigid3(r3.Vector{X: 5}, q)
	negated.Rotation.Real *= -1
	negated.Rotation.Imag *= -1
	negated.Rotation.Jmag *= -1
	negated.Rotation.Kmag *= -1
	test.That(t, NewRigid3(r3.Vector{X: 5}, q).ApproxEqual(negated, 1e-9), test.ShouldBeTrue)
}

func TestIdentity(t *testing.T) {
	p := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, Identity().Apply(p), test.ShouldResemble, p)
}
