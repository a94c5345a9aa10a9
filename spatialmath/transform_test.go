package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"
)

func TestTransformMatrixBottomRow(t *testing.T) {
	rot := (&R4AA{Theta: 1.1, RX: 0.3, RY: -0.2, RZ: 0.9}).RotationMatrix()
	tf := NewTransform(rot, r3.Vector{X: 1, Y: -2, Z: 3})
	m := tf.Matrix()

	r, c := m.Dims()
	test.That(t, r, test.ShouldEqual, 4)
	test.That(t, c, test.ShouldEqual, 4)
	test.That(t, mat.Row(nil, 3, m), test.ShouldResemble, []float64{0, 0, 0, 1})
	test.That(t, m.At(0, 3), test.ShouldEqual, 1.)
	test.That(t, m.At(1, 3), test.ShouldEqual, -2.)
	test.That(t, m.At(2, 3), test.ShouldEqual, 3.)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			test.That(t, m.At(row, col), test.ShouldEqual, rot.At(row, col))
		}
	}
}

func TestTransformInverseCompose(t *testing.T) {
	tf := NewTransform((&R4AA{Theta: 0.7, RX: 1, RY: 1}).RotationMatrix(), r3.Vector{X: 0.5, Y: 0, Z: -4})
	p := r3.Vector{X: 3, Y: 1, Z: 2}

	back := tf.Inverse().Apply(tf.Apply(p))
	test.That(t, back.Sub(p).Norm(), test.ShouldBeLessThan, 1e-12)

	identity := tf.Compose(tf.Inverse())
	test.That(t, TransformAlmostEqual(identity, NewZeroTransform(), 1e-12), test.ShouldBeTrue)
}

func TestNewTransformFromDense(t *testing.T) {
	tf := NewTransform((&R4AA{Theta: 0.4, RZ: 1}).RotationMatrix(), r3.Vector{X: 1, Y: 2, Z: 3})

	parsed, err := NewTransformFromDense(tf.Matrix())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, TransformAlmostEqual(parsed, tf, 1e-12), test.ShouldBeTrue)

	parsed, err = NewTransformFromDense(tf.Matrix().Slice(0, 3, 0, 4))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, TransformAlmostEqual(parsed, tf, 1e-12), test.ShouldBeTrue)

	bad := tf.Matrix()
	bad.Set(3, 0, 0.5)
	_, err = NewTransformFromDense(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bottom row")

	bad = tf.Matrix()
	bad.Set(0, 0, 2)
	_, err = NewTransformFromDense(bad)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "proper rotation")

	bad = tf.Matrix()
	bad.Set(2, 3, math.Inf(1))
	_, err = NewTransformFromDense(bad)
	test.That(t, err, test.ShouldNotBeNil)

	_, err = NewTransformFromDense(mat.NewDense(3, 3, nil))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "3x4 or 4x4")
}

func TestNilRotationIsIdentity(t *testing.T) {
	tf := NewTransform(nil, r3.Vector{X: 1, Y: 0, Z: 0})
	test.That(t, tf.Apply(r3.Vector{X: 0, Y: 1, Z: 0}), test.ShouldResemble, r3.Vector{X: 1, Y: 1, Z: 0})
}
