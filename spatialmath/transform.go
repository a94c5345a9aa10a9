package spatialmath

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// defaultRotationTolerance bounds the orthonormality error accepted when a transform is read
// from a caller supplied matrix.
const defaultRotationTolerance = 1e-6

// Transform is a rigid transform in homogeneous form:
//
//	[ R  t ]
//	[ 0  1 ]
//
// The bottom row is not stored, so it is exactly [0, 0, 0, 1] in every matrix produced from a
// Transform.
type Transform struct {
	rotation    *RotationMatrix
	translation r3.Vector
}

// NewTransform builds a transform from its rotation and translation. A nil rotation is the
// identity.
func NewTransform(rotation *RotationMatrix, translation r3.Vector) *Transform {
	if rotation == nil {
		rotation = NewIdentityRotationMatrix()
	}
	return &Transform{rotation: rotation, translation: translation}
}

// NewZeroTransform returns the identity transform.
func NewZeroTransform() *Transform {
	return NewTransform(nil, r3.Vector{})
}

// NewTransformFromDense reads a 3x4 or 4x4 matrix. The rotation block must be a proper rotation
// and, for a 4x4 input, the bottom row must be [0, 0, 0, 1].
func NewTransformFromDense(m mat.Matrix) (*Transform, error) {
	rows, cols := m.Dims()
	if cols != 4 || (rows != 3 && rows != 4) {
		return nil, errors.Errorf("transform must be 3x4 or 4x4, got %dx%d", rows, cols)
	}
	if rows == 4 {
		for col, expected := range []float64{0, 0, 0, 1} {
			if math.Abs(m.At(3, col)-expected) > defaultRotationTolerance {
				return nil, errors.Errorf("bottom row of transform must be [0 0 0 1], got %v at column %d", m.At(3, col), col)
			}
		}
	}
	rotation, err := NewRotationMatrixFromDense(m)
	if err != nil {
		return nil, err
	}
	if !rotation.IsRotation(defaultRotationTolerance) {
		return nil, errors.New("rotation block of transform is not a proper rotation")
	}
	translation := r3.Vector{X: m.At(0, 3), Y: m.At(1, 3), Z: m.At(2, 3)}
	if !isFiniteVector(translation) {
		return nil, errors.New("translation of transform has non-finite elements")
	}
	return NewTransform(rotation, translation), nil
}

// Rotation returns the rotation block.
func (tf *Transform) Rotation() *RotationMatrix {
	return tf.rotation
}

// Translation returns the translation column.
func (tf *Transform) Translation() r3.Vector {
	return tf.translation
}

// Apply maps p through the transform, R·p + t.
func (tf *Transform) Apply(p r3.Vector) r3.Vector {
	return tf.rotation.Mul(p).Add(tf.translation)
}

// Inverse returns the transform mapping back, [Rᵗ  -Rᵗ·t].
func (tf *Transform) Inverse() *Transform {
	return NewTransform(tf.rotation.Transpose(), tf.rotation.TransposeMul(tf.translation).Mul(-1))
}

// Compose returns tf∘other, the transform applying other first and then tf.
func (tf *Transform) Compose(other *Transform) *Transform {
	return NewTransform(tf.rotation.MulMatrix(other.rotation), tf.Apply(other.translation))
}

// Matrix returns the 4x4 homogeneous matrix of the transform.
func (tf *Transform) Matrix() *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			m.Set(row, col, tf.rotation.At(row, col))
		}
	}
	m.Set(0, 3, tf.translation.X)
	m.Set(1, 3, tf.translation.Y)
	m.Set(2, 3, tf.translation.Z)
	m.Set(3, 3, 1)
	return m
}

// TransformAlmostEqual reports whether the rotations and translations of a and b differ by less
// than tol element-wise.
func TransformAlmostEqual(a, b *Transform, tol float64) bool {
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			if math.Abs(a.rotation.At(row, col)-b.rotation.At(row, col)) > tol {
				return false
			}
		}
	}
	return a.translation.Sub(b.translation).Norm() <= tol
}

func isFiniteVector(v r3.Vector) bool {
	for _, f := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}
