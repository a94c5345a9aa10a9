package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// RotationMatrix is a 3x3 matrix in row major order.
// m[3*r + c] is the element in the r'th row and c'th column.
type RotationMatrix struct {
	mat [9]float64
}

// NewRotationMatrix creates the rotation matrix from a slice of 9 values in row major order.
func NewRotationMatrix(m []float64) (*RotationMatrix, error) {
	if len(m) != 9 {
		return nil, errors.Errorf("input slice has %d elements, need exactly 9", len(m))
	}
	var rm RotationMatrix
	copy(rm.mat[:], m)
	for _, v := range rm.mat {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("rotation matrix has non-finite elements")
		}
	}
	return &rm, nil
}

// NewRotationMatrixFromDense reads the top-left 3x3 block of m.
func NewRotationMatrixFromDense(m mat.Matrix) (*RotationMatrix, error) {
	if r, c := m.Dims(); r < 3 || c < 3 {
		return nil, errors.Errorf("matrix is %dx%d, need at least 3x3", r, c)
	}
	data := make([]float64, 9)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			data[3*row+col] = m.At(row, col)
		}
	}
	return NewRotationMatrix(data)
}

// NewRotationMatrixFromRows creates a matrix whose rows are the given vectors.
func NewRotationMatrixFromRows(r0, r1, r2 r3.Vector) *RotationMatrix {
	return &RotationMatrix{[9]float64{r0.X, r0.Y, r0.Z, r1.X, r1.Y, r1.Z, r2.X, r2.Y, r2.Z}}
}

// NewIdentityRotationMatrix returns the matrix of the zero rotation.
func NewIdentityRotationMatrix() *RotationMatrix {
	return &RotationMatrix{[9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}}
}

// At returns the element at the given row and column.
func (rm *RotationMatrix) At(row, col int) float64 {
	return rm.mat[3*row+col]
}

// Row returns the row of the matrix as a vector.
func (rm *RotationMatrix) Row(row int) r3.Vector {
	return r3.Vector{X: rm.mat[3*row], Y: rm.mat[3*row+1], Z: rm.mat[3*row+2]}
}

// Col returns the column of the matrix as a vector.
func (rm *RotationMatrix) Col(col int) r3.Vector {
	return r3.Vector{X: rm.mat[col], Y: rm.mat[col+3], Z: rm.mat[col+6]}
}

// Mul returns R·v.
func (rm *RotationMatrix) Mul(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Row(0).Dot(v), Y: rm.Row(1).Dot(v), Z: rm.Row(2).Dot(v)}
}

// TransposeMul returns Rᵗ·v, which is the inverse rotation applied to v.
func (rm *RotationMatrix) TransposeMul(v r3.Vector) r3.Vector {
	return r3.Vector{X: rm.Col(0).Dot(v), Y: rm.Col(1).Dot(v), Z: rm.Col(2).Dot(v)}
}

// MulMatrix returns R·other.
func (rm *RotationMatrix) MulMatrix(other *RotationMatrix) *RotationMatrix {
	var out RotationMatrix
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			out.mat[3*row+col] = rm.Row(row).Dot(other.Col(col))
		}
	}
	return &out
}

// Transpose returns Rᵗ.
func (rm *RotationMatrix) Transpose() *RotationMatrix {
	return NewRotationMatrixFromRows(rm.Col(0), rm.Col(1), rm.Col(2))
}

// Det returns the determinant of the matrix.
func (rm *RotationMatrix) Det() float64 {
	return rm.Row(0).Dot(rm.Row(1).Cross(rm.Row(2)))
}

// IsRotation reports whether Rᵗ·R is the identity and det(R) is +1, both within tol.
func (rm *RotationMatrix) IsRotation(tol float64) bool {
	rtr := rm.Transpose().MulMatrix(rm)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			expected := 0.
			if row == col {
				expected = 1
			}
			if math.Abs(rtr.At(row, col)-expected) > tol {
				return false
			}
		}
	}
	return math.Abs(rm.Det()-1) <= tol
}

// Dense returns a copy of the matrix as a 3x3 gonum matrix.
func (rm *RotationMatrix) Dense() *mat.Dense {
	data := make([]float64, 9)
	copy(data, rm.mat[:])
	return mat.NewDense(3, 3, data)
}

// Quaternion returns the unit quaternion with a non-negative real part representing the
// rotation.
func (rm *RotationMatrix) Quaternion() quat.Number {
	m := func(row, col int) float64 { return rm.At(row, col) }
	var q quat.Number
	switch tr := m(0, 0) + m(1, 1) + m(2, 2); {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: 0.25 * s, Imag: (m(2, 1) - m(1, 2)) / s, Jmag: (m(0, 2) - m(2, 0)) / s, Kmag: (m(1, 0) - m(0, 1)) / s}
	case m(0, 0) > m(1, 1) && m(0, 0) > m(2, 2):
		s := math.Sqrt(1+m(0, 0)-m(1, 1)-m(2, 2)) * 2
		q = quat.Number{Real: (m(2, 1) - m(1, 2)) / s, Imag: 0.25 * s, Jmag: (m(0, 1) + m(1, 0)) / s, Kmag: (m(0, 2) + m(2, 0)) / s}
	case m(1, 1) > m(2, 2):
		s := math.Sqrt(1+m(1, 1)-m(0, 0)-m(2, 2)) * 2
		q = quat.Number{Real: (m(0, 2) - m(2, 0)) / s, Imag: (m(0, 1) + m(1, 0)) / s, Jmag: 0.25 * s, Kmag: (m(1, 2) + m(2, 1)) / s}
	default:
		s := math.Sqrt(1+m(2, 2)-m(0, 0)-m(1, 1)) * 2
		q = quat.Number{Real: (m(1, 0) - m(0, 1)) / s, Imag: (m(0, 2) + m(2, 0)) / s, Jmag: (m(1, 2) + m(2, 1)) / s, Kmag: 0.25 * s}
	}
	q = quat.Scale(1/quat.Abs(q), q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return q
}

// AxisAngles returns the orientation in axis angle representation.
func (rm *RotationMatrix) AxisAngles() *R4AA {
	return QuatToR4AA(rm.Quaternion())
}

// String prints the matrix one row per line.
func (rm *RotationMatrix) String() string {
	return fmt.Sprintf("[%.6f %.6f %.6f]\n[%.6f %.6f %.6f]\n[%.6f %.6f %.6f]",
		rm.mat[0], rm.mat[1], rm.mat[2], rm.mat[3], rm.mat[4], rm.mat[5], rm.mat[6], rm.mat[7], rm.mat[8])
}

// QuatToRotationMatrix converts a quaternion to a rotation matrix. The quaternion is normalized
// first.
func QuatToRotationMatrix(q quat.Number) *RotationMatrix {
	q = quat.Scale(1/quat.Abs(q), q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return &RotationMatrix{[9]float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	}}
}
