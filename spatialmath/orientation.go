package spatialmath

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// QuaternionAlmostEqual is an equality test for quaternions. q and -q are the same rotation.
func QuaternionAlmostEqual(a, b quat.Number, tol float64) bool {
	matches := func(s float64) bool {
		return math.Abs(a.Real-s*b.Real) < tol &&
			math.Abs(a.Imag-s*b.Imag) < tol &&
			math.Abs(a.Jmag-s*b.Jmag) < tol &&
			math.Abs(a.Kmag-s*b.Kmag) < tol
	}
	return matches(1) || matches(-1)
}

// OrientationAlmostEqual will return a bool describing whether 2 rotations are approximately the
// same.
func OrientationAlmostEqual(r1, r2 *RotationMatrix, tol float64) bool {
	return QuaternionAlmostEqual(r1.Quaternion(), r2.Quaternion(), tol)
}

// OrientationBetween returns the rotation taking r1 to r2, r2·r1ᵗ.
func OrientationBetween(r1, r2 *RotationMatrix) *RotationMatrix {
	return r2.MulMatrix(r1.Transpose())
}

// AngleBetween returns the angle in radians of the rotation taking r1 to r2.
func AngleBetween(r1, r2 *RotationMatrix) float64 {
	return OrientationBetween(r1, r2).AxisAngles().Theta
}
