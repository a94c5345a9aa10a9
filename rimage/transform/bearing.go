package transform

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrSingularCameraMatrix is returned when a camera matrix is not 3x3, has non-finite entries,
	// or cannot be inverted.
	ErrSingularCameraMatrix = errors.New("camera matrix is singular")
	// ErrInvalidRay is returned when a pixel does not back-project to a finite, non-zero ray.
	ErrInvalidRay = errors.New("pixel does not back-project to a valid ray")
)

// InvertCameraMatrix checks that k is a finite, invertible 3x3 matrix and returns its inverse.
func InvertCameraMatrix(k mat.Matrix) (*mat.Dense, error) {
	if k == nil {
		return nil, errors.Wrap(ErrSingularCameraMatrix, "camera matrix is nil")
	}
	if r, c := k.Dims(); r != 3 || c != 3 {
		return nil, errors.Wrapf(ErrSingularCameraMatrix, "camera matrix must be 3x3, got %dx%d", r, c)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if v := k.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Wrapf(ErrSingularCameraMatrix, "camera matrix element (%d, %d) is %v", i, j, v)
			}
		}
	}
	var inv mat.Dense
	// gonum reports a Condition error for near-singular input, which is treated as singular.
	if err := inv.Inverse(k); err != nil {
		return nil, errors.Wrap(ErrSingularCameraMatrix, err.Error())
	}
	return &inv, nil
}

// BearingVector back-projects a pixel through the inverse camera matrix and returns the unit ray
// direction in the camera frame. Lens distortion is not corrected.
func BearingVector(kInv mat.Matrix, pt r2.Point) (r3.Vector, error) {
	ray := r3.Vector{
		X: kInv.At(0, 0)*pt.X + kInv.At(0, 1)*pt.Y + kInv.At(0, 2),
		Y: kInv.At(1, 0)*pt.X + kInv.At(1, 1)*pt.Y + kInv.At(1, 2),
		Z: kInv.At(2, 0)*pt.X + kInv.At(2, 1)*pt.Y + kInv.At(2, 2),
	}
	norm := ray.Norm()
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return r3.Vector{}, errors.Wrapf(ErrInvalidRay, "pixel (%v, %v)", pt.X, pt.Y)
	}
	return ray.Mul(1 / norm), nil
}

// BearingVectors converts every image point into a unit bearing vector, ray = normalize(K⁻¹·[u v 1]ᵗ).
// The output is index aligned with imagePoints.
func BearingVectors(imagePoints []r2.Point, k mat.Matrix) ([]r3.Vector, error) {
	kInv, err := InvertCameraMatrix(k)
	if err != nil {
		return nil, err
	}
	bearings := make([]r3.Vector, len(imagePoints))
	for i, pt := range imagePoints {
		bearing, err := BearingVector(kInv, pt)
		if err != nil {
			return nil, errors.Wrapf(err, "image point %d", i)
		}
		bearings[i] = bearing
	}
	return bearings, nil
}
