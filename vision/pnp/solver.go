package pnp

import (
	"github.com/golang/geo/r3"

	"go.viam.com/absolutepose/spatialmath"
)

// Hypothesis is one candidate camera pose. It maps camera frame points into the world frame,
// Pw = Rotation·Pc + Translation.
type Hypothesis struct {
	Rotation    *spatialmath.RotationMatrix
	Translation r3.Vector
}

// Transform returns the hypothesis as a rigid transform.
func (h Hypothesis) Transform() *spatialmath.Transform {
	return spatialmath.NewTransform(h.Rotation, h.Translation)
}

// ToCamera maps a world point into the camera frame, Rᵗ·(Pw − t).
func (h Hypothesis) ToCamera(pw r3.Vector) r3.Vector {
	return h.Rotation.TransposeMul(pw.Sub(h.Translation))
}

// MinimalSolver computes the candidate poses consistent with exactly three correspondences.
// An empty result means the sample was degenerate.
type MinimalSolver interface {
	Solve(bearings, points [3]r3.Vector) []Hypothesis
}

// HypothesisFromTransform converts a transform into a hypothesis.
func HypothesisFromTransform(tf *spatialmath.Transform) Hypothesis {
	return Hypothesis{Rotation: tf.Rotation(), Translation: tf.Translation()}
}
