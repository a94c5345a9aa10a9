package pnp

import (
	"math"

	"github.com/golang/geo/r3"

	"go.viam.com/absolutepose/spatialmath"
	"go.viam.com/absolutepose/utils"
)

const (
	// collinearTolerance bounds the triangle area of the world points, relative to the squared
	// length of the longest side.
	collinearTolerance = 1e-6
	// parallelRayTolerance bounds |fi × fj| for every pair of bearings.
	parallelRayTolerance = 1e-6
	// coplanarRayTolerance bounds the triple product of the bearings.
	coplanarRayTolerance = 1e-12
	// rotationTolerance bounds the orthonormality error of a returned rotation.
	rotationTolerance = 1e-6
)

// GrunertSolver solves the three point pose problem from the law of cosines on the triangle of
// camera-to-point distances. With s2 = u·s1 and s3 = v·s1 the three distance equations reduce to
// a quartic in v; each positive real root gives the distances s1, s2, s3 and the pose follows
// from aligning the camera frame points sᵢ·fᵢ with the world points.
type GrunertSolver struct{}

// Solve implements MinimalSolver. Bearings must be unit vectors.
func (GrunertSolver) Solve(bearings, points [3]r3.Vector) []Hypothesis {
	if degenerateSample(bearings, points) {
		return nil
	}
	f1, f2, f3 := bearings[0], bearings[1], bearings[2]
	p1, p2, p3 := points[0], points[1], points[2]

	cosAlpha := f2.Dot(f3)
	cosBeta := f1.Dot(f3)
	cosGamma := f1.Dot(f2)

	b := p1.Sub(p3).Norm()
	// squared side lengths relative to b²; u and v are scale free
	a2 := p2.Sub(p3).Norm2() / (b * b)
	c2 := p1.Sub(p2).Norm2() / (b * b)

	// K(v) = 1 + v² − 2v·cosβ, so s1² = b² / K
	k := polynomial{1, -2 * cosBeta, 1}
	// u = N(v) / D(v)
	n := polyAdd(polynomial{-1, 0, 1}, polyScale(k, c2-a2))
	d := polynomial{-2 * cosGamma, 2 * cosAlpha}
	// N² − 2cosγ·N·D + (1 − c²K)·D² = 0
	quartic := polyAdd(
		polyAdd(polyMul(n, n), polyScale(polyMul(n, d), -2*cosGamma)),
		polyMul(polyAdd(polynomial{1}, polyScale(k, -c2)), polyMul(d, d)),
	)

	var hypotheses []Hypothesis
	for _, v := range realRoots(quartic) {
		if v <= 0 {
			continue
		}
		kv, _ := k.eval(v)
		nv, _ := n.eval(v)
		dv, _ := d.eval(v)
		if kv <= 0 || math.Abs(dv) < 1e-12 {
			continue
		}
		u := nv / dv
		if u <= 0 {
			continue
		}
		s1 := b / math.Sqrt(kv)
		camPoints := []r3.Vector{f1.Mul(s1), f2.Mul(u * s1), f3.Mul(v * s1)}
		rotation, translation, err := alignPoints(camPoints, points[:])
		if err != nil {
			continue
		}
		if !rotation.IsRotation(rotationTolerance) || !utils.IsFinite(translation.X, translation.Y, translation.Z) {
			continue
		}
		hypotheses = appendDistinct(hypotheses, Hypothesis{Rotation: rotation, Translation: translation})
	}
	return hypotheses
}

// degenerateSample reports whether the sample cannot determine a pose: coincident or collinear
// world points, nearly parallel rays, or rays lying in one plane.
func degenerateSample(bearings, points [3]r3.Vector) bool {
	for _, f := range bearings {
		if !utils.IsFinite(f.X, f.Y, f.Z) || math.Abs(f.Norm()-1) > 1e-6 {
			return true
		}
	}
	for _, p := range points {
		if !utils.IsFinite(p.X, p.Y, p.Z) {
			return true
		}
	}

	e1 := points[1].Sub(points[0])
	e2 := points[2].Sub(points[0])
	longest := math.Max(math.Max(e1.Norm2(), e2.Norm2()), points[2].Sub(points[1]).Norm2())
	if longest == 0 || e1.Cross(e2).Norm()/longest < collinearTolerance {
		return true
	}

	for i := 0; i < 3; i++ {
		for j := i + 1; j < 3; j++ {
			if bearings[i].Cross(bearings[j]).Norm() < parallelRayTolerance {
				return true
			}
		}
	}
	return math.Abs(bearings[0].Dot(bearings[1].Cross(bearings[2]))) < coplanarRayTolerance
}

// appendDistinct appends h unless an equivalent pose is already present. Nearly equal roots of
// the quartic produce the same pose twice.
func appendDistinct(hypotheses []Hypothesis, h Hypothesis) []Hypothesis {
	for _, existing := range hypotheses {
		if spatialmath.TransformAlmostEqual(existing.Transform(), h.Transform(), 1e-9) {
			return hypotheses
		}
	}
	return append(hypotheses, h)
}
