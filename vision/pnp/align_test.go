package pnp

import (
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/absolutepose/spatialmath"
)

func TestAlignPointsRecoversMotion(t *testing.T) {
	want := spatialmath.NewTransform(
		(&spatialmath.R4AA{Theta: 2.1, RX: -0.4, RY: 0.5, RZ: 1}).RotationMatrix(),
		r3.Vector{X: -3, Y: 0.25, Z: 7},
	)
	src := []r3.Vector{{X: 1, Y: 0, Z: 5}, {X: -1, Y: 2, Z: 6}, {X: 0.5, Y: -1.5, Z: 4}, {X: 2, Y: 2, Z: 9}}
	dst := make([]r3.Vector, len(src))
	for i, p := range src {
		dst[i] = want.Apply(p)
	}

	for _, n := range []int{3, 4} {
		rotation, translation, err := alignPoints(src[:n], dst[:n])
		test.That(t, err, test.ShouldBeNil)
		got := spatialmath.NewTransform(rotation, translation)
		assertProperTransform(t, got)
		assertPoseNear(t, got, want, 1e-9)
	}
}

func TestAlignPointsAvoidsReflection(t *testing.T) {
	// mirrored copy of a planar triangle; the best proper rotation still has det +1
	src := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	dst := []r3.Vector{{X: 0, Y: 0, Z: 0}, {X: -1, Y: 0, Z: 0}, {X: 0, Y: 1, Z: 0}}
	rotation, _, err := alignPoints(src, dst)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, rotation.Det(), test.ShouldAlmostEqual, 1., 1e-9)
	test.That(t, rotation.IsRotation(1e-9), test.ShouldBeTrue)
}

func TestAlignPointsNeedsThreePairs(t *testing.T) {
	_, _, err := alignPoints([]r3.Vector{{}, {X: 1}}, []r3.Vector{{}, {X: 1}})
	test.That(t, err, test.ShouldNotBeNil)

	_, _, err = alignPoints([]r3.Vector{{}, {X: 1}, {Y: 1}}, []r3.Vector{{}, {X: 1}})
	test.That(t, err, test.ShouldNotBeNil)
}
