package pnp

import (
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"go.viam.com/test"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/absolutepose/rimage/transform"
	"go.viam.com/absolutepose/spatialmath"
)

var testIntrinsics = &transform.PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 800, Fy: 800, Ppx: 320, Ppy: 240}

// syntheticScene is a set of exact correspondences generated from a known camera-to-world pose,
// with some image points optionally moved far from their true projection.
type syntheticScene struct {
	pose         *spatialmath.Transform
	k            *mat.Dense
	cameraPoints []r3.Vector
	imagePoints  []r2.Point
	worldPoints  []r3.Vector
	outliers     map[int]bool
}

func testPose() *spatialmath.Transform {
	rotation := (&spatialmath.R4AA{Theta: 0.6, RX: 0.3, RY: -1, RZ: 0.2}).RotationMatrix()
	return spatialmath.NewTransform(rotation, r3.Vector{X: 1.5, Y: -0.7, Z: 2.25})
}

func newSyntheticScene(pose *spatialmath.Transform, n int, seed int64) *syntheticScene {
	//nolint:gosec
	r := rand.New(rand.NewSource(seed))
	s := &syntheticScene{
		pose:     pose,
		k:        testIntrinsics.GetCameraMatrix(),
		outliers: map[int]bool{},
	}
	for i := 0; i < n; i++ {
		px := r2.Point{X: 20 + 600*r.Float64(), Y: 20 + 440*r.Float64()}
		depth := 4 + 6*r.Float64()
		x, y, z := testIntrinsics.PixelToPoint(px.X, px.Y, depth)
		pc := r3.Vector{X: x, Y: y, Z: z}
		s.cameraPoints = append(s.cameraPoints, pc)
		s.imagePoints = append(s.imagePoints, px)
		s.worldPoints = append(s.worldPoints, pose.Apply(pc))
	}
	return s
}

// corrupt moves the image point at i by at least 200 pixels, wrapping inside the image.
func (s *syntheticScene) corrupt(i int) {
	px := s.imagePoints[i]
	s.imagePoints[i] = r2.Point{
		X: 20 + math.Mod(px.X-20+250, 600),
		Y: 20 + math.Mod(px.Y-20+200, 440),
	}
	s.outliers[i] = true
}

func (s *syntheticScene) inlierIndices() []int {
	var out []int
	for i := range s.imagePoints {
		if !s.outliers[i] {
			out = append(out, i)
		}
	}
	return out
}

func (s *syntheticScene) bearings(t *testing.T) []r3.Vector {
	t.Helper()
	bearings, err := transform.BearingVectors(s.imagePoints, s.k)
	test.That(t, err, test.ShouldBeNil)
	return bearings
}

func assertProperTransform(t *testing.T, tf *spatialmath.Transform) {
	t.Helper()
	rotation := tf.Rotation()
	rtr := rotation.Transpose().MulMatrix(rotation)
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			expected := 0.
			if row == col {
				expected = 1
			}
			test.That(t, rtr.At(row, col), test.ShouldAlmostEqual, expected, 1e-9)
		}
	}
	test.That(t, rotation.Det(), test.ShouldAlmostEqual, 1., 1e-9)

	m := tf.Matrix()
	test.That(t, m.At(3, 0), test.ShouldEqual, 0.)
	test.That(t, m.At(3, 1), test.ShouldEqual, 0.)
	test.That(t, m.At(3, 2), test.ShouldEqual, 0.)
	test.That(t, m.At(3, 3), test.ShouldEqual, 1.)
}

func assertPoseNear(t *testing.T, got, want *spatialmath.Transform, tol float64) {
	t.Helper()
	for row := 0; row < 3; row++ {
		for col := 0; col < 3; col++ {
			test.That(t, got.Rotation().At(row, col), test.ShouldAlmostEqual, want.Rotation().At(row, col), tol)
		}
	}
	test.That(t, got.Translation().X, test.ShouldAlmostEqual, want.Translation().X, tol)
	test.That(t, got.Translation().Y, test.ShouldAlmostEqual, want.Translation().Y, tol)
	test.That(t, got.Translation().Z, test.ShouldAlmostEqual, want.Translation().Z, tol)
}
