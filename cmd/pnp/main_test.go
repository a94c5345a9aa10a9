package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/absolutepose/rimage/transform"
	"go.viam.com/absolutepose/spatialmath"
)

func writeScene(t *testing.T, scene sceneFile) string {
	t.Helper()
	data, err := json.Marshal(scene)
	test.That(t, err, test.ShouldBeNil)
	path := filepath.Join(t.TempDir(), "scene.json")
	test.That(t, os.WriteFile(path, data, 0o600), test.ShouldBeNil)
	return path
}

func testScene(t *testing.T) sceneFile {
	t.Helper()
	intrinsics := &transform.PinholeCameraIntrinsics{Width: 640, Height: 480, Fx: 800, Fy: 800, Ppx: 320, Ppy: 240}
	pose := spatialmath.NewTransform(
		(&spatialmath.R4AA{Theta: 0.4, RX: 0, RY: 1, RZ: 0}).RotationMatrix(),
		r3.Vector{X: 0.5, Y: 0.1, Z: -1},
	)
	scene := sceneFile{Intrinsics: intrinsics}
	cameraPoints := []r3.Vector{
		{X: -1, Y: -0.5, Z: 5}, {X: 1, Y: -0.8, Z: 6}, {X: 0.2, Y: 0.9, Z: 4},
		{X: -0.6, Y: 0.4, Z: 7}, {X: 0.9, Y: 0.6, Z: 5.5}, {X: 0, Y: 0, Z: 8},
	}
	for _, pc := range cameraPoints {
		px, ok := intrinsics.ProjectPoint(pc)
		test.That(t, ok, test.ShouldBeTrue)
		pw := pose.Apply(pc)
		scene.ImagePoints = append(scene.ImagePoints, [2]float64{px.X, px.Y})
		scene.WorldPoints = append(scene.WorldPoints, [3]float64{pw.X, pw.Y, pw.Z})
	}
	// one mismatched pixel
	scene.ImagePoints = append(scene.ImagePoints, [2]float64{600, 30})
	scene.WorldPoints = append(scene.WorldPoints, [3]float64{0, 0, 3})
	return scene
}

func TestEstimateCommand(t *testing.T) {
	path := writeScene(t, testScene(t))
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run([]string{"pnp", "estimate", "--input", path, "--seed", "3"})
	test.That(t, err, test.ShouldBeNil)

	output := out.String()
	test.That(t, output, test.ShouldContainSubstring, "pose (camera to world)")
	test.That(t, output, test.ShouldContainSubstring, "theta=0.400000")
	test.That(t, output, test.ShouldContainSubstring, "translation: (0.500000, 0.100000, -1.000000)")
	test.That(t, output, test.ShouldContainSubstring, "inliers: 6")
	test.That(t, output, test.ShouldContainSubstring, "INDEX")
	test.That(t, strings.Count(output, "\n"), test.ShouldBeGreaterThan, 10)
}

func TestEstimateCommandWarnsAboutDistortion(t *testing.T) {
	scene := testScene(t)
	scene.Distortion = &distortionConfig{Type: transform.BrownConradyDistortionType, Parameters: []float64{0.01}}
	path := writeScene(t, scene)

	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run([]string{"pnp", "estimate", "--input", path})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, errOut.String(), test.ShouldContainSubstring, "not undistorted")
}

func TestEstimateCommandLogFile(t *testing.T) {
	scene := testScene(t)
	scene.Distortion = &distortionConfig{Type: transform.BrownConradyDistortionType, Parameters: []float64{0.01}}
	path := writeScene(t, scene)
	logPath := filepath.Join(t.TempDir(), "pnp.log")

	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run([]string{"pnp", "--log-file", logPath, "estimate", "--input", path})
	test.That(t, err, test.ShouldBeNil)

	//nolint:gosec
	contents, err := os.ReadFile(logPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(contents), test.ShouldContainSubstring, "not undistorted")
}

func TestEstimateCommandErrors(t *testing.T) {
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run([]string{"pnp", "estimate", "--input", filepath.Join(t.TempDir(), "missing.json")})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "error reading scene file")

	path := writeScene(t, testScene(t))
	err = newApp(&out, &errOut).Run([]string{"pnp", "estimate", "--input", path, "--confidence", "1.5"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "confidence")

	scene := testScene(t)
	scene.WorldPoints = scene.WorldPoints[:2]
	path = writeScene(t, scene)
	err = newApp(&out, &errOut).Run([]string{"pnp", "estimate", "--input", path})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "insufficient correspondences")

	scene = testScene(t)
	scene.InitialPose = []float64{1, 2, 3}
	path = writeScene(t, scene)
	err = newApp(&out, &errOut).Run([]string{"pnp", "estimate", "--input", path})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "initial_pose")
}

func TestSceneInitialPose(t *testing.T) {
	scene := testScene(t)
	pose, err := scene.initialPose()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose, test.ShouldBeNil)

	scene.InitialPose = []float64{1, 0, 0, 1, 0, 1, 0, 2, 0, 0, 1, 3, 0, 0, 0, 1}
	pose, err = scene.initialPose()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Translation(), test.ShouldResemble, r3.Vector{X: 1, Y: 2, Z: 3})
}

func TestEstimateCommandWritesPlot(t *testing.T) {
	path := writeScene(t, testScene(t))
	plotPath := filepath.Join(t.TempDir(), "residuals.png")
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run([]string{"pnp", "estimate", "--input", path, "--plot", plotPath})
	test.That(t, err, test.ShouldBeNil)

	info, err := os.Stat(plotPath)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, info.Size(), test.ShouldBeGreaterThan, 0)
}

func TestSchemaCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	err := newApp(&out, &errOut).Run([]string{"pnp", "schema"})
	test.That(t, err, test.ShouldBeNil)

	var schemas map[string]interface{}
	test.That(t, json.Unmarshal(out.Bytes(), &schemas), test.ShouldBeNil)
	test.That(t, schemas, test.ShouldContainKey, "attributes")
	test.That(t, schemas, test.ShouldContainKey, "scene")
	test.That(t, out.String(), test.ShouldContainSubstring, "pixel_tolerance")
	test.That(t, out.String(), test.ShouldContainSubstring, "image_points")
}
