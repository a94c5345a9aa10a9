// Package main is the pnp command. It estimates a camera pose from a JSON file of image to world
// point correspondences.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/invopop/jsonschema"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/absolutepose/logging"
	"go.viam.com/absolutepose/rimage/transform"
	"go.viam.com/absolutepose/spatialmath"
	"go.viam.com/absolutepose/vision/pnp"
)

const (
	flagInput      = "input"
	flagSeed       = "seed"
	flagIterations = "iterations"
	flagTolerance  = "tolerance"
	flagConfidence = "confidence"
	flagWorkers    = "workers"
	flagDebug      = "debug"
	flagPlot       = "plot"
	flagLogFile    = "log-file"
)

// sceneFile is the input format of the estimate command.
type sceneFile struct {
	Intrinsics  *transform.PinholeCameraIntrinsics `json:"intrinsics"`
	Distortion  *distortionConfig                  `json:"distortion,omitempty"`
	ImagePoints [][2]float64                       `json:"image_points"`
	WorldPoints [][3]float64                       `json:"world_points"`
	// InitialPose is an optional 4x4 camera-to-world matrix, row major.
	InitialPose []float64 `json:"initial_pose,omitempty"`
}

type distortionConfig struct {
	Type       transform.DistortionType `json:"type"`
	Parameters []float64                `json:"parameters"`
}

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "pnp",
		Usage:     "estimate camera poses from 2D-3D correspondences",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
			&cli.PathFlag{
				Name:  flagLogFile,
				Usage: "also write logs to a rotated `FILE`",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "estimate",
				Usage:     "run RANSAC pose estimation on a scene file",
				UsageText: "pnp estimate --input scene.json [--seed N] [--iterations N] [--tolerance PX] [--confidence P] [--workers N]",
				Flags: []cli.Flag{
					&cli.PathFlag{
						Name:     flagInput,
						Aliases:  []string{"i"},
						Required: true,
						Usage:    "scene `FILE` with intrinsics, image_points and world_points",
					},
					&cli.Int64Flag{Name: flagSeed, Usage: "random seed", Value: pnp.DefaultSeed},
					&cli.IntFlag{Name: flagIterations, Usage: "maximum RANSAC iterations", Value: pnp.DefaultMaxIterations},
					&cli.Float64Flag{Name: flagTolerance, Usage: "inlier tolerance in pixels", Value: pnp.DefaultPixelTolerance},
					&cli.Float64Flag{Name: flagConfidence, Usage: "stop early at this success probability; 0 disables"},
					&cli.IntFlag{Name: flagWorkers, Usage: "number of parallel shards", Value: 1},
					&cli.PathFlag{Name: flagPlot, Usage: "write a residual plot to `FILE` (.png, .svg or .pdf)"},
				},
				Action: estimateAction,
			},
			{
				Name:   "schema",
				Usage:  "print the JSON schemas of the estimator attributes and the scene file",
				Action: schemaAction,
			},
		},
	}
}

// newCLILogger returns the command logger and a function releasing its outputs.
func newCLILogger(c *cli.Context) (logging.Logger, func()) {
	logger := logging.NewBlankLogger("pnp")
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	if c.Bool(flagDebug) {
		logger.SetLevel(logging.DEBUG)
	} else {
		logger.SetLevel(logging.WARN)
	}
	cleanup := func() { utils.UncheckedError(logger.Sync()) }
	if path := c.Path(flagLogFile); path != "" {
		fileAppender := logging.NewFileAppender(path)
		logger.AddAppender(fileAppender)
		cleanup = func() {
			utils.UncheckedError(logger.Sync())
			utils.UncheckedError(fileAppender.Close())
		}
	}
	return logger, cleanup
}

func estimateAction(c *cli.Context) error {
	logger, cleanup := newCLILogger(c)
	defer cleanup()

	conf, err := pnp.NewConfigFromAttributes(map[string]interface{}{
		"max_iterations":  c.Int(flagIterations),
		"pixel_tolerance": c.Float64(flagTolerance),
		"confidence":      c.Float64(flagConfidence),
		"seed":            c.Int64(flagSeed),
		"workers":         c.Int(flagWorkers),
	})
	if err != nil {
		return err
	}

	scene, err := readSceneFile(c.Path(flagInput))
	if err != nil {
		return err
	}
	imagePoints, worldPoints := scene.correspondences()
	initialPose, err := scene.initialPose()
	if err != nil {
		return err
	}

	estimator, err := pnp.NewEstimator(conf, logger)
	if err != nil {
		return err
	}
	var distortion transform.Distorter
	if scene.Distortion != nil {
		distortion, err = transform.NewDistorter(scene.Distortion.Type, scene.Distortion.Parameters)
		if err != nil {
			return err
		}
	}
	if err := estimator.SetCameraParameters(scene.Intrinsics.GetCameraMatrix(), distortion); err != nil {
		return err
	}

	result, err := estimator.Estimate(c.Context, imagePoints, worldPoints, nil, initialPose)
	if err != nil {
		return err
	}
	printResult(c.App.Writer, result)

	if plotPath := c.Path(flagPlot); plotPath != "" {
		k := scene.Intrinsics.GetCameraMatrix()
		threshold := pnp.AngularThreshold(conf.PixelTolerance, transform.MeanFocalLength(k))
		if err := writeResidualPlot(plotPath, result, imagePoints, worldPoints, k, threshold); err != nil {
			return err
		}
		logger.Infof("wrote residual plot to %s", plotPath)
	}
	return nil
}

func schemaAction(c *cli.Context) error {
	schemas := map[string]*jsonschema.Schema{
		"attributes": pnp.ConfigSchema(),
		"scene":      jsonschema.Reflect(&sceneFile{}),
	}
	data, err := json.MarshalIndent(schemas, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, string(data))
	return err
}

func readSceneFile(path string) (*sceneFile, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading scene file")
	}
	var scene sceneFile
	if err := json.Unmarshal(data, &scene); err != nil {
		return nil, errors.Wrapf(err, "error parsing scene file %q", path)
	}
	if err := scene.Intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return &scene, nil
}

func (s *sceneFile) correspondences() ([]r2.Point, []r3.Vector) {
	imagePoints := make([]r2.Point, 0, len(s.ImagePoints))
	for _, pt := range s.ImagePoints {
		imagePoints = append(imagePoints, r2.Point{X: pt[0], Y: pt[1]})
	}
	worldPoints := make([]r3.Vector, 0, len(s.WorldPoints))
	for _, pt := range s.WorldPoints {
		worldPoints = append(worldPoints, r3.Vector{X: pt[0], Y: pt[1], Z: pt[2]})
	}
	return imagePoints, worldPoints
}

func (s *sceneFile) initialPose() (*spatialmath.Transform, error) {
	if len(s.InitialPose) == 0 {
		return nil, nil
	}
	if len(s.InitialPose) != 16 {
		return nil, errors.Errorf("initial_pose must have 16 values, got %d", len(s.InitialPose))
	}
	return spatialmath.NewTransformFromDense(mat.NewDense(4, 4, s.InitialPose))
}

func printResult(w io.Writer, result *pnp.Result) {
	fmt.Fprintf(w, "pose (camera to world):\n%v\n\n", mat.Formatted(result.Pose.Matrix(), mat.Squeeze()))
	aa := result.Pose.Rotation().AxisAngles()
	fmt.Fprintf(w, "orientation: theta=%.6f axis=(%.6f, %.6f, %.6f)\n", aa.Theta, aa.RX, aa.RY, aa.RZ)
	tr := result.Pose.Translation()
	fmt.Fprintf(w, "translation: (%.6f, %.6f, %.6f)\n", tr.X, tr.Y, tr.Z)
	fmt.Fprintf(w, "iterations: %d, inliers: %d, mean residual: %.3g\n\n",
		result.Iterations, len(result.InlierIndices), result.Residuals.Mean)

	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Index", "Image", "World"})
	for n, idx := range result.InlierIndices {
		px, pw := result.InlierImagePoints[n], result.InlierWorldPoints[n]
		t.AppendRow(table.Row{
			n + 1,
			idx,
			fmt.Sprintf("(%.2f, %.2f)", px.X, px.Y),
			fmt.Sprintf("(%.4f, %.4f, %.4f)", pw.X, pw.Y, pw.Z),
		})
	}
	fmt.Fprintln(w, t.Render())
}
