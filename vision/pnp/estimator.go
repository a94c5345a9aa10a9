package pnp

import (
	"context"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/montanaflynn/stats"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/absolutepose/logging"
	"go.viam.com/absolutepose/rimage/transform"
	"go.viam.com/absolutepose/spatialmath"
	"go.viam.com/absolutepose/utils"
)

// ResidualSummary describes the angular residuals, 1 − cos θ, of the inliers of a pose.
type ResidualSummary struct {
	Mean   float64
	Median float64
	Max    float64
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithSolver replaces the default GrunertSolver.
func WithSolver(solver MinimalSolver) Option {
	return func(e *Estimator) {
		e.solver = solver
	}
}

// WithSource replaces the math/rand backed sampling source. It is called once per shard with the
// shard's seed.
func WithSource(newSource func(seed int64) utils.Source) Option {
	return func(e *Estimator) {
		e.newSource = newSource
	}
}

// WithClock replaces the wall clock used to time Estimate calls.
func WithClock(c clock.Clock) Option {
	return func(e *Estimator) {
		e.clock = c
	}
}

// Estimator computes camera poses from point correspondences. Camera parameters set through
// SetCameraParameters are shared by all Estimate calls; Estimate is safe for concurrent use.
type Estimator struct {
	conf      Config
	logger    logging.Logger
	solver    MinimalSolver
	newSource func(seed int64) utils.Source
	clock     clock.Clock

	mu           sync.RWMutex
	cameraMatrix *mat.Dense
	distortion   transform.Distorter
}

// NewEstimator returns an estimator for the given config. A nil config uses the defaults and a
// nil logger discards output.
func NewEstimator(conf *Config, logger logging.Logger, opts ...Option) (*Estimator, error) {
	if conf == nil {
		conf = NewDefaultConfig()
	}
	if err := conf.Validate("pnp"); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewBlankLogger("pnp")
	}
	e := &Estimator{
		conf:      *conf,
		logger:    logger,
		solver:    GrunertSolver{},
		newSource: utils.NewSource,
		clock:     clock.New(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.solver == nil {
		return nil, errors.New("solver cannot be nil")
	}
	if e.newSource == nil {
		return nil, errors.New("source constructor cannot be nil")
	}
	if e.clock == nil {
		return nil, errors.New("clock cannot be nil")
	}
	return e, nil
}

// SetCameraParameters validates and stores the camera matrix and an optional distortion model
// used by Estimate calls that pass no camera matrix. The distortion model is kept for callers
// but not applied to image points.
func (e *Estimator) SetCameraParameters(k *mat.Dense, distortion transform.Distorter) error {
	if k == nil {
		return errors.Wrap(transform.ErrSingularCameraMatrix, "camera matrix is nil")
	}
	if _, err := transform.InvertCameraMatrix(k); err != nil {
		return err
	}
	if distortion != nil {
		if err := distortion.CheckValid(); err != nil {
			return err
		}
		if distortion.ModelType() != transform.NoDistortionType {
			e.logger.Warnw("distortion model is stored but image points are not undistorted",
				"model", distortion.ModelType(), "parameters", distortion.Parameters())
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cameraMatrix = mat.DenseCopyOf(k)
	e.distortion = distortion
	return nil
}

// CameraParameters returns a copy of the stored camera matrix and the stored distortion model.
// The matrix is nil when none has been set.
func (e *Estimator) CameraParameters() (*mat.Dense, transform.Distorter) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cameraMatrix == nil {
		return nil, e.distortion
	}
	return mat.DenseCopyOf(e.cameraMatrix), e.distortion
}

// Estimate finds the camera-to-world pose best supported by the correspondences. imagePoints are
// pixel coordinates and worldPoints the matching world coordinates. A nil k uses the stored camera
// matrix. A non-nil initialPose is scored first and kept unless a sample does strictly better.
func (e *Estimator) Estimate(
	ctx context.Context,
	imagePoints []r2.Point,
	worldPoints []r3.Vector,
	k *mat.Dense,
	initialPose *spatialmath.Transform,
) (*Result, error) {
	start := e.clock.Now()
	if len(imagePoints) != len(worldPoints) {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"got %d image points and %d world points", len(imagePoints), len(worldPoints))
	}
	if len(imagePoints) < sampleSize {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"need at least %d correspondences, got %d", sampleSize, len(imagePoints))
	}
	for i := range imagePoints {
		if !utils.IsFinite(imagePoints[i].X, imagePoints[i].Y) {
			return nil, errors.Wrapf(ErrDegenerateConfiguration, "image point %d is not finite", i)
		}
		if !utils.IsFinite(worldPoints[i].X, worldPoints[i].Y, worldPoints[i].Z) {
			return nil, errors.Wrapf(ErrDegenerateConfiguration, "world point %d is not finite", i)
		}
	}

	if k == nil {
		e.mu.RLock()
		k = e.cameraMatrix
		e.mu.RUnlock()
		if k == nil {
			return nil, transform.NewNoIntrinsicsError("no camera matrix given and none set")
		}
	}

	bearings, err := transform.BearingVectors(imagePoints, k)
	if err != nil {
		return nil, multierr.Combine(ErrDegenerateConfiguration, err)
	}

	threshold := AngularThreshold(e.conf.PixelTolerance, transform.MeanFocalLength(k))
	e.logger.Debugw("estimating pose", "correspondences", len(imagePoints), "threshold", threshold)

	var initial *Hypothesis
	if initialPose != nil {
		h := HypothesisFromTransform(initialPose)
		initial = &h
	}

	engine := NewEngine(e.solver, threshold, &e.conf, e.newSource, e.logger.Sublogger("ransac"))
	state, err := engine.Run(ctx, bearings, worldPoints, initial)
	if err != nil {
		return nil, err
	}
	result, err := AssemblePose(state, imagePoints, worldPoints)
	if err != nil {
		e.logger.Debugw("pose estimation failed",
			"iterations", state.Iterations, "candidates", state.Candidates, "degenerate_samples", state.DegenerateSamples)
		return nil, err
	}

	residuals := make([]float64, 0, len(result.InlierIndices))
	for _, i := range result.InlierIndices {
		residuals = append(residuals, AngularResidual(state.Best, bearings[i], worldPoints[i]))
	}
	result.Residuals, err = summarizeResiduals(residuals)
	if err != nil {
		return nil, err
	}

	result.Elapsed = e.clock.Since(start)

	e.logger.Infow("estimated pose",
		"elapsed", result.Elapsed,
		"iterations", result.Iterations,
		"inliers", len(result.InlierIndices),
		"correspondences", len(imagePoints),
		"mean_residual", result.Residuals.Mean)
	return result, nil
}

func summarizeResiduals(residuals []float64) (ResidualSummary, error) {
	var summary ResidualSummary
	var err error
	if summary.Mean, err = stats.Mean(residuals); err != nil {
		return ResidualSummary{}, errors.Wrap(err, "summarizing residuals")
	}
	if summary.Median, err = stats.Median(residuals); err != nil {
		return ResidualSummary{}, errors.Wrap(err, "summarizing residuals")
	}
	if summary.Max, err = stats.Max(residuals); err != nil {
		return ResidualSummary{}, errors.Wrap(err, "summarizing residuals")
	}
	return summary, nil
}
