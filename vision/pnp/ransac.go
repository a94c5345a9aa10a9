package pnp

import (
	"context"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"go.viam.com/absolutepose/logging"
	"go.viam.com/absolutepose/utils"
)

// sampleSize is the number of correspondences drawn per iteration.
const sampleSize = 3

// Phase is the stage a consensus run finished in.
type Phase int

const (
	// PhaseIdle is the state before a run.
	PhaseIdle Phase = iota
	// PhaseDone means a hypothesis with at least one inlier was found.
	PhaseDone
	// PhaseFailed means no hypothesis had an inlier.
	PhaseFailed
)

// String returns the lower case name of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ConsensusState is the outcome of one Engine.Run. It is owned by the caller of Run and never
// shared between runs.
type ConsensusState struct {
	Phase Phase
	// Best is only meaningful when HasBest is set.
	Best        Hypothesis
	HasBest     bool
	InlierCount int
	// InlierMask is index aligned with the correspondences.
	InlierMask []bool
	// Iterations is the number of samples drawn.
	Iterations int
	// Candidates is the number of hypotheses the solver returned over all samples.
	Candidates int
	// DegenerateSamples counts samples for which the solver returned nothing.
	DegenerateSamples int
}

// Err returns the error kind of a failed state, or nil.
func (s *ConsensusState) Err() error {
	if s.Phase != PhaseFailed {
		return nil
	}
	if s.Candidates == 0 {
		return errors.Wrapf(ErrDegenerateConfiguration, "no candidate pose from %d samples", s.Iterations)
	}
	return errors.Wrapf(ErrNoConsensusFound, "%d candidate poses from %d samples had no inliers", s.Candidates, s.Iterations)
}

// better reports whether other has strictly more inliers than s.
func (s *ConsensusState) better(other *ConsensusState) bool {
	return other.HasBest && (!s.HasBest || other.InlierCount > s.InlierCount)
}

func (s *ConsensusState) adopt(h Hypothesis, count int, mask []bool) {
	s.Best = h
	s.HasBest = true
	s.InlierCount = count
	s.InlierMask = mask
}

// AngularThreshold converts a reprojection tolerance in pixels into the bound on 1 − cos θ used
// to classify inliers, 1 − cos(atan(√2·pixelTolerance / (2·focalLength))).
func AngularThreshold(pixelTolerance, focalLength float64) float64 {
	return 1 - math.Cos(math.Atan(math.Sqrt2*pixelTolerance/(2*focalLength)))
}

// AngularResidual is 1 − cos θ, θ being the angle between the observed bearing and the ray from
// the camera center to the world point under the hypothesis. Points at the camera center score 2.
func AngularResidual(h Hypothesis, bearing, point r3.Vector) float64 {
	pc := h.ToCamera(point)
	norm := pc.Norm()
	if norm == 0 {
		return 2
	}
	return 1 - bearing.Dot(pc.Mul(1/norm))
}

// RequiredIterations is the number of samples needed to draw one all-inlier sample with
// probability confidence, given an inlier ratio: log(1−p) / log(1−w³).
func RequiredIterations(confidence, inlierRatio float64) int {
	if confidence <= 0 || confidence >= 1 || inlierRatio <= 0 {
		return math.MaxInt
	}
	good := math.Pow(inlierRatio, sampleSize)
	if good >= 1 {
		return 0
	}
	required := math.Log(1-confidence) / math.Log(1-good)
	if math.IsNaN(required) || required > math.MaxInt32 {
		return math.MaxInt
	}
	return int(math.Ceil(required))
}

// Engine runs sample consensus over bearing/world point correspondences.
type Engine struct {
	solver        MinimalSolver
	threshold     float64
	maxIterations int
	confidence    float64
	workers       int
	seed          int64
	newSource     func(seed int64) utils.Source
	logger        logging.Logger
}

// NewEngine returns an engine classifying inliers with the given angular threshold and taking its
// budget, seed, and parallelism from conf.
func NewEngine(solver MinimalSolver, threshold float64, conf *Config, newSource func(seed int64) utils.Source, logger logging.Logger) *Engine {
	if newSource == nil {
		newSource = utils.NewSource
	}
	if logger == nil {
		logger = logging.NewBlankLogger("ransac")
	}
	workers := conf.Workers
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		solver:        solver,
		threshold:     threshold,
		maxIterations: conf.MaxIterations,
		confidence:    conf.Confidence,
		workers:       workers,
		seed:          conf.Seed,
		newSource:     newSource,
		logger:        logger,
	}
}

// Run searches for the hypothesis supported by the most correspondences. If initial is not nil it
// is scored before any sample and is only replaced by a strictly better hypothesis. The returned
// error is non-nil only when ctx is done; a failed search is reported through the state.
func (e *Engine) Run(ctx context.Context, bearings, points []r3.Vector, initial *Hypothesis) (*ConsensusState, error) {
	if len(bearings) != len(points) || len(points) < sampleSize {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences, "%d bearings and %d points", len(bearings), len(points))
	}

	seeded := &ConsensusState{}
	if initial != nil {
		count, mask := e.score(*initial, bearings, points)
		seeded.adopt(*initial, count, mask)
		e.logger.Debugw("scored initial pose", "inliers", count)
	}

	shards := e.workers
	if shards > e.maxIterations {
		shards = e.maxIterations
	}
	if shards < 1 {
		shards = 1
	}
	results := make([]*ConsensusState, shards)
	group, gctx := errgroup.WithContext(ctx)
	for shard := 0; shard < shards; shard++ {
		shard := shard
		budget := e.maxIterations / shards
		if shard < e.maxIterations%shards {
			budget++
		}
		group.Go(func() error {
			state, err := e.runShard(gctx, shard, shards, budget, bearings, points, seeded)
			results[shard] = state
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	merged := seeded
	totals := ConsensusState{}
	for _, state := range results {
		totals.Iterations += state.Iterations
		totals.Candidates += state.Candidates
		totals.DegenerateSamples += state.DegenerateSamples
		if merged.better(state) {
			merged = state
		}
	}
	final := &ConsensusState{
		Best:              merged.Best,
		HasBest:           merged.HasBest,
		InlierCount:       merged.InlierCount,
		InlierMask:        merged.InlierMask,
		Iterations:        totals.Iterations,
		Candidates:        totals.Candidates,
		DegenerateSamples: totals.DegenerateSamples,
	}
	if final.HasBest && final.InlierCount > 0 {
		final.Phase = PhaseDone
	} else {
		final.Phase = PhaseFailed
	}
	return final, nil
}

// runShard draws budget samples from the shard's own source. It starts from the seeded state so
// adaptive termination accounts for the initial pose.
func (e *Engine) runShard(
	ctx context.Context,
	shard, shards, budget int,
	bearings, points []r3.Vector,
	seeded *ConsensusState,
) (*ConsensusState, error) {
	src := e.newSource(utils.ShardSeed(e.seed, shard))
	state := &ConsensusState{}
	if seeded.HasBest {
		state.adopt(seeded.Best, seeded.InlierCount, seeded.InlierMask)
	}
	required := math.MaxInt
	if state.HasBest {
		required = e.shardRequired(state.InlierCount, len(points), shards)
	}

	var sample [sampleSize]int
	for state.Iterations < budget && state.Iterations < required {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state.Iterations++

		utils.SampleDistinctInts(sample[:], len(points), src)
		var sampleBearings, samplePoints [sampleSize]r3.Vector
		for i, idx := range sample {
			sampleBearings[i] = bearings[idx]
			samplePoints[i] = points[idx]
		}

		candidates := e.solver.Solve(sampleBearings, samplePoints)
		if len(candidates) == 0 {
			state.DegenerateSamples++
			continue
		}
		state.Candidates += len(candidates)
		for _, h := range candidates {
			count, mask := e.score(h, bearings, points)
			if state.HasBest && count <= state.InlierCount {
				continue
			}
			state.adopt(h, count, mask)
			required = e.shardRequired(count, len(points), shards)
			e.logger.Debugw("new best hypothesis", "shard", shard, "iteration", state.Iterations, "inliers", count)
		}
	}
	return state, nil
}

// shardRequired splits the adaptive iteration requirement evenly over the shards.
func (e *Engine) shardRequired(inliers, n, shards int) int {
	if e.confidence <= 0 || inliers == 0 {
		return math.MaxInt
	}
	required := RequiredIterations(e.confidence, float64(inliers)/float64(n))
	if required == math.MaxInt {
		return required
	}
	return (required + shards - 1) / shards
}

func (e *Engine) score(h Hypothesis, bearings, points []r3.Vector) (int, []bool) {
	mask := make([]bool, len(points))
	count := 0
	for i := range points {
		if AngularResidual(h, bearings[i], points[i]) < e.threshold {
			mask[i] = true
			count++
		}
	}
	return count, mask
}
