package pnp

import (
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/absolutepose/spatialmath"
)

// Result is a camera pose together with the correspondences that support it.
type Result struct {
	// Pose maps camera frame points into the world frame.
	Pose              *spatialmath.Transform
	InlierImagePoints []r2.Point
	InlierWorldPoints []r3.Vector
	// InlierIndices are positions in the input lists, ascending.
	InlierIndices []int
	Iterations    int
	Residuals     ResidualSummary
	// Elapsed is the wall time of the Estimate call.
	Elapsed time.Duration
}

// AssemblePose turns a finished consensus state into a Result. Inliers are taken from the mask,
// so they keep the order of the input lists.
func AssemblePose(state *ConsensusState, imagePoints []r2.Point, worldPoints []r3.Vector) (*Result, error) {
	if state == nil {
		return nil, errors.New("no consensus state to assemble")
	}
	if err := state.Err(); err != nil {
		return nil, err
	}
	if state.Phase != PhaseDone || !state.HasBest {
		return nil, errors.Errorf("cannot assemble a pose from a %s consensus state", state.Phase)
	}
	if len(state.InlierMask) != len(imagePoints) || len(imagePoints) != len(worldPoints) {
		return nil, errors.Wrapf(ErrInsufficientCorrespondences,
			"inlier mask has %d entries for %d image and %d world points", len(state.InlierMask), len(imagePoints), len(worldPoints))
	}

	mask := state.InlierMask
	return &Result{
		Pose:              state.Best.Transform(),
		InlierImagePoints: lo.Filter(imagePoints, func(_ r2.Point, i int) bool { return mask[i] }),
		InlierWorldPoints: lo.Filter(worldPoints, func(_ r3.Vector, i int) bool { return mask[i] }),
		InlierIndices:     lo.Filter(lo.Range(len(mask)), func(i, _ int) bool { return mask[i] }),
		Iterations:        state.Iterations,
	}, nil
}
