package pnp

import "github.com/pkg/errors"

var (
	// ErrInsufficientCorrespondences is returned for fewer than three correspondences or for image and
	// world point lists of different lengths.
	ErrInsufficientCorrespondences = errors.New("insufficient correspondences")
	// ErrDegenerateConfiguration is returned when no sample yields a pose candidate, or when the
	// input cannot be turned into valid rays.
	ErrDegenerateConfiguration = errors.New("degenerate configuration")
	// ErrNoConsensusFound is returned when candidates were produced but none had a single inlier.
	ErrNoConsensusFound = errors.New("no consensus found")
)
