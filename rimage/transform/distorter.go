package transform

import "github.com/pkg/errors"

// DistortionType is the name of the distortion model.
type DistortionType string

const (
	// BrownConradyDistortionType is for simple lenses of narrow field easily modeled as a pinhole camera.
	BrownConradyDistortionType = DistortionType("brown_conrady")
	// InverseBrownConradyDistortionType undoes a Brown-Conrady distortion numerically.
	InverseBrownConradyDistortionType = DistortionType("inverse_brown_conrady")
	// NoDistortionType is the identity model.
	NoDistortionType = DistortionType("no_distortion")
)

// Distorter defines a Transform that takes an undistorted image and distorts it according to the model.
type Distorter interface {
	ModelType() DistortionType
	CheckValid() error
	Parameters() []float64
	Transform(x, y float64) (float64, float64)
}

// InvalidDistortionError is used when the distortion_parameters are invalid.
func InvalidDistortionError(msg string) error {
	return errors.Wrap(errors.New("invalid distortion_parameters"), msg)
}

// NewDistorter returns a Distorter given a valid DistortionType and its parameters.
func NewDistorter(distortionType DistortionType, parameters []float64) (Distorter, error) {
	switch distortionType {
	case BrownConradyDistortionType:
		return NewBrownConrady(parameters)
	case InverseBrownConradyDistortionType:
		return NewInverseBrownConrady(parameters)
	case NoDistortionType, "":
		if len(parameters) != 0 {
			return nil, errors.Errorf("%q distortion model takes no parameters, got %d", NoDistortionType, len(parameters))
		}
		return &NoDistortion{}, nil
	default:
		return nil, errors.Errorf("do not know how to parse %q distortion model", distortionType)
	}
}

// NoDistortion is the identity distortion model.
type NoDistortion struct{}

// ModelType returns the type of distortion model.
func (nd *NoDistortion) ModelType() DistortionType {
	return NoDistortionType
}

// CheckValid always succeeds.
func (nd *NoDistortion) CheckValid() error {
	return nil
}

// Parameters returns an empty list.
func (nd *NoDistortion) Parameters() []float64 {
	return []float64{}
}

// Transform returns the input point.
func (nd *NoDistortion) Transform(x, y float64) (float64, float64) {
	return x, y
}
