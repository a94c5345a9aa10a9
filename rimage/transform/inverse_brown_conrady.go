package transform

// InverseBrownConrady maps distorted normalized points back to undistorted ones for a
// Brown-Conrady lens, by Newton-Raphson iteration on the forward model.
type InverseBrownConrady struct {
	BrownConrady
}

// NewInverseBrownConrady takes the same parameter list as NewBrownConrady.
func NewInverseBrownConrady(inp []float64) (*InverseBrownConrady, error) {
	forward, err := NewBrownConrady(inp)
	if err != nil {
		return nil, err
	}
	return &InverseBrownConrady{*forward}, nil
}

// CheckValid checks if the fields for InverseBrownConrady have valid inputs.
func (ibc *InverseBrownConrady) CheckValid() error {
	if ibc == nil {
		return InvalidDistortionError("InverseBrownConrady shaped distortion_parameters not provided")
	}
	return nil
}

// ModelType returns the type of distortion model.
func (ibc *InverseBrownConrady) ModelType() DistortionType {
	return InverseBrownConradyDistortionType
}

// Parameters returns the parameters of the distortion model as a list of floats.
func (ibc *InverseBrownConrady) Parameters() []float64 {
	if ibc == nil {
		return []float64{}
	}
	return ibc.BrownConrady.Parameters()
}

// Transform finds (xu, yu) such that the forward model maps it onto (xd, yd). It starts from the
// distorted point and stops after 20 iterations or once the residual is below 1e-10.
func (ibc *InverseBrownConrady) Transform(xd, yd float64) (float64, float64) {
	if ibc == nil {
		return xd, yd
	}
	const (
		maxIterations = 20
		tolerance     = 1e-10
	)
	k1, k2, k3 := ibc.RadialK1, ibc.RadialK2, ibc.RadialK3
	p1, p2 := ibc.TangentialP1, ibc.TangentialP2

	xu, yu := xd, yd
	for i := 0; i < maxIterations; i++ {
		xEst, yEst := ibc.BrownConrady.Transform(xu, yu)
		errX, errY := xEst-xd, yEst-yd
		if errX*errX+errY*errY < tolerance*tolerance {
			break
		}

		r2 := xu*xu + yu*yu
		radDist := 1. + k1*r2 + k2*r2*r2 + k3*r2*r2*r2
		dRad := 2. * (k1 + 2.*k2*r2 + 3.*k3*r2*r2)

		// Jacobian of the forward model.
		j00 := radDist + xu*xu*dRad + 2.*p1*yu + 6.*p2*xu
		j01 := xu*yu*dRad + 2.*p1*xu + 2.*p2*yu
		j10 := xu*yu*dRad + 2.*p2*yu + 2.*p1*xu
		j11 := radDist + yu*yu*dRad + 2.*p2*xu + 6.*p1*yu

		det := j00*j11 - j01*j10
		if det == 0 {
			break
		}
		xu -= (j11*errX - j01*errY) / det
		yu -= (-j10*errX + j00*errY) / det
	}
	return xu, yu
}
