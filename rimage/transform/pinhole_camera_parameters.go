package transform

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gonum.org/v1/gonum/mat"
)

// ErrNoIntrinsics is when a camera does not have intrinsics parameters or other parameters.
var ErrNoIntrinsics = errors.New("camera intrinsic parameters are not available")

// NewNoIntrinsicsError is used when the intriniscs are not defined.
func NewNoIntrinsicsError(msg string) error {
	return errors.Wrap(ErrNoIntrinsics, msg)
}

// PinholeCameraIntrinsics holds the parameters necessary to do a perspective projection of a 3D scene to the 2D plane.
type PinholeCameraIntrinsics struct {
	Width  int     `json:"width_px"`
	Height int     `json:"height_px"`
	Fx     float64 `json:"fx"`
	Fy     float64 `json:"fy"`
	Ppx    float64 `json:"ppx"`
	Ppy    float64 `json:"ppy"`
}

// CheckValid checks if the fields for PinholeCameraIntrinsics have valid inputs.
func (params *PinholeCameraIntrinsics) CheckValid() error {
	if params == nil {
		return NewNoIntrinsicsError("Intrinsics do not exist")
	}
	if params.Width == 0 || params.Height == 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid size (%#v, %#v)", params.Width, params.Height))
	}
	if params.Fx <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fx = %#v", params.Fx))
	}
	if params.Fy <= 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid focal length Fy = %#v", params.Fy))
	}
	if params.Ppx < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal X point Ppx = %#v", params.Ppx))
	}
	if params.Ppy < 0 {
		return NewNoIntrinsicsError(fmt.Sprintf("Invalid principal Y point Ppy = %#v", params.Ppy))
	}
	return nil
}

// NewPinholeCameraIntrinsicsFromJSONFile takes in a file path to a JSON and turns it into PinholeCameraIntrinsics.
func NewPinholeCameraIntrinsicsFromJSONFile(jsonPath string) (*PinholeCameraIntrinsics, error) {
	//nolint:gosec
	jsonFile, err := os.Open(jsonPath)
	if err != nil {
		return nil, errors.Wrap(err, "error opening JSON file")
	}
	defer utils.UncheckedErrorFunc(jsonFile.Close)
	byteValue, err := io.ReadAll(jsonFile)
	if err != nil {
		return nil, errors.Wrap(err, "error reading JSON data")
	}
	intrinsics := &PinholeCameraIntrinsics{}
	if err := json.Unmarshal(byteValue, intrinsics); err != nil {
		return nil, errors.Wrap(err, "error parsing JSON string")
	}
	if err := intrinsics.CheckValid(); err != nil {
		return nil, err
	}
	return intrinsics, nil
}

// NewPinholeCameraIntrinsicsFromMatrix reads fx, fy, ppx and ppy from a zero-skew camera matrix.
// The image size is not part of the matrix and is left for the caller to set.
func NewPinholeCameraIntrinsicsFromMatrix(k mat.Matrix) (*PinholeCameraIntrinsics, error) {
	if r, c := k.Dims(); r != 3 || c != 3 {
		return nil, errors.Errorf("camera matrix must be 3x3, got %dx%d", r, c)
	}
	if k.At(0, 1) != 0 || k.At(1, 0) != 0 || k.At(2, 0) != 0 || k.At(2, 1) != 0 || k.At(2, 2) != 1 {
		return nil, errors.New("camera matrix is not a zero-skew pinhole matrix")
	}
	return &PinholeCameraIntrinsics{Fx: k.At(0, 0), Fy: k.At(1, 1), Ppx: k.At(0, 2), Ppy: k.At(1, 2)}, nil
}

// PixelToPoint transforms a pixel with depth to a 3D point cloud.
// The intrinsics parameters should be the ones of the sensor used to obtain the image that
// contains the pixel.
func (params *PinholeCameraIntrinsics) PixelToPoint(x, y, z float64) (float64, float64, float64) {
	if params == nil {
		return float64(0), float64(0), float64(0)
	}
	xOverZ := (x - params.Ppx) / params.Fx
	yOverZ := (y - params.Ppy) / params.Fy
	return xOverZ * z, yOverZ * z, z
}

// ProjectPoint projects a 3D point in the camera frame to sub-pixel image coordinates. The
// returned bool is false for points at or behind the camera plane.
func (params *PinholeCameraIntrinsics) ProjectPoint(pt r3.Vector) (r2.Point, bool) {
	if pt.Z <= 0 {
		return r2.Point{X: -1, Y: -1}, false
	}
	return r2.Point{
		X: (pt.X/pt.Z)*params.Fx + params.Ppx,
		Y: (pt.Y/pt.Z)*params.Fy + params.Ppy,
	}, true
}

// Contains reports whether a pixel falls inside the image bounds.
func (params *PinholeCameraIntrinsics) Contains(px r2.Point) bool {
	return px.X >= 0 && px.Y >= 0 && px.X < float64(params.Width) && px.Y < float64(params.Height)
}

// GetCameraMatrix creates a new camera matrix and returns it.
// Camera matrix:
// [[fx 0 ppx],
//
//	[0 fy ppy],
//	[0 0  1]]
func (params *PinholeCameraIntrinsics) GetCameraMatrix() *mat.Dense {
	if params == nil {
		return nil
	}
	cameraMatrix := mat.NewDense(3, 3, nil)
	cameraMatrix.Set(0, 0, params.Fx)
	cameraMatrix.Set(1, 1, params.Fy)
	cameraMatrix.Set(0, 2, params.Ppx)
	cameraMatrix.Set(1, 2, params.Ppy)
	cameraMatrix.Set(2, 2, 1)
	return cameraMatrix
}

// MeanFocalLength returns the average of the two focal lengths on the diagonal of a camera matrix,
// in pixels.
func MeanFocalLength(k mat.Matrix) float64 {
	return (math.Abs(k.At(0, 0)) + math.Abs(k.At(1, 1))) / 2
}
