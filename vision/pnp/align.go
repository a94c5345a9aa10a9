package pnp

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"go.viam.com/absolutepose/spatialmath"
)

// alignPoints finds the rigid motion (R, t) minimizing Σ|dst_i − (R·src_i + t)|² with the Kabsch
// method. A reflection in the SVD solution is flipped so R is always a proper rotation.
func alignPoints(src, dst []r3.Vector) (*spatialmath.RotationMatrix, r3.Vector, error) {
	if len(src) != len(dst) || len(src) < 3 {
		return nil, r3.Vector{}, errors.Errorf("need at least 3 point pairs to align, got %d and %d", len(src), len(dst))
	}
	srcCentroid, dstCentroid := centroid(src), centroid(dst)

	// cross covariance H = Σ (src_i − c_src)(dst_i − c_dst)ᵗ
	h := mat.NewDense(3, 3, nil)
	for i := range src {
		s := src[i].Sub(srcCentroid)
		d := dst[i].Sub(dstCentroid)
		sv := [3]float64{s.X, s.Y, s.Z}
		dv := [3]float64{d.X, d.Y, d.Z}
		for row := 0; row < 3; row++ {
			for col := 0; col < 3; col++ {
				h.Set(row, col, h.At(row, col)+sv[row]*dv[col])
			}
		}
	}

	var svd mat.SVD
	if ok := svd.Factorize(h, mat.SVDFull); !ok {
		return nil, r3.Vector{}, errors.New("failed to factorize cross covariance")
	}
	u, v := &mat.Dense{}, &mat.Dense{}
	svd.UTo(u)
	svd.VTo(v)

	// R = V·diag(1, 1, d)·Uᵗ with d = sign(det(V·Uᵗ))
	var vut mat.Dense
	vut.Mul(v, u.T())
	if mat.Det(&vut) < 0 {
		for row := 0; row < 3; row++ {
			v.Set(row, 2, -v.At(row, 2))
		}
		vut.Mul(v, u.T())
	}

	rotation, err := spatialmath.NewRotationMatrixFromDense(&vut)
	if err != nil {
		return nil, r3.Vector{}, err
	}
	translation := dstCentroid.Sub(rotation.Mul(srcCentroid))
	return rotation, translation, nil
}

func centroid(pts []r3.Vector) r3.Vector {
	var sum r3.Vector
	for _, pt := range pts {
		sum = sum.Add(pt)
	}
	return sum.Mul(1 / float64(len(pts)))
}
