package main

import (
	"fmt"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"go.viam.com/absolutepose/rimage/transform"
	"go.viam.com/absolutepose/vision/pnp"
)

// writeResidualPlot saves a scatter plot of the angular residual of every correspondence under
// the estimated pose, with the inlier threshold drawn as a horizontal line.
func writeResidualPlot(
	path string,
	result *pnp.Result,
	imagePoints []r2.Point,
	worldPoints []r3.Vector,
	k mat.Matrix,
	threshold float64,
) error {
	bearings, err := transform.BearingVectors(imagePoints, k)
	if err != nil {
		return err
	}
	h := pnp.HypothesisFromTransform(result.Pose)

	inlier := make(map[int]bool, len(result.InlierIndices))
	for _, i := range result.InlierIndices {
		inlier[i] = true
	}
	inlierPts := make(plotter.XYs, 0, len(result.InlierIndices))
	outlierPts := make(plotter.XYs, 0, len(imagePoints)-len(result.InlierIndices))
	for i := range bearings {
		pt := plotter.XY{X: float64(i), Y: pnp.AngularResidual(h, bearings[i], worldPoints[i])}
		if inlier[i] {
			inlierPts = append(inlierPts, pt)
		} else {
			outlierPts = append(outlierPts, pt)
		}
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("angular residuals, %d of %d inliers", len(inlierPts), len(bearings))
	p.X.Label.Text = "correspondence"
	p.Y.Label.Text = "1 - cos(angle)"

	inlierScatter, err := plotter.NewScatter(inlierPts)
	if err != nil {
		return errors.Wrap(err, "error plotting inliers")
	}
	p.Add(inlierScatter)
	p.Legend.Add("inlier", inlierScatter)
	if len(outlierPts) > 0 {
		outlierScatter, err := plotter.NewScatter(outlierPts)
		if err != nil {
			return errors.Wrap(err, "error plotting outliers")
		}
		outlierScatter.GlyphStyle.Shape = draw.CrossGlyph{}
		outlierScatter.GlyphStyle.Radius = vg.Points(4)
		p.Add(outlierScatter)
		p.Legend.Add("outlier", outlierScatter)
	}

	thresholdLine, err := plotter.NewLine(plotter.XYs{{X: 0, Y: threshold}, {X: float64(len(bearings) - 1), Y: threshold}})
	if err != nil {
		return errors.Wrap(err, "error plotting threshold")
	}
	thresholdLine.Width = vg.Points(1)
	thresholdLine.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
	p.Add(thresholdLine)
	p.Legend.Add("threshold", thresholdLine)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "error saving residual plot to %q", path)
	}
	return nil
}
