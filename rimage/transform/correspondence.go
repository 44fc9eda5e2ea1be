// Package transform relates the color camera's pixel grid to the depth camera's grid.
//
// It holds the per-frame color to depth correspondence produced by the sensor calibration
// function, a stand-in for that function, and the engine that samples depth through the
// correspondence into color space.
package transform

import (
	"math"

	"go.viam.com/coordmap/rimage"
)

// DepthSpacePoint is a sub-pixel coordinate on the depth grid.
type DepthSpacePoint struct {
	X, Y float32
}

// SentinelPoint marks a color pixel that no depth pixel maps to.
var SentinelPoint = DepthSpacePoint{X: float32(math.Inf(-1)), Y: float32(math.Inf(-1))}

// IsSentinel reports whether either coordinate is negative infinity.
func (p DepthSpacePoint) IsSentinel() bool {
	return math.IsInf(float64(p.X), -1) || math.IsInf(float64(p.Y), -1)
}

// Correspondence holds exactly one DepthSpacePoint per color pixel, row-major. It is refreshed
// every tick by the calibration function and only read by the alignment engine.
type Correspondence struct {
	width, height int
	points        []DepthSpacePoint
}

// NewCorrespondence allocates a correspondence for a color frame with every entry unmapped.
func NewCorrespondence(colorWidth, colorHeight int) *Correspondence {
	c := &Correspondence{
		width:  colorWidth,
		height: colorHeight,
		points: make([]DepthSpacePoint, colorWidth*colorHeight),
	}
	c.Reset()
	return c
}

// NewCorrespondenceFromPoints wraps points, which must hold exactly colorWidth*colorHeight entries.
func NewCorrespondenceFromPoints(colorWidth, colorHeight int, points []DepthSpacePoint) (*Correspondence, error) {
	if len(points) != colorWidth*colorHeight {
		return nil, rimage.NewBufferSizeMismatchError("correspondence", colorWidth*colorHeight, len(points))
	}
	return &Correspondence{width: colorWidth, height: colorHeight, points: points}, nil
}

// Width is the color frame width this correspondence was built for.
func (c *Correspondence) Width() int {
	return c.width
}

// Height is the color frame height this correspondence was built for.
func (c *Correspondence) Height() int {
	return c.height
}

// Len returns the number of entries.
func (c *Correspondence) Len() int {
	return len(c.points)
}

// Points exposes the entries without copying. Only the calibration function writes to it.
func (c *Correspondence) Points() []DepthSpacePoint {
	return c.points
}

// Reset marks every entry unmapped.
func (c *Correspondence) Reset() {
	for i := range c.points {
		c.points[i] = SentinelPoint
	}
}

// CheckSize verifies the entry count matches a colorWidth x colorHeight frame.
func (c *Correspondence) CheckSize(colorWidth, colorHeight int) error {
	if expected := colorWidth * colorHeight; len(c.points) != expected {
		return rimage.NewBufferSizeMismatchError("correspondence", expected, len(c.points))
	}
	return nil
}
