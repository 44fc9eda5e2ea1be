package transform

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"go.viam.com/coordmap/rimage"
)

// A CoordinateMapper is the sensor calibration function: given the current depth frame it fills
// out with the depth-space coordinate of every color pixel, or SentinelPoint.
type CoordinateMapper interface {
	MapColorFrameToDepthSpace(ctx context.Context, depth *rimage.DepthFrame, out *Correspondence) error
}

// MapperConfig describes an axis-aligned warp between the two cameras through one pair of
// matching points in each image. The first point of each pair is the top-left corner of the
// shared field of view and the second the bottom-right.
type MapperConfig struct {
	ColorInputSize  image.Point   `json:"color_input_size"`
	ColorWarpPoints []image.Point `json:"color_warp_points"`

	DepthInputSize  image.Point   `json:"depth_input_size"`
	DepthWarpPoints []image.Point `json:"depth_warp_points"`
}

// CheckValid returns an error if the config cannot define a warp.
func (config MapperConfig) CheckValid() error {
	if config.ColorInputSize.X <= 0 ||
		config.ColorInputSize.Y <= 0 {
		return errors.Errorf("invalid ColorInputSize %#v", config.ColorInputSize)
	}

	if config.DepthInputSize.X <= 0 ||
		config.DepthInputSize.Y <= 0 {
		return errors.Errorf("invalid DepthInputSize %#v", config.DepthInputSize)
	}

	if len(config.ColorWarpPoints) != 2 {
		return errors.Errorf("invalid ColorWarpPoints, has to be 2 is %d", len(config.ColorWarpPoints))
	}

	if len(config.DepthWarpPoints) != 2 {
		return errors.Errorf("invalid DepthWarpPoints, has to be 2 is %d", len(config.DepthWarpPoints))
	}

	if config.ColorWarpPoints[0].X == config.ColorWarpPoints[1].X ||
		config.ColorWarpPoints[0].Y == config.ColorWarpPoints[1].Y {
		return errors.Errorf("ColorWarpPoints %v do not span an area", config.ColorWarpPoints)
	}

	return nil
}

// IdentityMapperConfig maps a color frame onto a depth frame of the same size pixel for pixel.
func IdentityMapperConfig(width, height int) MapperConfig {
	size := image.Point{width, height}
	corners := []image.Point{{0, 0}, {width - 1, height - 1}}
	return MapperConfig{
		ColorInputSize:  size,
		ColorWarpPoints: corners,
		DepthInputSize:  size,
		DepthWarpPoints: corners,
	}
}

// WarpMapper is a naive CoordinateMapper that ignores lens models and depth dependent parallax.
// It is good enough to exercise the pipeline without a sensor and for cameras that were
// registered in hardware; real sensors supply their own mapper.
type WarpMapper struct {
	config MapperConfig
	// precomputed depth coordinate for every color column and row.
	xs, ys []float32
}

// NewWarpMapper precomputes the warp described by config.
func NewWarpMapper(config MapperConfig) (*WarpMapper, error) {
	if err := config.CheckValid(); err != nil {
		return nil, err
	}

	axis := func(n, c0, c1, d0, d1 int) []float32 {
		scale := float64(d1-d0) / float64(c1-c0)
		out := make([]float32, n)
		for i := range out {
			out[i] = float32(float64(d0) + float64(i-c0)*scale)
		}
		return out
	}

	cp, dp := config.ColorWarpPoints, config.DepthWarpPoints
	return &WarpMapper{
		config: config,
		xs:     axis(config.ColorInputSize.X, cp[0].X, cp[1].X, dp[0].X, dp[1].X),
		ys:     axis(config.ColorInputSize.Y, cp[0].Y, cp[1].Y, dp[0].Y, dp[1].Y),
	}, nil
}

// MapColorFrameToDepthSpace fills out for the given depth frame. Color pixels that land outside
// the depth grid, or on a depth sample of 0 (no reading), are marked with SentinelPoint.
func (wm *WarpMapper) MapColorFrameToDepthSpace(ctx context.Context, depth *rimage.DepthFrame, out *Correspondence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == nil {
		return errors.New("no depth frame to map against")
	}
	if depth.Width() != wm.config.DepthInputSize.X || depth.Height() != wm.config.DepthInputSize.Y {
		return rimage.NewBufferSizeMismatchError("depth frame",
			wm.config.DepthInputSize.X*wm.config.DepthInputSize.Y, depth.Len())
	}
	if err := out.CheckSize(wm.config.ColorInputSize.X, wm.config.ColorInputSize.Y); err != nil {
		return err
	}

	points := out.Points()
	width := len(wm.xs)
	for row, y := range wm.ys {
		depthY := int(y + 0.5)
		rowValid := y > -0.5 && depthY < depth.Height()
		line := points[row*width : (row+1)*width]
		for col, x := range wm.xs {
			depthX := int(x + 0.5)
			if !rowValid || x <= -0.5 || depthX >= depth.Width() || depth.GetDepth(depthX, depthY) == 0 {
				line[col] = SentinelPoint
				continue
			}
			line[col] = DepthSpacePoint{X: x, Y: y}
		}
	}
	return nil
}
