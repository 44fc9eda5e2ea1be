package transform

import (
	"context"
	"math"

	"go.opencensus.io/trace"

	"go.viam.com/coordmap/rimage"
	"go.viam.com/coordmap/utils"
)

// An Aligner samples a depth frame through a Correspondence so that every color pixel gets a
// quantized depth byte.
type Aligner struct {
	Quantizer rimage.DepthQuantizer
	// Parallel splits the color rows across utils.ParallelFactor goroutines.
	Parallel bool
}

// AlignInto writes one byte per color pixel into out. Sentinel entries, entries whose rounded
// coordinate falls outside the depth grid, and depth samples outside [minReliable, MaxDepth]
// produce 0. Every byte of out is written, so nothing from a previous frame survives.
func (a Aligner) AlignInto(
	ctx context.Context,
	depth *rimage.DepthFrame,
	corr *Correspondence,
	minReliable rimage.Depth,
	out *rimage.DepthVisualization,
) error {
	ctx, span := trace.StartSpan(ctx, "transform::Aligner::AlignInto")
	defer span.End()

	colorWidth, colorHeight := out.Width(), out.Height()
	if err := corr.CheckSize(colorWidth, colorHeight); err != nil {
		return err
	}
	if len(depth.Data()) != depth.Width()*depth.Height() {
		return rimage.NewBufferSizeMismatchError("depth frame", depth.Width()*depth.Height(), len(depth.Data()))
	}

	alignRows := func(from, to int) {
		a.alignRows(depth, corr.Points(), minReliable, out.Pix(), colorWidth, from, to)
	}
	if !a.Parallel {
		alignRows(0, colorHeight)
		return nil
	}
	return utils.GroupWorkParallel(ctx, colorHeight, nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			alignRows(from, to)
			return nil, nil
		})
}

func (a Aligner) alignRows(
	depth *rimage.DepthFrame,
	points []DepthSpacePoint,
	minReliable rimage.Depth,
	pix []byte,
	colorWidth, from, to int,
) {
	data := depth.Data()
	depthWidth := float64(depth.Width())
	depthHeight := float64(depth.Height())
	for i := from * colorWidth; i < to*colorWidth; i++ {
		p := points[i]
		// rounding happens in float64 so a float32 just below .5 never rounds up
		x := math.Floor(float64(p.X) + 0.5)
		y := math.Floor(float64(p.Y) + 0.5)
		// written as negated range checks so NaN and infinities fall through to 0.
		if !(x >= 0 && x < depthWidth && y >= 0 && y < depthHeight) {
			pix[i] = 0
			continue
		}
		pix[i] = a.Quantizer.Quantize(data[int(y)*depth.Width()+int(x)], minReliable, rimage.MaxDepth)
	}
}

// Align allocates a colorWidth x colorHeight visualization and fills it with the default
// quantizer on the calling goroutine.
func Align(
	colorWidth, colorHeight int,
	depth *rimage.DepthFrame,
	corr *Correspondence,
	minReliable rimage.Depth,
) (*rimage.DepthVisualization, error) {
	out := rimage.NewDepthVisualization(colorWidth, colorHeight)
	if err := (Aligner{}).AlignInto(context.Background(), depth, corr, minReliable, out); err != nil {
		return nil, err
	}
	return out, nil
}
