package transform

import (
	"context"
	"math"
	"testing"

	"go.viam.com/test"

	"go.viam.com/coordmap/rimage"
)

func toyFrames(t *testing.T) (*rimage.DepthFrame, *Correspondence) {
	t.Helper()
	depth := rimage.NewEmptyDepthFrame(512, 424)
	depth.Set(1, 1, 500)
	corr, err := NewCorrespondenceFromPoints(4, 1, []DepthSpacePoint{
		{1.2, 1.4},
		SentinelPoint,
		{600, 1},
		{1, 1},
	})
	test.That(t, err, test.ShouldBeNil)
	return depth, corr
}

func TestAlignToyScene(t *testing.T) {
	depth, corr := toyFrames(t)
	test.That(t, depth.Data()[513], test.ShouldEqual, rimage.Depth(500))

	out, err := Align(4, 1, depth, corr, 400)
	test.That(t, err, test.ShouldBeNil)

	want := rimage.Quantize(500, 400, rimage.MaxDepth)
	test.That(t, want, test.ShouldEqual, uint8(16))
	test.That(t, out.Pix(), test.ShouldResemble, []byte{want, 0, 0, want})
}

func TestAlignBelowMinReliable(t *testing.T) {
	depth, corr := toyFrames(t)
	out, err := Align(4, 1, depth, corr, 600)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Pix(), test.ShouldResemble, []byte{0, 0, 0, 0})
}

func TestAlignRounding(t *testing.T) {
	depth := rimage.NewEmptyDepthFrame(4, 4)
	depth.Set(2, 1, 4000)
	depth.Set(0, 0, 3100)
	corr, err := NewCorrespondenceFromPoints(6, 1, []DepthSpacePoint{
		{1.5, 0.5},        // rounds half up to (2, 1)
		{2.49, 1.49},      // (2, 1)
		{-0.4, -0.4},      // (0, 0)
		{-0.6, 0},         // rounds to -1
		{3.6, 0},          // rounds to 4, past the last column
		{0.49999997, 1.4}, // the half is added in float64, so this stays at (0, 1)
	})
	test.That(t, err, test.ShouldBeNil)
	depth.Set(1, 1, 2000)

	out, err := Align(6, 1, depth, corr, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Pix(), test.ShouldResemble, []byte{
		rimage.Quantize(4000, 0, rimage.MaxDepth),
		rimage.Quantize(4000, 0, rimage.MaxDepth),
		rimage.Quantize(3100, 0, rimage.MaxDepth),
		0,
		0,
		0,
	})
}

func TestAlignNonFinite(t *testing.T) {
	depth := rimage.NewEmptyDepthFrame(2, 2)
	for x := 0; x < 2; x++ {
		for y := 0; y < 2; y++ {
			depth.Set(x, y, 1000)
		}
	}
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	corr, err := NewCorrespondenceFromPoints(4, 1, []DepthSpacePoint{
		{nan, 0},
		{0, nan},
		{inf, 0},
		{0, float32(math.Inf(-1))},
	})
	test.That(t, err, test.ShouldBeNil)

	out, err := Align(4, 1, depth, corr, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Pix(), test.ShouldResemble, []byte{0, 0, 0, 0})
}

func TestAlignOverwritesStaleOutput(t *testing.T) {
	depth, corr := toyFrames(t)
	out := rimage.NewDepthVisualization(4, 1)
	copy(out.Pix(), []byte{9, 9, 9, 9})

	err := Aligner{}.AlignInto(context.Background(), depth, corr, 400, out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Pix()[1], test.ShouldEqual, uint8(0))
	test.That(t, out.Pix()[2], test.ShouldEqual, uint8(0))

	first := out.Clone()
	err = Aligner{}.AlignInto(context.Background(), depth, corr, 400, out)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.Pix(), test.ShouldResemble, first.Pix())
}

func TestAlignSizeMismatch(t *testing.T) {
	depth, corr := toyFrames(t)
	out := rimage.NewDepthVisualization(3, 1)
	copy(out.Pix(), []byte{7, 7, 7})

	err := Aligner{}.AlignInto(context.Background(), depth, corr, 400, out)
	test.That(t, err, test.ShouldBeError)
	test.That(t, err.Error(), test.ShouldContainSubstring, rimage.ErrBufferSizeMismatch.Error())
	test.That(t, out.Pix(), test.ShouldResemble, []byte{7, 7, 7})
}

func TestAlignParallelMatchesSequential(t *testing.T) {
	const (
		colorWidth  = 64
		colorHeight = 48
	)
	depth := rimage.NewEmptyDepthFrame(32, 24)
	for y := 0; y < depth.Height(); y++ {
		for x := 0; x < depth.Width(); x++ {
			depth.Set(x, y, rimage.Depth(300+37*x+101*y))
		}
	}
	mapper, err := NewWarpMapper(MapperConfig{
		ColorInputSize:  image2(colorWidth, colorHeight),
		ColorWarpPoints: corners(4, 4, colorWidth-5, colorHeight-5),
		DepthInputSize:  image2(32, 24),
		DepthWarpPoints: corners(0, 0, 31, 23),
	})
	test.That(t, err, test.ShouldBeNil)
	corr := NewCorrespondence(colorWidth, colorHeight)
	test.That(t, mapper.MapColorFrameToDepthSpace(context.Background(), depth, corr), test.ShouldBeNil)

	seq := rimage.NewDepthVisualization(colorWidth, colorHeight)
	par := rimage.NewDepthVisualization(colorWidth, colorHeight)
	test.That(t, Aligner{}.AlignInto(context.Background(), depth, corr, 400, seq), test.ShouldBeNil)
	test.That(t, Aligner{Parallel: true}.AlignInto(context.Background(), depth, corr, 400, par), test.ShouldBeNil)
	test.That(t, par.Pix(), test.ShouldResemble, seq.Pix())

	// the border outside the warp has no depth
	test.That(t, seq.GetXY(0, 0), test.ShouldEqual, uint8(0))
	test.That(t, seq.GetXY(colorWidth/2, colorHeight/2), test.ShouldNotEqual, uint8(0))
}

func TestAlignParallelCanceled(t *testing.T) {
	depth, corr := toyFrames(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Aligner{Parallel: true}.AlignInto(ctx, depth, corr, 400, rimage.NewDepthVisualization(4, 1))
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func BenchmarkAlign(b *testing.B) {
	depth := rimage.NewEmptyDepthFrame(512, 424)
	for i := range depth.Data() {
		depth.Data()[i] = rimage.Depth(500 + i%4000)
	}
	mapper, err := NewWarpMapper(MapperConfig{
		ColorInputSize:  image2(1920, 1080),
		ColorWarpPoints: corners(240, 0, 1679, 1079),
		DepthInputSize:  image2(512, 424),
		DepthWarpPoints: corners(0, 0, 511, 423),
	})
	if err != nil {
		b.Fatal(err)
	}
	corr := NewCorrespondence(1920, 1080)
	if err := mapper.MapColorFrameToDepthSpace(context.Background(), depth, corr); err != nil {
		b.Fatal(err)
	}
	out := rimage.NewDepthVisualization(1920, 1080)

	for _, parallel := range []bool{false, true} {
		aligner := Aligner{Parallel: parallel}
		name := "sequential"
		if parallel {
			name = "parallel"
		}
		b.Run(name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if err := aligner.AlignInto(context.Background(), depth, corr, 400, out); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
