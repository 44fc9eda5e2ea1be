package capture

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/coordmap/logging"
	"go.viam.com/coordmap/rimage"
)

// ErrClosed is returned by Next once the source has been closed.
var ErrClosed = errors.New("capture source closed")

// SyntheticConfig describes the frames a SyntheticSource produces.
type SyntheticConfig struct {
	ColorWidth, ColorHeight int
	DepthWidth, DepthHeight int
	MinReliableDistance     rimage.Depth
	// Every DropDepthEvery-th (or DropColorEvery-th) frame set is missing that frame. 0 disables.
	DropDepthEvery int
	DropColorEvery int
	// Period paces Next. 0 delivers frame sets as fast as they are requested.
	Period time.Duration
	Clock  clock.Clock
}

// Validate checks that the frames can be generated.
func (cfg SyntheticConfig) Validate() error {
	if cfg.ColorWidth <= 0 || cfg.ColorHeight <= 0 {
		return errors.Errorf("invalid color size %dx%d", cfg.ColorWidth, cfg.ColorHeight)
	}
	if cfg.DepthWidth <= 0 || cfg.DepthHeight <= 0 {
		return errors.Errorf("invalid depth size %dx%d", cfg.DepthWidth, cfg.DepthHeight)
	}
	if cfg.DropDepthEvery < 0 || cfg.DropColorEvery < 0 {
		return errors.New("drop intervals cannot be negative")
	}
	if cfg.Period < 0 {
		return errors.Errorf("invalid period %s", cfg.Period)
	}
	return nil
}

// SyntheticSource generates a slowly moving depth ramp and a matching color gradient. Frame
// contents are a pure function of the sequence number.
type SyntheticSource struct {
	name   string
	cfg    SyntheticConfig
	logger logging.Logger

	seq         atomic.Uint64
	outstanding atomic.Int64
	closed      atomic.Bool

	depthPool sync.Pool
	colorPool sync.Pool
}

// NewSyntheticSource returns a source named with a fresh uuid.
func NewSyntheticSource(cfg SyntheticConfig, logger logging.Logger) (*SyntheticSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	src := &SyntheticSource{
		name:   "synthetic-" + uuid.NewString(),
		cfg:    cfg,
		logger: logger,
	}
	src.depthPool.New = func() any {
		return make([]rimage.Depth, cfg.DepthWidth*cfg.DepthHeight)
	}
	src.colorPool.New = func() any {
		return make([]byte, cfg.ColorWidth*cfg.ColorHeight*rimage.BytesPerPixel)
	}
	return src, nil
}

// Name returns the source's generated name.
func (src *SyntheticSource) Name() string {
	return src.name
}

// Outstanding is the number of frame sets handed out and not yet released.
func (src *SyntheticSource) Outstanding() int64 {
	return src.outstanding.Load()
}

// Next waits out the configured period and returns the next frame set.
func (src *SyntheticSource) Next(ctx context.Context) (*FrameSet, func(), error) {
	if src.closed.Load() {
		return nil, nil, ErrClosed
	}
	if src.cfg.Period > 0 {
		timer := src.cfg.Clock.Timer(src.cfg.Period)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	seq := src.seq.Add(1)
	fs := &FrameSet{Seq: seq, Timestamp: src.cfg.Clock.Now()}

	var depthData []rimage.Depth
	var colorData []byte
	recycle := func() {
		if depthData != nil {
			src.depthPool.Put(depthData) //nolint:staticcheck
		}
		if colorData != nil {
			src.colorPool.Put(colorData) //nolint:staticcheck
		}
	}
	if src.cfg.DropDepthEvery == 0 || seq%uint64(src.cfg.DropDepthEvery) != 0 {
		buf := src.depthPool.Get().([]rimage.Depth)
		depth, err := rimage.NewDepthFrame(src.cfg.DepthWidth, src.cfg.DepthHeight, buf, src.cfg.MinReliableDistance)
		if err != nil {
			// a buffer of the wrong size is not pooled again
			return nil, nil, err
		}
		FillDepthRamp(src.cfg.DepthWidth, src.cfg.DepthHeight, seq, buf)
		depthData = buf
		fs.Depth = depth
	} else {
		src.logger.Debugw("withholding depth frame", "seq", seq)
	}
	if src.cfg.DropColorEvery == 0 || seq%uint64(src.cfg.DropColorEvery) != 0 {
		buf := src.colorPool.Get().([]byte)
		color, err := rimage.NewColorFrame(src.cfg.ColorWidth, src.cfg.ColorHeight, buf)
		if err != nil {
			recycle()
			return nil, nil, err
		}
		FillColorGradient(src.cfg.ColorWidth, src.cfg.ColorHeight, seq, buf)
		colorData = buf
		fs.Color = color
	} else {
		src.logger.Debugw("withholding color frame", "seq", seq)
	}

	src.outstanding.Add(1)
	var once sync.Once
	release := func() {
		once.Do(func() {
			src.outstanding.Add(-1)
			recycle()
		})
	}
	return fs, release, nil
}

// Close stops the source. Frame sets already handed out stay valid until released.
func (src *SyntheticSource) Close(ctx context.Context) error {
	if src.closed.Swap(true) {
		return nil
	}
	if n := src.Outstanding(); n > 0 {
		src.logger.CDebugw(ctx, "closing with unreleased frame sets", "outstanding", n)
	}
	return nil
}

// FillDepthRamp writes the synthetic depth for frame seq. Values stay within [500, 4499] and
// shift by 11mm per frame.
func FillDepthRamp(width, height int, seq uint64, data []rimage.Depth) {
	shift := int(seq % 4000)
	for y := 0; y < height; y++ {
		row := data[y*width : (y+1)*width]
		for x := range row {
			row[x] = rimage.Depth(500 + (x*7+y*5+shift*11)%4000)
		}
	}
}

// FillColorGradient writes the synthetic BGRA color for frame seq.
func FillColorGradient(width, height int, seq uint64, pix []byte) {
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * rimage.BytesPerPixel
			pix[i+rimage.ChannelBlue] = uint8(x)
			pix[i+rimage.ChannelGreen] = uint8(y)
			pix[i+rimage.ChannelRed] = uint8(seq)
			pix[i+rimage.ChannelAlpha] = 0xff
		}
	}
}
