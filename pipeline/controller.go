package pipeline

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	goutils "go.viam.com/utils"
	"golang.org/x/time/rate"

	"go.viam.com/coordmap/capture"
	"go.viam.com/coordmap/logging"
	"go.viam.com/coordmap/rimage"
	"go.viam.com/coordmap/rimage/transform"
	"go.viam.com/coordmap/utils"
)

// ErrFramePanicked is wrapped by the error ProcessFrame returns when processing a frame set
// panicked, e.g. inside a CoordinateMapper. The frame set is counted as rejected and the next one
// is processed normally.
var ErrFramePanicked = errors.New("panic while processing frame set")

const (
	// sourceRetryInterval is how long the capture worker waits after a source error before asking
	// again.
	sourceRetryInterval = 100 * time.Millisecond

	// rejections past this rate are logged at debug.
	rejectionWarnInterval = time.Second
	rejectionWarnBurst    = 5
)

// Options configures a Controller.
type Options struct {
	// Name identifies the controller in logs. A uuid is used when empty.
	Name string

	ColorWidth, ColorHeight int

	Quantizer rimage.DepthQuantizer
	// MinReliableOverride, when non-nil, replaces the minimum reliable distance reported with
	// each depth frame.
	MinReliableOverride *rimage.Depth
	ParallelAlign       bool

	// Overlay is composited into every published color image. It may be nil.
	Overlay *rimage.Overlay
	// Mapper computes the correspondence for frame sets that arrive without one. It may be nil
	// if the source always supplies a correspondence.
	Mapper transform.CoordinateMapper

	Clock clock.Clock
}

// A Controller owns the output buffers and runs frame sets through alignment and compositing.
type Controller struct {
	name    string
	opts    Options
	logger  logging.Logger
	clk     clock.Clock
	aligner transform.Aligner

	state          atomic.Int32
	rejectionWarns *rate.Limiter

	// backMu guards the back buffers and the correspondence scratch space. It is only ever
	// taken with TryLock so a busy controller drops ticks instead of queuing them.
	backMu    sync.Mutex
	backColor *rimage.ColorBuffer
	backDepth *rimage.DepthVisualization
	scratch   *transform.Correspondence

	frontMu sync.RWMutex
	front   Frame

	stats *statsTracker
	inbox *Inbox

	mu      sync.Mutex
	workers utils.StoppableWorkers
	source  capture.Source
}

// NewController allocates the output buffers for a ColorWidth x ColorHeight color frame.
func NewController(opts Options, logger logging.Logger) (*Controller, error) {
	if opts.ColorWidth <= 0 || opts.ColorHeight <= 0 {
		return nil, errors.Errorf("invalid color size %dx%d", opts.ColorWidth, opts.ColorHeight)
	}
	if opts.Overlay != nil {
		if bounds := opts.Overlay.Bounds(); bounds.Dx() > opts.ColorWidth || bounds.Dy() > opts.ColorHeight {
			logger.Warnw("overlay is larger than the color frame and will be clipped",
				"overlay", bounds.Size(), "color_width", opts.ColorWidth, "color_height", opts.ColorHeight)
		}
	}
	if opts.Name == "" {
		opts.Name = uuid.NewString()
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}

	c := &Controller{
		name:    opts.Name,
		opts:    opts,
		logger:  logger,
		clk:     opts.Clock,
		aligner: transform.Aligner{Quantizer: opts.Quantizer, Parallel: opts.ParallelAlign},

		backColor: rimage.NewColorBuffer(opts.ColorWidth, opts.ColorHeight),
		backDepth: rimage.NewDepthVisualization(opts.ColorWidth, opts.ColorHeight),
		front: Frame{
			Color: rimage.NewColorBuffer(opts.ColorWidth, opts.ColorHeight),
			Depth: rimage.NewDepthVisualization(opts.ColorWidth, opts.ColorHeight),
		},

		rejectionWarns: rate.NewLimiter(rate.Every(rejectionWarnInterval), rejectionWarnBurst),

		stats: newStatsTracker(),
		inbox: NewInbox(),
	}
	if opts.Mapper != nil {
		c.scratch = transform.NewCorrespondence(opts.ColorWidth, opts.ColorHeight)
	}
	return c, nil
}

// Name returns the controller's name.
func (c *Controller) Name() string {
	return c.name
}

// State is the controller's current processing state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	return c.stats.snapshot(c.inbox.Drops())
}

// Current returns the most recently published frame. The frame's images must not be modified and
// must not be read after release is called. Holding a frame for long delays the next
// publication, and ticks arriving meanwhile are dropped.
func (c *Controller) Current() (Frame, func()) {
	c.frontMu.RLock()
	var once sync.Once
	return c.front, func() { once.Do(c.frontMu.RUnlock) }
}

// ProcessFrame runs one frame set through alignment and compositing and publishes the result.
// It reports false with a nil error for a dropped tick: an incomplete frame set, or output
// buffers still busy with another frame set. A frame set that breaks the size contract is
// rejected with an error wrapping rimage.ErrBufferSizeMismatch; nothing is published for it.
// A panic while the back buffers are held is recovered and reported as ErrFramePanicked.
func (c *Controller) ProcessFrame(ctx context.Context, fs *capture.FrameSet) (published bool, err error) {
	ctx, span := trace.StartSpan(ctx, "pipeline::Controller::ProcessFrame")
	defer span.End()

	if fs == nil || fs.Depth == nil {
		c.drop(ctx, fs, DropMissingDepth)
		return false, nil
	}
	if fs.Color == nil {
		c.drop(ctx, fs, DropMissingColor)
		return false, nil
	}
	if !c.backMu.TryLock() {
		c.drop(ctx, fs, DropBufferBusy)
		return false, nil
	}
	defer c.backMu.Unlock()
	defer c.setState(StateIdle)

	guard := utils.NewGuard(func() { c.stats.recordRejected() })
	defer guard.OnFail()
	defer func() {
		if r := recover(); r != nil {
			published = false
			err = errors.Wrapf(ErrFramePanicked, "frame set %d: %v", fs.Seq, r)
			c.logger.CErrorw(ctx, "recovered panic processing frame set",
				"seq", fs.Seq, "state", c.State().String(), "panic", r, "stack", string(debug.Stack()))
		}
	}()

	c.setState(StateAcquired)
	corr, err := c.correspondenceFor(ctx, fs)
	if err != nil {
		c.logRejected(ctx, fs, err)
		return false, err
	}

	c.setState(StateAligning)
	minReliable := fs.Depth.MinReliableDistance()
	if c.opts.MinReliableOverride != nil {
		minReliable = *c.opts.MinReliableOverride
	}
	if err := c.aligner.AlignInto(ctx, fs.Depth, corr, minReliable, c.backDepth); err != nil {
		c.logRejected(ctx, fs, err)
		return false, err
	}

	c.setState(StateCompositing)
	if err := c.composite(ctx, fs.Color); err != nil {
		c.logRejected(ctx, fs, err)
		return false, err
	}

	generation := c.publish(ctx, fs)
	c.setState(StatePublished)
	guard.Success()

	latency := c.clk.Since(fs.Timestamp)
	if fs.Timestamp.IsZero() || latency < 0 {
		latency = 0
	}
	c.stats.recordPublished(fs.Seq, latency)
	c.logger.CDebugw(ctx, "published frame", "seq", fs.Seq, "generation", generation, "latency", latency)
	return true, nil
}

// correspondenceFor checks every size contract of fs before anything is written to the back
// buffers.
func (c *Controller) correspondenceFor(ctx context.Context, fs *capture.FrameSet) (*transform.Correspondence, error) {
	if fs.Color.Width() != c.opts.ColorWidth || fs.Color.Height() != c.opts.ColorHeight {
		return nil, rimage.NewBufferSizeMismatchError("color frame",
			c.opts.ColorWidth*c.opts.ColorHeight, fs.Color.Width()*fs.Color.Height())
	}

	corr := fs.Correspondence
	if corr == nil {
		if c.opts.Mapper == nil {
			return nil, errors.Errorf("frame set %d has no correspondence and no mapper is configured", fs.Seq)
		}
		if err := c.opts.Mapper.MapColorFrameToDepthSpace(ctx, fs.Depth, c.scratch); err != nil {
			return nil, errors.Wrap(err, "mapping color frame to depth space")
		}
		corr = c.scratch
	}
	if err := corr.CheckSize(c.opts.ColorWidth, c.opts.ColorHeight); err != nil {
		return nil, err
	}
	return corr, nil
}

func (c *Controller) composite(ctx context.Context, color *rimage.ColorFrame) error {
	_, span := trace.StartSpan(ctx, "pipeline::Controller::composite")
	defer span.End()

	if err := c.backColor.CopyFrom(color); err != nil {
		return err
	}
	return rimage.CompositeOverlay(c.backColor, c.opts.Overlay)
}

// publish swaps the finished back buffers into the front slot. Readers still holding the previous
// front frame are waited out by the write lock.
func (c *Controller) publish(ctx context.Context, fs *capture.FrameSet) uint64 {
	_, span := trace.StartSpan(ctx, "pipeline::Controller::publish")
	defer span.End()

	c.frontMu.Lock()
	defer c.frontMu.Unlock()
	oldColor, oldDepth := c.front.Color, c.front.Depth
	c.front = Frame{
		Generation: c.front.Generation + 1,
		Seq:        fs.Seq,
		Timestamp:  fs.Timestamp,
		Color:      c.backColor,
		Depth:      c.backDepth,
	}
	c.backColor, c.backDepth = oldColor, oldDepth
	return c.front.Generation
}

func (c *Controller) logRejected(ctx context.Context, fs *capture.FrameSet, err error) {
	if c.rejectionWarns.Allow() {
		c.logger.CWarnw(ctx, "rejected frame set", "seq", fs.Seq, "error", err)
		return
	}
	c.logger.CDebugw(ctx, "rejected frame set", "seq", fs.Seq, "error", err)
}

func (c *Controller) drop(ctx context.Context, fs *capture.FrameSet, reason DropReason) {
	c.stats.recordDropped(reason)
	var seq uint64
	if fs != nil {
		seq = fs.Seq
	}
	c.logger.CDebugw(ctx, "dropped tick", "seq", seq, "reason", reason.String())
}

// Inbox is where Start's capture worker leaves frame sets for the processing worker. Frame sets
// may also be put there directly when the controller is started without a source.
func (c *Controller) Inbox() *Inbox {
	return c.inbox
}

// Start runs the controller in the background: one worker pulls frame sets from src into the
// inbox and another processes them one at a time. src may be nil, in which case frame sets are
// fed through Inbox. The controller takes ownership of src and closes it in Close.
func (c *Controller) Start(ctx context.Context, src capture.Source) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.workers != nil {
		return errors.New("controller already started")
	}
	c.workers = utils.NewStoppableWorkersWithContext(ctx, c.processLoop)
	if src != nil {
		c.source = src
		c.workers.AddWorkers(func(ctx context.Context) { c.captureLoop(ctx, src) })
	}
	return nil
}

// Workers exposes the controller's worker group so callers can attach periodic work, such as
// stats reporting, that should stop with the controller. It is nil before Start.
func (c *Controller) Workers() utils.StoppableWorkers {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.workers
}

func (c *Controller) captureLoop(ctx context.Context, src capture.Source) {
	for {
		stopSlowLogger := utils.SlowLogger(ctx, c.clk, "waiting for frame set", "source", src.Name(), c.logger)
		fs, release, err := src.Next(ctx)
		stopSlowLogger()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, capture.ErrClosed) {
				return
			}
			c.logger.CWarnw(ctx, "capture source failed, retrying", "source", src.Name(), "error", err)
			if !goutils.SelectContextOrWait(ctx, sourceRetryInterval) {
				return
			}
			continue
		}
		c.inbox.Put(fs, release)
	}
}

func (c *Controller) processLoop(ctx context.Context) {
	for {
		fs, release, err := c.inbox.Take(ctx)
		if err != nil {
			return
		}
		// rejections are logged and counted by ProcessFrame
		//nolint:errcheck
		c.ProcessFrame(ctx, fs)
		release()
	}
}

// RunSync pulls ticks frame sets from src and processes each before asking for the next. It
// stops early if ctx is done or src is closed.
func (c *Controller) RunSync(ctx context.Context, src capture.Source, ticks int) error {
	for i := 0; i < ticks; i++ {
		fs, release, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, capture.ErrClosed) {
				return nil
			}
			return err
		}
		_, err = c.ProcessFrame(ctx, fs)
		release()
		if err != nil && !errors.Is(err, rimage.ErrBufferSizeMismatch) && !errors.Is(err, ErrFramePanicked) {
			return err
		}
	}
	return nil
}

// Close stops the workers, releases any frame set left in the inbox and closes the source handed
// to Start.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	workers, src := c.workers, c.source
	c.source = nil
	c.mu.Unlock()

	c.inbox.Close()
	if workers != nil {
		workers.Stop()
	}
	if src == nil {
		return nil
	}
	return errors.Wrapf(src.Close(ctx), "closing source %s", src.Name())
}
