package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"sort"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/disintegration/imaging"
	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"go.viam.com/coordmap/capture"
	"go.viam.com/coordmap/config"
	"go.viam.com/coordmap/logging"
	"go.viam.com/coordmap/pipeline"
	"go.viam.com/coordmap/rimage"
	"go.viam.com/coordmap/rimage/transform"
	"go.viam.com/coordmap/utils"
)

const (
	defaultStatsInterval = 10 * time.Second
	defaultLogMaxSizeMB  = 100
	defaultLogMaxBackups = 3
)

// Version is set at build time.
var Version = ""

// ValidateAction is the corresponding Action for 'validate'.
func ValidateAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	mapper := cfg.MapperConfig()
	printf(c.App.Writer, "config %s is valid", cfg.ConfigFilePath)
	printf(c.App.Writer, "color %dx%d, depth %dx%d, %v fps",
		cfg.Color.Width, cfg.Color.Height, cfg.Depth.Width, cfg.Depth.Height, cfg.FrameRate)
	printf(c.App.Writer, "max display depth %dmm, color warp %v, depth warp %v",
		cfg.MaxDisplayDepth, mapper.ColorWarpPoints, mapper.DepthWarpPoints)
	if cfg.Overlay != nil {
		printf(c.App.Writer, "overlay %s", cfg.Overlay.Path)
	}
	colorPixels := cfg.Color.Width * cfg.Color.Height
	depthPixels := cfg.Depth.Width * cfg.Depth.Height
	// front and back color and depth outputs plus the scratch correspondence and raw depth
	perFrame := 2*(colorPixels*4+colorPixels) + colorPixels*8 + depthPixels*2
	printf(c.App.Writer, "buffers %s per controller", units.BytesSize(float64(perFrame)))
	return nil
}

// VersionAction is the corresponding Action for 'version'.
func VersionAction(c *cli.Context) error {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return errors.New("error reading build info")
	}
	if c.Bool(debugFlag) {
		printf(c.App.Writer, "%s", info.String())
	}
	settings := make(map[string]string, len(info.Settings))
	for _, setting := range info.Settings {
		settings[setting.Key] = setting.Value
	}
	revision := "?"
	if rev, ok := settings["vcs.revision"]; ok && len(rev) >= 8 {
		revision = rev[:8]
		if settings["vcs.modified"] == "true" {
			revision += "+"
		}
	}
	appVersion := Version
	if appVersion == "" {
		appVersion = "(dev)"
	}
	printf(c.App.Writer, "Version %s Git=%s Go=%s", appVersion, revision, info.GoVersion)
	return nil
}

// RunAction is the corresponding Action for 'run'.
func RunAction(c *cli.Context) (err error) {
	logger := newLogger(c)
	cfg, err := readConfig(c, logger)
	if err != nil {
		return err
	}
	config.InitLoggingSettings(logger, c.Bool(debugFlag))

	guard := utils.NewGuard(nil)
	defer guard.OnFail()
	if cfg.Log.File != "" {
		fileAppender := logging.NewFileAppender(cfg.Log.File, orDefault(cfg.Log.MaxSizeMB, defaultLogMaxSizeMB),
			orDefault(cfg.Log.MaxBackups, defaultLogMaxBackups))
		logger.AddAppender(fileAppender)
		defer func() {
			err = multierr.Combine(err, logger.Sync(), fileAppender.Close())
		}()
	}

	// subloggers copy the root's appenders, so they are created after the file appender
	captureLogger := sublogger(logger, "capture")
	pipelineLogger := sublogger(logger, "pipeline")
	if err := config.ApplyLogConfig(cfg, logger); err != nil {
		return err
	}

	ctrl, src, err := newPipeline(c, cfg, captureLogger, pipelineLogger)
	if err != nil {
		return err
	}
	guard.Add(func() {
		if closeErr := multierr.Combine(ctrl.Close(c.Context), src.Close(c.Context)); closeErr != nil {
			logger.Warnw("error closing pipeline", "error", closeErr)
		}
	})

	if ticks := c.Int(ticksFlag); ticks > 0 {
		runErr := ctrl.RunSync(c.Context, src, ticks)
		guard.Success()
		err = multierr.Combine(runErr, src.Close(c.Context), ctrl.Close(c.Context))
		reportStats(logger, ctrl.Stats())
		printStatsTable(c, ctrl.Stats())
		if err != nil {
			return err
		}
		return writeOutputs(c, ctrl, logger)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := ctrl.Start(ctx, src); err != nil {
		return err
	}
	guard.Success()
	ctrl.Workers().AddTicker(clock.New(), c.Duration(statsFlag), func(context.Context) {
		reportStats(logger, ctrl.Stats())
	})

	var configs <-chan *config.Config
	watcher, watchErr := config.NewWatcher(cfg.ConfigFilePath, config.DefaultWatchDebounce, logger)
	if watchErr != nil {
		logger.Warnw("not watching config for log level changes", "error", watchErr)
	} else {
		configs = watcher.Configs()
	}

	logger.Infow("running", "controller", ctrl.Name(), "source", src.Name(), "frame_rate", cfg.FrameRate)
	for done := false; !done; {
		select {
		case <-ctx.Done():
			done = true
		case newCfg := <-configs:
			if err := config.ApplyLogConfig(newCfg, logger); err != nil {
				logger.Warnw("could not apply log config", "error", err)
			}
		}
	}
	logger.Infow("shutting down")

	// the controller closes the source it was started with
	err = ctrl.Close(context.Background())
	if watcher != nil {
		err = multierr.Combine(err, watcher.Close())
	}
	reportStats(logger, ctrl.Stats())
	if err != nil {
		return err
	}
	return writeOutputs(c, ctrl, logger)
}

func newPipeline(
	c *cli.Context,
	cfg *config.Config,
	captureLogger, pipelineLogger logging.Logger,
) (*pipeline.Controller, capture.Source, error) {
	var overlay *rimage.Overlay
	overlayPath := c.String(overlayFlag)
	if overlayPath == "" && cfg.Overlay != nil {
		overlayPath = cfg.Overlay.Path
	}
	if overlayPath != "" {
		var err error
		if overlay, err = rimage.LoadOverlay(overlayPath); err != nil {
			return nil, nil, err
		}
	}

	quantizer, err := cfg.Quantizer()
	if err != nil {
		return nil, nil, err
	}
	mapper, err := transform.NewWarpMapper(cfg.MapperConfig())
	if err != nil {
		return nil, nil, err
	}

	period := cfg.FramePeriod()
	if c.Int(ticksFlag) > 0 {
		period = 0
	}
	src, err := capture.NewSyntheticSource(capture.SyntheticConfig{
		ColorWidth:          cfg.Color.Width,
		ColorHeight:         cfg.Color.Height,
		DepthWidth:          cfg.Depth.Width,
		DepthHeight:         cfg.Depth.Height,
		MinReliableDistance: rimage.Depth(cfg.Synthetic.MinReliableDistance),
		DropDepthEvery:      cfg.Synthetic.DropDepthEvery,
		DropColorEvery:      cfg.Synthetic.DropColorEvery,
		Period:              period,
	}, captureLogger)
	if err != nil {
		return nil, nil, err
	}

	ctrl, err := pipeline.NewController(pipeline.Options{
		ColorWidth:          cfg.Color.Width,
		ColorHeight:         cfg.Color.Height,
		Quantizer:           quantizer,
		MinReliableOverride: cfg.MinReliableOverride(),
		ParallelAlign:       cfg.ParallelAlign,
		Overlay:             overlay,
		Mapper:              mapper,
	}, pipelineLogger)
	if err != nil {
		return nil, nil, multierr.Combine(err, src.Close(c.Context))
	}
	return ctrl, src, nil
}

func reportStats(logger logging.Logger, stats pipeline.Stats) {
	dropped := lo.MapKeys(stats.Dropped, func(_ uint64, reason pipeline.DropReason) string {
		return reason.String()
	})
	logger.Infow("pipeline stats",
		"published", stats.Published,
		"rejected", stats.Rejected,
		"dropped", dropped,
		"last_seq", stats.LastSeq,
		"latency_mean", stats.Latency.Mean,
		"latency_p95", stats.Latency.P95)
}

func printStatsTable(c *cli.Context, stats pipeline.Stats) {
	tw := table.NewWriter()
	tw.SetOutputMirror(c.App.Writer)
	tw.AppendHeader(table.Row{"stat", "value"})
	tw.AppendRows([]table.Row{
		{"ticks", stats.Ticks()},
		{"published", stats.Published},
		{"rejected", stats.Rejected},
	})
	reasons := lo.Keys(stats.Dropped)
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		tw.AppendRow(table.Row{"dropped " + reason.String(), stats.Dropped[reason]})
	}
	tw.AppendRows([]table.Row{
		{"last seq", stats.LastSeq},
		{"latency mean", stats.Latency.Mean},
		{"latency p95", stats.Latency.P95},
		{"latency max", stats.Latency.Max},
	})
	tw.Render()
}

func writeOutputs(c *cli.Context, ctrl *pipeline.Controller, logger logging.Logger) error {
	dir := c.String(outDirFlag)
	if dir == "" {
		return nil
	}
	frame, release := ctrl.Current()
	defer release()
	if !frame.Published() {
		return errors.New("no frame was published, nothing to write")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return err
	}
	colorPath := filepath.Join(dir, "color.png")
	depthPath := filepath.Join(dir, "depth.png")
	if err := imaging.Save(frame.Color.ToNRGBA(), colorPath); err != nil {
		return errors.Wrap(err, "saving color image")
	}
	if err := imaging.Save(frame.Depth.ToPrettyPicture(), depthPath); err != nil {
		return errors.Wrap(err, "saving depth image")
	}
	logger.Infow("wrote outputs", "color", colorPath, "depth", depthPath, "seq", frame.Seq)
	return nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
