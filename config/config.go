// Package config defines the coordmap configuration file and how it is read and watched.
package config

import (
	"image"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/coordmap/logging"
	"go.viam.com/coordmap/rimage"
	"go.viam.com/coordmap/rimage/transform"
)

// DefaultFrameRate is the capture rate, in Hz, assumed when none is configured.
const DefaultFrameRate = 30

// Size is the resolution of one camera.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Validate ensures all parts of the size are valid.
func (s Size) Validate(path string) error {
	if s.Width == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "width")
	}
	if s.Height == 0 {
		return utils.NewConfigValidationFieldRequiredError(path, "height")
	}
	if s.Width < 0 || s.Height < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("invalid size %dx%d", s.Width, s.Height))
	}
	return nil
}

// Point returns the size as an image.Point.
func (s Size) Point() image.Point {
	return image.Point{s.Width, s.Height}
}

// OverlayConfig points at the overlay image composited into every color frame.
type OverlayConfig struct {
	Path string `json:"path"`
}

// SyntheticConfig tunes the synthetic capture source.
type SyntheticConfig struct {
	DropDepthEvery int `json:"drop_depth_every,omitempty"`
	DropColorEvery int `json:"drop_color_every,omitempty"`
	// MinReliableDistance is reported with every synthetic depth frame.
	MinReliableDistance int `json:"min_reliable_distance,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level string `json:"level,omitempty"`
	Debug bool   `json:"debug,omitempty"`
	// File, when set, also writes logs to a rotating file.
	File       string                        `json:"file,omitempty"`
	MaxSizeMB  int                           `json:"max_size_mb,omitempty"`
	MaxBackups int                           `json:"max_backups,omitempty"`
	Patterns   []logging.LoggerPatternConfig `json:"patterns,omitempty"`
}

// Config is the whole coordmap configuration.
type Config struct {
	// ConfigFilePath is where the config was read from, if anywhere.
	ConfigFilePath string `json:"-"`

	Color Size `json:"color"`
	Depth Size `json:"depth"`

	MaxDisplayDepth             int                     `json:"max_display_depth,omitempty"`
	MinReliableDistanceOverride *int                    `json:"min_reliable_distance_override,omitempty"`
	Overlay                     *OverlayConfig          `json:"overlay,omitempty"`
	Mapper                      *transform.MapperConfig `json:"mapper,omitempty"`
	ParallelAlign               bool                    `json:"parallel_align,omitempty"`
	FrameRate                   float64                 `json:"frame_rate,omitempty"`

	Synthetic SyntheticConfig `json:"synthetic"`
	Log       LogConfig       `json:"log"`
}

// Ensure fills in defaults and then validates the config.
func (c *Config) Ensure() error {
	if c.MaxDisplayDepth == 0 {
		c.MaxDisplayDepth = rimage.DefaultMaxDisplayDepth
	}
	if c.FrameRate == 0 {
		c.FrameRate = DefaultFrameRate
	}
	if c.Log.Level == "" {
		c.Log.Level = logging.INFO.String()
	}
	return c.Validate()
}

// Validate returns every problem with the config, not just the first.
func (c *Config) Validate() error {
	var errs error
	errs = multierr.Append(errs, c.Color.Validate("color"))
	errs = multierr.Append(errs, c.Depth.Validate("depth"))

	if _, err := rimage.NewDepthQuantizer(c.MaxDisplayDepth); err != nil {
		errs = multierr.Append(errs, utils.NewConfigValidationError("max_display_depth", err))
	}
	if o := c.MinReliableDistanceOverride; o != nil && (*o < 0 || *o > int(rimage.MaxDepth)) {
		errs = multierr.Append(errs, utils.NewConfigValidationError("min_reliable_distance_override",
			errors.Errorf("must be in [0, %d], got %d", rimage.MaxDepth, *o)))
	}
	if c.Overlay != nil && c.Overlay.Path == "" {
		errs = multierr.Append(errs, utils.NewConfigValidationFieldRequiredError("overlay", "path"))
	}
	if c.FrameRate < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("frame_rate",
			errors.Errorf("cannot be negative, got %v", c.FrameRate)))
	}
	if c.Mapper != nil {
		if err := c.Mapper.CheckValid(); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError("mapper", err))
		} else if c.Mapper.ColorInputSize != c.Color.Point() || c.Mapper.DepthInputSize != c.Depth.Point() {
			errs = multierr.Append(errs, utils.NewConfigValidationError("mapper",
				errors.New("input sizes must match the color and depth sizes")))
		}
	}
	if c.Synthetic.DropDepthEvery < 0 || c.Synthetic.DropColorEvery < 0 {
		errs = multierr.Append(errs, utils.NewConfigValidationError("synthetic",
			errors.New("drop intervals cannot be negative")))
	}
	if c.Log.Level != "" {
		if _, err := logging.LevelFromString(c.Log.Level); err != nil {
			errs = multierr.Append(errs, utils.NewConfigValidationError("log.level", err))
		}
	}
	return errs
}

// Quantizer returns the depth quantizer for MaxDisplayDepth.
func (c *Config) Quantizer() (rimage.DepthQuantizer, error) {
	return rimage.NewDepthQuantizer(c.MaxDisplayDepth)
}

// MinReliableOverride returns the configured override, or nil to use the sensor's value.
func (c *Config) MinReliableOverride() *rimage.Depth {
	if c.MinReliableDistanceOverride == nil {
		return nil
	}
	d := rimage.Depth(*c.MinReliableDistanceOverride)
	return &d
}

// FramePeriod is the time between capture ticks.
func (c *Config) FramePeriod() time.Duration {
	rate := c.FrameRate
	if rate <= 0 {
		rate = DefaultFrameRate
	}
	return time.Duration(float64(time.Second) / rate)
}

// MapperConfig returns the configured warp, or one that stretches the whole color frame over the
// whole depth frame.
func (c *Config) MapperConfig() transform.MapperConfig {
	if c.Mapper != nil {
		return *c.Mapper
	}
	return transform.MapperConfig{
		ColorInputSize:  c.Color.Point(),
		ColorWarpPoints: []image.Point{{0, 0}, {c.Color.Width - 1, c.Color.Height - 1}},
		DepthInputSize:  c.Depth.Point(),
		DepthWarpPoints: []image.Point{{0, 0}, {c.Depth.Width - 1, c.Depth.Height - 1}},
	}
}

// LogLevel returns the parsed log level, INFO if unset or invalid.
func (c *Config) LogLevel() logging.Level {
	level, err := logging.LevelFromString(c.Log.Level)
	if err != nil {
		return logging.INFO
	}
	return level
}
