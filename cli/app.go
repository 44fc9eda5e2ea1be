// Package cli contains all functionality needed to run the coordmap command.
package cli

import (
	"io"

	"github.com/urfave/cli/v2"
)

const (
	configFlag  = "config"
	debugFlag   = "debug"
	ticksFlag   = "ticks"
	overlayFlag = "overlay"
	outDirFlag  = "out-dir"
	statsFlag   = "stats-interval"
)

var app = &cli.App{
	Name:            "coordmap",
	Usage:           "align depth frames to color space and composite an overlay",
	HideHelpCommand: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    configFlag,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:    debugFlag,
			Aliases: []string{"vvv"},
			Usage:   "enable debug logging",
		},
	},
	Commands: []*cli.Command{
		{
			Name:  "run",
			Usage: "run the synthetic capture source through the pipeline",
			Description: `Without --ticks the pipeline runs at the configured frame rate until interrupted, and
edits to the config file change log levels live. With --ticks it processes that many frame
sets as fast as possible, prints the stats and exits.`,
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  ticksFlag,
					Usage: "process `N` frame sets and exit",
				},
				&cli.StringFlag{
					Name:  overlayFlag,
					Usage: "overlay image `FILE`, overriding the config",
				},
				&cli.StringFlag{
					Name:  outDirFlag,
					Usage: "write the last published color and depth images to `DIR` as PNG",
				},
				&cli.DurationFlag{
					Name:  statsFlag,
					Usage: "how often to log stats while running",
					Value: defaultStatsInterval,
				},
			},
			Action: RunAction,
		},
		{
			Name:   "validate",
			Usage:  "check a config file and print the resolved settings",
			Action: ValidateAction,
		},
		{
			Name:   "version",
			Usage:  "print version info for this program",
			Action: VersionAction,
		},
	},
}

// NewApp returns a new app with the CLI API, Writer set to out, and ErrWriter
// set to errOut.
func NewApp(out, errOut io.Writer) *cli.App {
	app.Writer = out
	app.ErrWriter = errOut
	return app
}
