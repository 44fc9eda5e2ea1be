package cli

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"

	"go.viam.com/coordmap/config"
	"go.viam.com/coordmap/logging"
)

const rootLoggerName = "coordmap"

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// newLogger returns the command's root logger, writing to the app's error writer. It replaces any
// root logger registered by an earlier run in the same process.
func newLogger(c *cli.Context) logging.Logger {
	logger := logging.NewBlankLogger(rootLoggerName)
	logger.AddAppender(logging.NewWriterAppender(c.App.ErrWriter))
	logging.DeregisterLogger(rootLoggerName)
	return logging.RegisterLogger(rootLoggerName, logger)
}

// sublogger creates and registers a named child of logger so pattern levels apply to it.
func sublogger(logger logging.Logger, name string) logging.Logger {
	fullName := rootLoggerName + "." + name
	logging.DeregisterLogger(fullName)
	return logging.RegisterLogger(fullName, logger.Sublogger(name))
}

func readConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	path := c.String(configFlag)
	if path == "" {
		return nil, errors.Errorf("--%s is required", configFlag)
	}
	return config.Read(c.Context, path, logger)
}
