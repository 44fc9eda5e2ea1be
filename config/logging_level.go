package config

import (
	"sync"

	"go.uber.org/zap/zapcore"

	"go.viam.com/coordmap/logging"
)

// debugState tracks the two sources that can force every logger to debug: the --debug flag and
// the config file's log.debug field.
var debugState struct {
	mu          sync.Mutex
	logger      logging.Logger
	flagDebug   bool
	configDebug bool
}

// InitLoggingSettings records the command line debug flag and sets the global level from it.
func InitLoggingSettings(logger logging.Logger, cmdLineDebugFlag bool) {
	debugState.mu.Lock()
	defer debugState.mu.Unlock()
	debugState.logger = logger
	debugState.flagDebug = cmdLineDebugFlag
	logging.GlobalLogLevel.SetLevel(globalLevelInLock())
	logger.Infow("log level initialized", "level", logging.GlobalLogLevel.Level())
}

// UpdateFileConfigDebug applies the config file's debug flag. It is called on every (re)read.
func UpdateFileConfigDebug(fileDebug bool) {
	debugState.mu.Lock()
	defer debugState.mu.Unlock()
	debugState.configDebug = fileDebug

	level := globalLevelInLock()
	if logging.GlobalLogLevel.Level() == level {
		return
	}
	if debugState.logger != nil {
		debugState.logger.Infow("global log level changed", "level", level)
	}
	logging.GlobalLogLevel.SetLevel(level)
}

func globalLevelInLock() zapcore.Level {
	if debugState.flagDebug || debugState.configDebug {
		return zapcore.DebugLevel
	}
	return zapcore.InfoLevel
}

// ApplyLogConfig applies the log section of cfg: the debug flag, the default level of every
// registered logger, and the per-pattern levels.
func ApplyLogConfig(cfg *Config, logger logging.Logger) error {
	UpdateFileConfigDebug(cfg.Log.Debug)
	return logging.UpdateLoggerConfig(cfg.Log.Patterns, cfg.LogLevel(), logger)
}
