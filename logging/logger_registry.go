package logging

import (
	"fmt"
	"regexp"
	"sort"
	"sync"
)

// Registry tracks named loggers so their levels can be changed by pattern at runtime, e.g. when
// the config file is edited.
type Registry struct {
	mu           sync.RWMutex
	loggers      map[string]Logger
	logConfig    []LoggerPatternConfig
	defaultLevel Level
}

var globalRegistry = NewRegistry()

// NewRegistry returns an empty Registry whose unmatched loggers run at INFO.
func NewRegistry() *Registry {
	return &Registry{
		loggers:      make(map[string]Logger),
		defaultLevel: INFO,
	}
}

// Register will either return an existing logger for `name` or register the input `logger` and
// configure it based on the existing patterns. Racing callers all receive the winner's logger.
func (lr *Registry) Register(name string, logger Logger) Logger {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	if existingLogger, ok := lr.loggers[name]; ok {
		return existingLogger
	}

	lr.loggers[name] = logger
	if level, ok := levelForName(lr.logConfig, name); ok {
		logger.SetLevel(level)
	}
	return logger
}

// Deregister removes the named logger. It returns false if no such logger existed.
func (lr *Registry) Deregister(name string) bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	_, ok := lr.loggers[name]
	delete(lr.loggers, name)
	return ok
}

// LoggerNamed returns the logger registered under `name`.
func (lr *Registry) LoggerNamed(name string) (logger Logger, ok bool) {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok = lr.loggers[name]
	return
}

// UpdateLoggerLevel sets the level of a single registered logger.
func (lr *Registry) UpdateLoggerLevel(name string, level Level) error {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	logger, ok := lr.loggers[name]
	if !ok {
		return fmt.Errorf("logger named %s not recognized", name)
	}
	logger.SetLevel(level)
	return nil
}

// Update replaces the pattern config and re-levels every registered logger. Loggers matched by no
// pattern are reset to `defaultLevel`. Later patterns win over earlier ones. Invalid patterns are
// reported to `errorLogger` and skipped.
func (lr *Registry) Update(logConfig []LoggerPatternConfig, defaultLevel Level, errorLogger Logger) error {
	valid := make([]LoggerPatternConfig, 0, len(logConfig))
	for _, lpc := range logConfig {
		if !validatePattern(lpc.Pattern) {
			errorLogger.Warnw("failed to validate a pattern", "pattern", lpc.Pattern)
			continue
		}
		if _, err := LevelFromString(lpc.Level); err != nil {
			return err
		}
		valid = append(valid, lpc)
	}

	lr.mu.Lock()
	defer lr.mu.Unlock()
	lr.logConfig = valid
	lr.defaultLevel = defaultLevel
	for name, logger := range lr.loggers {
		level, ok := levelForName(valid, name)
		if !ok {
			level = defaultLevel
		}
		logger.SetLevel(level)
	}
	return nil
}

// Names returns the sorted names of all registered loggers.
func (lr *Registry) Names() []string {
	lr.mu.RLock()
	defer lr.mu.RUnlock()
	names := make([]string, 0, len(lr.loggers))
	for name := range lr.loggers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func levelForName(logConfig []LoggerPatternConfig, name string) (Level, bool) {
	var (
		matched bool
		level   Level
	)
	for _, lpc := range logConfig {
		r, err := regexp.Compile(buildRegexFromPattern(lpc.Pattern))
		if err != nil || !r.MatchString(name) {
			continue
		}
		parsed, err := LevelFromString(lpc.Level)
		if err != nil {
			continue
		}
		level, matched = parsed, true
	}
	return level, matched
}

// RegisterLogger registers `logger` with the global registry under `name`.
func RegisterLogger(name string, logger Logger) Logger {
	return globalRegistry.Register(name, logger)
}

// LoggerNamed returns the globally registered logger with the given name.
func LoggerNamed(name string) (Logger, bool) {
	return globalRegistry.LoggerNamed(name)
}

// UpdateLoggerConfig applies pattern levels to every globally registered logger.
func UpdateLoggerConfig(logConfig []LoggerPatternConfig, defaultLevel Level, errorLogger Logger) error {
	return globalRegistry.Update(logConfig, defaultLevel, errorLogger)
}

// DeregisterLogger removes the globally registered logger with the given name.
func DeregisterLogger(name string) bool {
	return globalRegistry.Deregister(name)
}
