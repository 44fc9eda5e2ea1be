package logging

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// errUnpairedKey is logged in place of the value of a trailing key with no value.
var errUnpairedKey = errors.New("unpaired log key")

type impl struct {
	name      string
	level     AtomicLevel
	inUTC     bool
	appenders []Appender
}

func newImpl(name string, level Level, inUTC bool, appenders ...Appender) *impl {
	return &impl{
		name:      name,
		level:     NewAtomicLevelAt(level),
		inUTC:     inUTC,
		appenders: appenders,
	}
}

func (l *impl) Debugw(msg string, keysAndValues ...interface{}) {
	l.emit(DEBUG, false, msg, keysAndValues)
}

func (l *impl) Infow(msg string, keysAndValues ...interface{}) {
	l.emit(INFO, false, msg, keysAndValues)
}

func (l *impl) Warnw(msg string, keysAndValues ...interface{}) {
	l.emit(WARN, false, msg, keysAndValues)
}

func (l *impl) CDebugw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.emit(DEBUG, IsDebugMode(ctx), msg, keysAndValues)
}

func (l *impl) CInfow(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.emit(INFO, IsDebugMode(ctx), msg, keysAndValues)
}

func (l *impl) CWarnw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.emit(WARN, IsDebugMode(ctx), msg, keysAndValues)
}

func (l *impl) CErrorw(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.emit(ERROR, IsDebugMode(ctx), msg, keysAndValues)
}

func (l *impl) Sublogger(subname string) Logger {
	name := subname
	if l.name != "" {
		name = l.name + "." + subname
	}
	appenders := make([]Appender, len(l.appenders))
	copy(appenders, l.appenders)
	return newImpl(name, l.level.Get(), l.inUTC, appenders...)
}

func (l *impl) AddAppender(appender Appender) {
	l.appenders = append(l.appenders, appender)
}

func (l *impl) SetLevel(level Level) {
	l.level.Set(level)
}

func (l *impl) GetLevel() Level {
	return l.level.Get()
}

func (l *impl) Sync() error {
	var err error
	for _, appender := range l.appenders {
		err = multierr.Append(err, appender.Sync())
	}
	return err
}

// enabled reports whether an entry at level gets written. GlobalLogLevel at debug turns every
// logger fully on.
func (l *impl) enabled(level Level, forced bool) bool {
	return forced || GlobalLogLevel.Enabled(zapcore.DebugLevel) || level >= l.level.Get()
}

// emit must be called directly from the exported logging methods: the caller recorded on the
// entry is two frames up.
func (l *impl) emit(level Level, forced bool, msg string, keysAndValues []interface{}) {
	if !l.enabled(level, forced) {
		return
	}
	entry := zapcore.Entry{
		Level:      level.AsZap(),
		Time:       time.Now(),
		LoggerName: l.name,
		Message:    msg,
	}
	if l.inUTC {
		entry.Time = entry.Time.UTC()
	}
	if pc, file, line, ok := runtime.Caller(2); ok {
		entry.Caller = zapcore.NewEntryCaller(pc, file, line, true)
	}

	fields := toFields(keysAndValues)
	for _, appender := range l.appenders {
		if err := appender.Write(entry, fields); err != nil {
			fmt.Fprintln(os.Stderr, "log appender failed:", err)
		}
	}
}

// toFields pairs up keysAndValues. Values go through zap.Any, so structs are encoded with their
// exported fields only.
func toFields(keysAndValues []interface{}) []zapcore.Field {
	if len(keysAndValues) == 0 {
		return nil
	}
	fields := make([]zapcore.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 == len(keysAndValues) {
			fields = append(fields, zap.Any(key, errUnpairedKey))
			break
		}
		fields = append(fields, zap.Any(key, keysAndValues[i+1]))
	}
	return fields
}
