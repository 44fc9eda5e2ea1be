package logging

import "context"

// Logger writes structured entries: a message followed by alternating keys and values. The C*
// variants also log when ctx was marked with EnableDebugMode, whatever the logger's level.
type Logger interface {
	Debugw(msg string, keysAndValues ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warnw(msg string, keysAndValues ...interface{})

	CDebugw(ctx context.Context, msg string, keysAndValues ...interface{})
	CInfow(ctx context.Context, msg string, keysAndValues ...interface{})
	CWarnw(ctx context.Context, msg string, keysAndValues ...interface{})
	CErrorw(ctx context.Context, msg string, keysAndValues ...interface{})

	// Sublogger returns a logger named "<name>.<subname>" that starts at this logger's level and
	// writes to the appenders this logger has at the time of the call.
	Sublogger(subname string) Logger
	AddAppender(appender Appender)
	SetLevel(level Level)
	GetLevel() Level

	// Sync flushes every appender.
	Sync() error
}
