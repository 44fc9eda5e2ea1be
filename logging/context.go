package logging

import (
	"context"

	"go.viam.com/utils"
)

type debugKeyType struct{}

// EnableDebugMode marks ctx so that the C* logging methods write entries at every level, e.g. to
// trace a single frame set through the pipeline. An empty key is replaced with a random one.
func EnableDebugMode(ctx context.Context, key string) context.Context {
	if key == "" {
		key = utils.RandomAlphaString(6)
	}
	return context.WithValue(ctx, debugKeyType{}, key)
}

// IsDebugMode reports whether ctx was marked with EnableDebugMode.
func IsDebugMode(ctx context.Context) bool {
	return DebugKey(ctx) != ""
}

// DebugKey returns the key passed to EnableDebugMode, or "" if ctx is not in debug mode.
func DebugKey(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	key, _ := ctx.Value(debugKeyType{}).(string)
	return key
}
