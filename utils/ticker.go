package utils

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	goutils "go.viam.com/utils"

	"go.viam.com/coordmap/logging"
)

// SlowLogger starts a goroutine that warns every few seconds until the returned stop function is
// called or ctx is done. It is used around blocking waits, such as a sensor that has not
// delivered a frame yet.
func SlowLogger(ctx context.Context, clk clock.Clock, msg, fieldName, fieldVal string, logger logging.Logger) func() {
	if clk == nil {
		clk = clock.New()
	}
	slowTimer := clk.Timer(2 * time.Second)
	firstTick := true

	ctxWithCancel, cancel := context.WithCancel(ctx)
	startTime := clk.Now()
	done := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		defer close(done)
		for {
			select {
			case <-slowTimer.C:
				elapsed := clk.Since(startTime).Round(time.Second).String()
				logger.CWarnw(ctx, msg, fieldName, fieldVal, "time_elapsed", elapsed)
				if firstTick {
					slowTimer.Reset(3 * time.Second)
					firstTick = false
				} else {
					slowTimer.Reset(5 * time.Second)
				}
			case <-ctxWithCancel.Done():
				return
			}
		}
	})
	return func() {
		slowTimer.Stop()
		cancel()
		<-done
	}
}
