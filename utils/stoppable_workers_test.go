package utils

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"go.viam.com/coordmap/logging"
)

func TestStoppableWorkers(t *testing.T) {
	var running atomic.Int32
	sw := NewStoppableWorkers(func(ctx context.Context) {
		running.Add(1)
		<-ctx.Done()
		running.Add(-1)
	})
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		test.That(tb, running.Load(), test.ShouldEqual, 1)
	})
	sw.Stop()
	test.That(t, running.Load(), test.ShouldEqual, 0)
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// no-op once stopped
	sw.AddWorkers(func(ctx context.Context) { running.Add(1) })
	sw.Stop()
	test.That(t, running.Load(), test.ShouldEqual, 0)
}

func TestStoppableWorkersParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sw := NewStoppableWorkersWithContext(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	sw.Stop()
}

func TestAddTicker(t *testing.T) {
	var ticks atomic.Int32
	sw := NewStoppableWorkers()
	sw.AddTicker(clock.New(), time.Millisecond, func(ctx context.Context) {
		ticks.Add(1)
	})
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		test.That(tb, ticks.Load(), test.ShouldBeGreaterThanOrEqualTo, int32(3))
	})
	sw.Stop()
	stopped := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	test.That(t, ticks.Load(), test.ShouldEqual, stopped)
}

func TestSlowLogger(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	clk := clock.NewMock()

	stop := SlowLogger(context.Background(), clk, "waiting for frame set", "source", "sim", logger)
	clk.Add(time.Second)
	test.That(t, logs.FilterMessage("waiting for frame set").Len(), test.ShouldEqual, 0)

	clk.Add(time.Second)
	testutils.WaitForAssertion(t, func(tb testing.TB) {
		test.That(tb, logs.FilterMessage("waiting for frame set").Len(), test.ShouldEqual, 1)
	})
	stop()

	entry := logs.FilterMessage("waiting for frame set").All()[0]
	test.That(t, entry.ContextMap()["source"], test.ShouldEqual, "sim")
	test.That(t, entry.ContextMap()["time_elapsed"], test.ShouldEqual, "2s")
}
