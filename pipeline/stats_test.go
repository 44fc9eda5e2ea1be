package pipeline

import (
	"testing"
	"time"

	"go.viam.com/test"
)

func TestStatsTracker(t *testing.T) {
	st := newStatsTracker()
	test.That(t, st.snapshot(0).Latency, test.ShouldResemble, LatencySummary{})

	for i := 1; i <= 4; i++ {
		st.recordPublished(uint64(i), time.Duration(i)*time.Millisecond)
	}
	st.recordDropped(DropBufferBusy)
	st.recordRejected()

	s := st.snapshot(2)
	test.That(t, s.Published, test.ShouldEqual, uint64(4))
	test.That(t, s.Rejected, test.ShouldEqual, uint64(1))
	test.That(t, s.LastSeq, test.ShouldEqual, uint64(4))
	test.That(t, s.Dropped, test.ShouldResemble, map[DropReason]uint64{DropBufferBusy: 1, DropSuperseded: 2})
	test.That(t, s.TotalDropped(), test.ShouldEqual, uint64(3))
	test.That(t, s.Ticks(), test.ShouldEqual, uint64(8))
	test.That(t, s.Latency.Count, test.ShouldEqual, 4)
	test.That(t, s.Latency.Mean, test.ShouldEqual, 2500*time.Microsecond)
	test.That(t, s.Latency.Max, test.ShouldEqual, 4*time.Millisecond)
	test.That(t, s.Latency.P50, test.ShouldBeBetweenOrEqual, time.Millisecond, 4*time.Millisecond)
}

func TestStatsLatencyWindow(t *testing.T) {
	st := newStatsTracker()
	for i := 0; i < latencyWindow+10; i++ {
		st.recordPublished(uint64(i), time.Millisecond)
	}
	s := st.snapshot(0)
	test.That(t, s.Latency.Count, test.ShouldEqual, latencyWindow)
	test.That(t, s.Published, test.ShouldEqual, uint64(latencyWindow+10))
}

func TestStateStrings(t *testing.T) {
	test.That(t, StateIdle.String(), test.ShouldEqual, "Idle")
	test.That(t, StateCompositing.String(), test.ShouldEqual, "Compositing")
	test.That(t, State(42).String(), test.ShouldEqual, "State(42)")
	test.That(t, DropBufferBusy.String(), test.ShouldEqual, "buffer_busy")
}
