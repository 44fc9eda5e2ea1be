package pipeline

import (
	"sync"
	"time"

	"github.com/montanaflynn/stats"
)

const latencyWindow = 256

// Stats is a snapshot of the controller's counters.
type Stats struct {
	Published uint64
	Rejected  uint64
	Dropped   map[DropReason]uint64
	LastSeq   uint64
	Latency   LatencySummary
}

// TotalDropped sums the drops over every reason.
func (s Stats) TotalDropped() uint64 {
	var total uint64
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Ticks is every frame set the controller has seen: published, rejected, or dropped.
func (s Stats) Ticks() uint64 {
	return s.Published + s.Rejected + s.TotalDropped()
}

// LatencySummary describes how long the most recent published frames took, from acquisition to
// publication.
type LatencySummary struct {
	Count int
	Mean  time.Duration
	P50   time.Duration
	P95   time.Duration
	Max   time.Duration
}

type statsTracker struct {
	mu        sync.Mutex
	published uint64
	rejected  uint64
	dropped   map[DropReason]uint64
	lastSeq   uint64
	latencies []float64
	next      int
}

func newStatsTracker() *statsTracker {
	return &statsTracker{
		dropped:   make(map[DropReason]uint64),
		latencies: make([]float64, 0, latencyWindow),
	}
}

func (st *statsTracker) recordPublished(seq uint64, latency time.Duration) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.published++
	st.lastSeq = seq
	if len(st.latencies) < latencyWindow {
		st.latencies = append(st.latencies, float64(latency))
		return
	}
	st.latencies[st.next] = float64(latency)
	st.next = (st.next + 1) % latencyWindow
}

func (st *statsTracker) recordDropped(reason DropReason) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.dropped[reason]++
}

func (st *statsTracker) recordRejected() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.rejected++
}

func (st *statsTracker) snapshot(inboxDrops uint64) Stats {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := Stats{
		Published: st.published,
		Rejected:  st.rejected,
		Dropped:   make(map[DropReason]uint64, len(st.dropped)+1),
		LastSeq:   st.lastSeq,
		Latency:   summarize(st.latencies),
	}
	for reason, n := range st.dropped {
		out.Dropped[reason] = n
	}
	if inboxDrops > 0 {
		out.Dropped[DropSuperseded] += inboxDrops
	}
	return out
}

func summarize(latencies []float64) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	data := stats.LoadRawData(latencies)
	// errors only come back for empty input
	mean, _ := data.Mean()
	p50, _ := data.Percentile(50)
	p95, _ := data.Percentile(95)
	maxVal, _ := data.Max()
	return LatencySummary{
		Count: len(latencies),
		Mean:  time.Duration(mean),
		P50:   time.Duration(p50),
		P95:   time.Duration(p95),
		Max:   time.Duration(maxVal),
	}
}
