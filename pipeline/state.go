// Package pipeline turns synchronized depth and color frames into the two images shown to the
// display layer: the color frame with the overlay composited in, and the depth visualization
// aligned to color space.
//
// A Controller processes one frame set at a time. Frame sets that are incomplete, or that
// arrive while the output buffers are busy, are dropped rather than queued. Outputs are double
// buffered so a reader never sees a frame that is still being written.
package pipeline

import "fmt"

// State is where the controller is within the processing of a single frame set.
type State int32

// The states a frame set moves through. A dropped tick never leaves Idle.
const (
	StateIdle State = iota
	StateAcquired
	StateAligning
	StateCompositing
	StatePublished
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateAcquired:
		return "Acquired"
	case StateAligning:
		return "Aligning"
	case StateCompositing:
		return "Compositing"
	case StatePublished:
		return "Published"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DropReason says why a tick produced no output. Drops are not errors.
type DropReason int

// Reasons a tick is dropped.
const (
	DropMissingDepth DropReason = iota
	DropMissingColor
	DropBufferBusy
	DropSuperseded
)

func (r DropReason) String() string {
	switch r {
	case DropMissingDepth:
		return "missing_depth"
	case DropMissingColor:
		return "missing_color"
	case DropBufferBusy:
		return "buffer_busy"
	case DropSuperseded:
		return "superseded"
	default:
		return fmt.Sprintf("DropReason(%d)", int(r))
	}
}
