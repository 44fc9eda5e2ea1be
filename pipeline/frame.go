package pipeline

import (
	"time"

	"go.viam.com/coordmap/rimage"
)

// Frame is the published pair of output images. It is read-only and only valid until the release
// func handed out with it is called.
type Frame struct {
	// Generation counts publications, starting at 1. 0 means nothing has been published yet and
	// both images are blank.
	Generation uint64
	Seq        uint64
	Timestamp  time.Time
	Color      *rimage.ColorBuffer
	Depth      *rimage.DepthVisualization
}

// Published reports whether the frame came from a processed frame set.
func (f Frame) Published() bool {
	return f.Generation > 0
}
