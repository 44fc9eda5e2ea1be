// Package capture describes the frames the capture layer hands to the pipeline, and provides a
// synthetic source so the pipeline can run without a sensor attached.
package capture

import (
	"context"
	"time"

	"go.viam.com/coordmap/rimage"
	"go.viam.com/coordmap/rimage/transform"
)

// A FrameSet is what one capture tick produced. Depth or Color is nil when the sensor did not
// deliver that frame for the tick. Correspondence is nil when the source leaves calibration to
// the consumer's CoordinateMapper.
type FrameSet struct {
	Seq            uint64
	Timestamp      time.Time
	Depth          *rimage.DepthFrame
	Color          *rimage.ColorFrame
	Correspondence *transform.Correspondence
}

// Complete reports whether both frames are present.
func (fs *FrameSet) Complete() bool {
	return fs != nil && fs.Depth != nil && fs.Color != nil
}

// A Source delivers frame sets. The release func returned by Next must be called exactly once
// when the consumer is done reading the frame set; after that the source may reuse its buffers.
type Source interface {
	Name() string
	Next(ctx context.Context) (*FrameSet, func(), error)
	Close(ctx context.Context) error
}
