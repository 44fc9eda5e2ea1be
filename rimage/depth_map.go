// Package rimage holds the frame buffers that flow through coordmap: raw depth samples, converted
// color samples, the quantized depth visualization, and the static overlay image.
package rimage

import (
	"math"
)

// Depth is the depth sensor's native unit, millimeters.
type Depth uint16

// MaxDepth is the largest representable depth. The sensor uses it to mean "no measurable depth",
// and it is the implicit upper bound of the reliable range.
const MaxDepth = Depth(math.MaxUint16)

// DepthFrame is a row-major grid of depth samples captured in one tick along with the sensor's
// minimum reliable distance for that tick. It is read-only once handed to the pipeline.
type DepthFrame struct {
	width  int
	height int

	data        []Depth
	minReliable Depth
}

// NewEmptyDepthFrame returns a zeroed frame with no reliability floor.
func NewEmptyDepthFrame(width, height int) *DepthFrame {
	return &DepthFrame{
		width:  width,
		height: height,
		data:   make([]Depth, width*height),
	}
}

// NewDepthFrame wraps data, which must hold exactly width*height samples. The frame takes
// ownership of data.
func NewDepthFrame(width, height int, data []Depth, minReliable Depth) (*DepthFrame, error) {
	if err := checkDimensions("depth frame", width, height); err != nil {
		return nil, err
	}
	if len(data) != width*height {
		return nil, NewBufferSizeMismatchError("depth frame", width*height, len(data))
	}
	return &DepthFrame{width: width, height: height, data: data, minReliable: minReliable}, nil
}

// NewDepthFrameFromUint16 copies raw sensor samples into a new frame.
func NewDepthFrameFromUint16(width, height int, raw []uint16, minReliable Depth) (*DepthFrame, error) {
	if err := checkDimensions("depth frame", width, height); err != nil {
		return nil, err
	}
	if len(raw) != width*height {
		return nil, NewBufferSizeMismatchError("depth frame", width*height, len(raw))
	}
	data := make([]Depth, len(raw))
	for i, v := range raw {
		data[i] = Depth(v)
	}
	return &DepthFrame{width: width, height: height, data: data, minReliable: minReliable}, nil
}

// Width returns the width of the frame.
func (df *DepthFrame) Width() int {
	return df.width
}

// Height returns the height of the frame.
func (df *DepthFrame) Height() int {
	return df.height
}

// Len returns the number of samples.
func (df *DepthFrame) Len() int {
	return len(df.data)
}

// Contains reports whether (x, y) is on the grid.
func (df *DepthFrame) Contains(x, y int) bool {
	return x >= 0 && y >= 0 && x < df.width && y < df.height
}

func (df *DepthFrame) kxy(x, y int) int {
	return (y * df.width) + x
}

// GetDepth returns the sample at (x, y).
func (df *DepthFrame) GetDepth(x, y int) Depth {
	return df.data[df.kxy(x, y)]
}

// Set stores a sample. Only capture code building a frame should call this.
func (df *DepthFrame) Set(x, y int, val Depth) {
	df.data[df.kxy(x, y)] = val
}

// Data exposes the row-major samples without copying. Callers must not modify it.
func (df *DepthFrame) Data() []Depth {
	return df.data
}

// MinReliableDistance is the inclusive lower bound of trustworthy samples.
func (df *DepthFrame) MinReliableDistance() Depth {
	return df.minReliable
}

// MaxReliableDistance is the inclusive upper bound of trustworthy samples.
func (df *DepthFrame) MaxReliableDistance() Depth {
	return MaxDepth
}

// SetMinReliableDistance replaces the sensor reported floor.
func (df *DepthFrame) SetMinReliableDistance(d Depth) {
	df.minReliable = d
}

// MinMax returns the smallest and largest non-zero samples. Both are 0 for an all zero frame.
func (df *DepthFrame) MinMax() (Depth, Depth) {
	min := MaxDepth
	max := Depth(0)

	for _, z := range df.data {
		if z == 0 {
			continue
		}
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	if max == 0 {
		return 0, 0
	}

	return min, max
}

// Clone returns a deep copy.
func (df *DepthFrame) Clone() *DepthFrame {
	data := make([]Depth, len(df.data))
	copy(data, df.data)
	return &DepthFrame{width: df.width, height: df.height, data: data, minReliable: df.minReliable}
}
