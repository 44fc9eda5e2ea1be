package rimage

import (
	"math"

	"github.com/pkg/errors"
)

// DefaultMaxDisplayDepth is the depth, in millimeters, that maps to the top of the byte range.
const DefaultMaxDisplayDepth = 8000

// DefaultQuantizer maps DefaultMaxDisplayDepth onto [0, 255].
var DefaultQuantizer = DepthQuantizer{scale: DefaultMaxDisplayDepth / 256}

// DepthQuantizer turns a depth sample into a display intensity by integer division by a fixed
// scale. The zero value behaves like DefaultQuantizer.
type DepthQuantizer struct {
	scale Depth
}

// NewDepthQuantizer returns a quantizer with scale maxDisplayDepth / 256.
func NewDepthQuantizer(maxDisplayDepth int) (DepthQuantizer, error) {
	if maxDisplayDepth < 256 || maxDisplayDepth > int(MaxDepth) {
		return DepthQuantizer{}, errors.Errorf("max display depth must be in [256, %d], got %d", MaxDepth, maxDisplayDepth)
	}
	return DepthQuantizer{scale: Depth(maxDisplayDepth / 256)}, nil
}

// Scale returns the divisor applied to reliable samples.
func (q DepthQuantizer) Scale() Depth {
	if q.scale == 0 {
		return DefaultQuantizer.scale
	}
	return q.scale
}

// Quantize returns 0 for samples outside [minReliable, maxReliable], otherwise depth / scale
// clamped to 255. It is monotonic over the reliable range.
func (q DepthQuantizer) Quantize(depth, minReliable, maxReliable Depth) uint8 {
	if depth < minReliable || depth > maxReliable {
		return 0
	}
	v := depth / q.Scale()
	if v > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(v)
}

// Quantize applies DefaultQuantizer.
func Quantize(depth, minReliable, maxReliable Depth) uint8 {
	return DefaultQuantizer.Quantize(depth, minReliable, maxReliable)
}
