package rimage

import (
	"image"
	"image/color"
)

// BytesPerPixel is the size of one converted color sample.
const BytesPerPixel = 4

// Channel offsets within a converted color sample.
const (
	ChannelBlue = iota
	ChannelGreen
	ChannelRed
	ChannelAlpha
)

// ColorFrame is a row-major grid of converted BGRA color samples captured in one tick. It is
// read-only once handed to the pipeline.
type ColorFrame struct {
	width, height int
	pix           []byte
}

// NewColorFrame wraps pix, which must hold exactly width*height*BytesPerPixel bytes. The frame
// takes ownership of pix.
func NewColorFrame(width, height int, pix []byte) (*ColorFrame, error) {
	if err := checkDimensions("color frame", width, height); err != nil {
		return nil, err
	}
	if expected := width * height * BytesPerPixel; len(pix) != expected {
		return nil, NewBufferSizeMismatchError("color frame", expected, len(pix))
	}
	return &ColorFrame{width: width, height: height, pix: pix}, nil
}

// Width returns the width of the frame.
func (cf *ColorFrame) Width() int {
	return cf.width
}

// Height returns the height of the frame.
func (cf *ColorFrame) Height() int {
	return cf.height
}

// Pix exposes the BGRA bytes without copying. Callers must not modify it.
func (cf *ColorFrame) Pix() []byte {
	return cf.pix
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (cf *ColorFrame) PixOffset(x, y int) int {
	return (y*cf.width + x) * BytesPerPixel
}

// BGRA returns the channels of the pixel at (x, y).
func (cf *ColorFrame) BGRA(x, y int) (b, g, r, a uint8) {
	i := cf.PixOffset(x, y)
	return cf.pix[i], cf.pix[i+1], cf.pix[i+2], cf.pix[i+3]
}

// ColorBuffer is the mutable BGRA output the pipeline composites into. Between frames it is
// handed to the display layer as a read-only image.Image.
type ColorBuffer struct {
	width, height int
	pix           []byte
}

// NewColorBuffer allocates a zeroed buffer.
func NewColorBuffer(width, height int) *ColorBuffer {
	return &ColorBuffer{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Width returns the width of the buffer.
func (cb *ColorBuffer) Width() int {
	return cb.width
}

// Height returns the height of the buffer.
func (cb *ColorBuffer) Height() int {
	return cb.height
}

// Pix exposes the BGRA bytes without copying.
func (cb *ColorBuffer) Pix() []byte {
	return cb.pix
}

// PixOffset returns the index of the first byte of the pixel at (x, y).
func (cb *ColorBuffer) PixOffset(x, y int) int {
	return (y*cb.width + x) * BytesPerPixel
}

// CopyFrom overwrites the whole buffer with src. The dimensions must match exactly.
func (cb *ColorBuffer) CopyFrom(src *ColorFrame) error {
	if src.width != cb.width || src.height != cb.height {
		return NewBufferSizeMismatchError("color frame", len(cb.pix), len(src.pix))
	}
	copy(cb.pix, src.pix)
	return nil
}

// Clone returns a deep copy.
func (cb *ColorBuffer) Clone() *ColorBuffer {
	pix := make([]byte, len(cb.pix))
	copy(pix, cb.pix)
	return &ColorBuffer{width: cb.width, height: cb.height, pix: pix}
}

// ColorModel returns color.NRGBAModel.
func (cb *ColorBuffer) ColorModel() color.Model {
	return color.NRGBAModel
}

// Bounds returns the buffer's rectangle.
func (cb *ColorBuffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, cb.width, cb.height)
}

// At returns the pixel at (x, y) as color.NRGBA, or transparent black outside the bounds.
func (cb *ColorBuffer) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(cb.Bounds())) {
		return color.NRGBA{}
	}
	i := cb.PixOffset(x, y)
	return color.NRGBA{R: cb.pix[i+ChannelRed], G: cb.pix[i+ChannelGreen], B: cb.pix[i+ChannelBlue], A: cb.pix[i+ChannelAlpha]}
}

// ToNRGBA converts the buffer into a standard library image in RGBA channel order.
func (cb *ColorBuffer) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(cb.Bounds())
	for i := 0; i < len(cb.pix); i += BytesPerPixel {
		img.Pix[i] = cb.pix[i+ChannelRed]
		img.Pix[i+1] = cb.pix[i+ChannelGreen]
		img.Pix[i+2] = cb.pix[i+ChannelBlue]
		img.Pix[i+3] = cb.pix[i+ChannelAlpha]
	}
	return img
}
