package rimage

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DepthVisualization holds one quantized depth byte per color-space pixel. 0 means no reliable
// depth maps to that pixel.
type DepthVisualization struct {
	width, height int
	pix           []byte
}

// NewDepthVisualization allocates a zeroed visualization sized to the color frame.
func NewDepthVisualization(width, height int) *DepthVisualization {
	return &DepthVisualization{
		width:  width,
		height: height,
		pix:    make([]byte, width*height),
	}
}

// Width returns the width of the visualization.
func (dv *DepthVisualization) Width() int {
	return dv.width
}

// Height returns the height of the visualization.
func (dv *DepthVisualization) Height() int {
	return dv.height
}

// Len returns the number of pixels.
func (dv *DepthVisualization) Len() int {
	return len(dv.pix)
}

// Pix exposes the bytes without copying.
func (dv *DepthVisualization) Pix() []byte {
	return dv.pix
}

// GetXY returns the byte at (x, y).
func (dv *DepthVisualization) GetXY(x, y int) uint8 {
	return dv.pix[y*dv.width+x]
}

// Clone returns a deep copy.
func (dv *DepthVisualization) Clone() *DepthVisualization {
	pix := make([]byte, len(dv.pix))
	copy(pix, dv.pix)
	return &DepthVisualization{width: dv.width, height: dv.height, pix: pix}
}

// ColorModel returns color.GrayModel.
func (dv *DepthVisualization) ColorModel() color.Model {
	return color.GrayModel
}

// Bounds returns the visualization's rectangle.
func (dv *DepthVisualization) Bounds() image.Rectangle {
	return image.Rect(0, 0, dv.width, dv.height)
}

// At returns the intensity at (x, y) as color.Gray, or black outside the bounds.
func (dv *DepthVisualization) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(dv.Bounds())) {
		return color.Gray{}
	}
	return color.Gray{Y: dv.GetXY(x, y)}
}

// ToGray copies the visualization into a standard library grayscale image.
func (dv *DepthVisualization) ToGray() *image.Gray {
	img := image.NewGray(dv.Bounds())
	copy(img.Pix, dv.pix)
	return img
}

// ToPrettyPicture renders a hue ramp over the quantized depth, near in orange and far in blue.
// Pixels without depth stay black.
func (dv *DepthVisualization) ToPrettyPicture() image.Image {
	img := image.NewNRGBA(dv.Bounds())

	var ramp [256]color.NRGBA
	for v := 1; v < len(ramp); v++ {
		ratio := float64(v) / 255
		hue := 30 + (200.0 * ratio)
		r, g, b := colorful.Hsv(hue, 1.0, 1.0).RGB255()
		ramp[v] = color.NRGBA{R: r, G: g, B: b, A: 255}
	}
	ramp[0] = color.NRGBA{A: 255}

	for i, v := range dv.pix {
		c := ramp[v]
		j := i * 4
		img.Pix[j], img.Pix[j+1], img.Pix[j+2], img.Pix[j+3] = c.R, c.G, c.B, c.A
	}
	return img
}
