package rimage

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	// bmp overlay assets
	_ "golang.org/x/image/bmp"
)

// Overlay is a small static BGRA image decoded once at startup and reused for every frame. It is
// never mutated after construction.
type Overlay struct {
	width, height int
	pix           []byte
}

// NewOverlay copies already decoded BGRA pixels.
func NewOverlay(width, height int, pix []byte) (*Overlay, error) {
	if err := checkDimensions("overlay", width, height); err != nil {
		return nil, err
	}
	if expected := width * height * BytesPerPixel; len(pix) != expected {
		return nil, NewBufferSizeMismatchError("overlay", expected, len(pix))
	}
	owned := make([]byte, len(pix))
	copy(owned, pix)
	return &Overlay{width: width, height: height, pix: owned}, nil
}

// NewOverlayFromImage converts any image into BGRA overlay pixels.
func NewOverlayFromImage(img image.Image) (*Overlay, error) {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	if err := checkDimensions("overlay", bounds.Dx(), bounds.Dy()); err != nil {
		return nil, err
	}
	pix := make([]byte, len(nrgba.Pix))
	for i := 0; i < len(pix); i += BytesPerPixel {
		pix[i+ChannelBlue] = nrgba.Pix[i+2]
		pix[i+ChannelGreen] = nrgba.Pix[i+1]
		pix[i+ChannelRed] = nrgba.Pix[i]
		pix[i+ChannelAlpha] = nrgba.Pix[i+3]
	}
	return &Overlay{width: bounds.Dx(), height: bounds.Dy(), pix: pix}, nil
}

// LoadOverlay decodes an overlay asset (png, jpeg, bmp, tiff, gif).
func LoadOverlay(path string) (*Overlay, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load overlay %q", path)
	}
	return NewOverlayFromImage(img)
}

// Width returns the width of the overlay.
func (o *Overlay) Width() int {
	return o.width
}

// Height returns the height of the overlay.
func (o *Overlay) Height() int {
	return o.height
}

// Bounds returns the overlay's rectangle anchored at the origin.
func (o *Overlay) Bounds() image.Rectangle {
	return image.Rect(0, 0, o.width, o.height)
}

// CompositeOverlay imprints ov onto the top-left corner of dst. Inside the overlay region the blue
// channel is replaced by the overlay's blue channel and green, red and alpha keep whatever dst
// already holds, so the overlay shows up as a blue-tinted stencil rather than an opaque paste.
// An overlay larger than dst is clipped. A nil overlay is a no-op.
func CompositeOverlay(dst *ColorBuffer, ov *Overlay) error {
	if dst == nil {
		return errors.New("no color buffer to composite onto")
	}
	if ov == nil {
		return nil
	}
	if expected := dst.width * dst.height * BytesPerPixel; len(dst.pix) != expected {
		return NewBufferSizeMismatchError("color buffer", expected, len(dst.pix))
	}

	region := ov.Bounds().Intersect(dst.Bounds())
	for y := 0; y < region.Dy(); y++ {
		src := ov.pix[y*ov.width*BytesPerPixel:]
		row := dst.pix[dst.PixOffset(0, y):]
		for i := 0; i < region.Dx()*BytesPerPixel; i += BytesPerPixel {
			row[i+ChannelBlue] = src[i+ChannelBlue]
		}
	}
	return nil
}
