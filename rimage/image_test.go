package rimage

import (
	"errors"
	"image/color"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.viam.com/test"
)

func TestColorFrame(t *testing.T) {
	cf, err := NewColorFrame(2, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	test.That(t, err, test.ShouldBeNil)
	b, g, r, a := cf.BGRA(1, 0)
	test.That(t, []uint8{b, g, r, a}, test.ShouldResemble, []uint8{5, 6, 7, 8})

	_, err = NewColorFrame(2, 2, make([]byte, 8))
	test.That(t, errors.Is(err, ErrBufferSizeMismatch), test.ShouldBeTrue)
}

func TestColorBuffer(t *testing.T) {
	cf, err := NewColorFrame(2, 1, []byte{1, 2, 3, 4, 5, 6, 7, 8})
	test.That(t, err, test.ShouldBeNil)

	cb := NewColorBuffer(2, 1)
	test.That(t, cb.CopyFrom(cf), test.ShouldBeNil)
	if diff := cmp.Diff(cf.Pix(), cb.Pix()); diff != "" {
		t.Fatalf("copied buffer differs (-want +got):\n%s", diff)
	}
	// the buffer owns its bytes
	cb.Pix()[0] = 100
	test.That(t, cf.Pix()[0], test.ShouldEqual, byte(1))

	test.That(t, cb.At(1, 0), test.ShouldResemble, color.NRGBA{R: 7, G: 6, B: 5, A: 8})
	test.That(t, cb.At(2, 0), test.ShouldResemble, color.NRGBA{})
	test.That(t, cb.ToNRGBA().Pix, test.ShouldResemble, []byte{3, 2, 100, 4, 7, 6, 5, 8})

	other := NewColorBuffer(1, 2)
	test.That(t, errors.Is(other.CopyFrom(cf), ErrBufferSizeMismatch), test.ShouldBeTrue)
}

func TestDepthVisualization(t *testing.T) {
	dv := NewDepthVisualization(3, 1)
	copy(dv.Pix(), []byte{0, 128, 255})

	test.That(t, dv.Len(), test.ShouldEqual, 3)
	test.That(t, dv.GetXY(1, 0), test.ShouldEqual, uint8(128))
	test.That(t, dv.At(2, 0), test.ShouldResemble, color.Gray{Y: 255})
	test.That(t, dv.At(5, 5), test.ShouldResemble, color.Gray{})
	test.That(t, dv.ToGray().Pix, test.ShouldResemble, []byte{0, 128, 255})

	pretty := dv.ToPrettyPicture()
	test.That(t, pretty.Bounds(), test.ShouldResemble, dv.Bounds())
	test.That(t, pretty.At(0, 0), test.ShouldResemble, color.NRGBA{A: 255})
	near := pretty.At(1, 0).(color.NRGBA)
	far := pretty.At(2, 0).(color.NRGBA)
	test.That(t, near, test.ShouldNotResemble, far)
	test.That(t, far.B, test.ShouldBeGreaterThan, far.R)

	clone := dv.Clone()
	clone.Pix()[0] = 7
	test.That(t, dv.Pix()[0], test.ShouldEqual, byte(0))
}
