package rimage

import (
	"errors"
	"testing"

	"go.viam.com/test"
)

func TestDepthFrameIndexing(t *testing.T) {
	df := NewEmptyDepthFrame(3, 2)
	df.Set(0, 0, 1)
	df.Set(2, 0, 2)
	df.Set(1, 1, 3)

	test.That(t, df.Width(), test.ShouldEqual, 3)
	test.That(t, df.Height(), test.ShouldEqual, 2)
	test.That(t, df.Len(), test.ShouldEqual, 6)
	test.That(t, df.Data(), test.ShouldResemble, []Depth{1, 0, 2, 0, 3, 0})
	test.That(t, df.GetDepth(1, 1), test.ShouldEqual, Depth(3))

	test.That(t, df.Contains(2, 1), test.ShouldBeTrue)
	test.That(t, df.Contains(3, 1), test.ShouldBeFalse)
	test.That(t, df.Contains(0, -1), test.ShouldBeFalse)
}

func TestNewDepthFrame(t *testing.T) {
	df, err := NewDepthFrameFromUint16(2, 2, []uint16{10, 0, 700, 65535}, 400)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, df.MinReliableDistance(), test.ShouldEqual, Depth(400))
	test.That(t, df.MaxReliableDistance(), test.ShouldEqual, MaxDepth)

	min, max := df.MinMax()
	test.That(t, min, test.ShouldEqual, Depth(10))
	test.That(t, max, test.ShouldEqual, MaxDepth)

	clone := df.Clone()
	clone.Set(0, 0, 11)
	clone.SetMinReliableDistance(500)
	test.That(t, df.GetDepth(0, 0), test.ShouldEqual, Depth(10))
	test.That(t, df.MinReliableDistance(), test.ShouldEqual, Depth(400))

	_, err = NewDepthFrame(2, 2, make([]Depth, 3), 0)
	test.That(t, errors.Is(err, ErrBufferSizeMismatch), test.ShouldBeTrue)
	test.That(t, err.Error(), test.ShouldContainSubstring, "depth frame has 3 elements, expected 4")

	_, err = NewDepthFrameFromUint16(0, 2, nil, 0)
	test.That(t, err, test.ShouldNotBeNil)

	min, max = NewEmptyDepthFrame(2, 2).MinMax()
	test.That(t, min, test.ShouldEqual, Depth(0))
	test.That(t, max, test.ShouldEqual, Depth(0))
}
