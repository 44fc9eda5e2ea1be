package rimage

import (
	"github.com/pkg/errors"
)

// ErrBufferSizeMismatch is returned, wrapped, whenever a buffer handed across the capture or
// display boundary does not have the element count its dimensions require.
var ErrBufferSizeMismatch = errors.New("buffer size mismatch")

// NewBufferSizeMismatchError describes which buffer was the wrong size. The result satisfies
// errors.Is(err, ErrBufferSizeMismatch).
func NewBufferSizeMismatchError(buffer string, expected, actual int) error {
	return errors.Wrapf(ErrBufferSizeMismatch, "%s has %d elements, expected %d", buffer, actual, expected)
}

func checkDimensions(what string, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("bad width or height for %s %v %v", what, width, height)
	}
	return nil
}
