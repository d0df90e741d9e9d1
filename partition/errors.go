package partition

import (
	"errors"
	"fmt"
)

var (
	// ErrInputShape marks every fatal problem with the layout of the input
	// table. All ShapeErrors match it via errors.Is.
	ErrInputShape = errors.New("malformed partition table")

	// ErrUnsupportedChannelCount is returned for runs with fewer than
	// MinChannels or more than MaxChannels channels.
	ErrUnsupportedChannelCount = errors.New("unsupported channel count")
)

// ShapeError describes a fatal input-shape problem together with the well
// and channel count needed to diagnose it.
type ShapeError struct {
	Well     string
	Channels int
	Reason   string
	Err      error
}

func (e *ShapeError) Error() string {
	msg := fmt.Sprintf("well %s (%d channels): %s", e.Well, e.Channels, e.Reason)
	if e.Err != nil && e.Err != ErrInputShape {
		msg = fmt.Sprintf("%s: %s", msg, e.Err)
	}

	return msg
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrInputShape
}

func shapeErrorf(well string, channels int, format string, a ...interface{}) *ShapeError {
	return &ShapeError{
		Well:     well,
		Channels: channels,
		Reason:   fmt.Sprintf(format, a...),
		Err:      ErrInputShape,
	}
}
