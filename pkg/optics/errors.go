package optics

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfRange is matched by errors for motor positions outside the
	// calibrated domain.
	ErrOutOfRange = errors.New("position out of calibrated range")
	// ErrDegenerateGeometry is matched by errors for singular trigonometric or
	// rational terms that would otherwise produce Inf or NaN.
	ErrDegenerateGeometry = errors.New("degenerate geometry")
)

// Channel identifies which bender position failed interpolation.
type Channel int

const (
	ChannelBenderUpstream Channel = iota
	ChannelBenderDownstream
	ChannelHorizontalUpstream
	ChannelHorizontalDownstream
	ChannelVerticalUpstream
	ChannelVerticalDownstream
)

func (c Channel) String() string {
	switch c {
	case ChannelBenderUpstream:
		return "upstream bender"
	case ChannelBenderDownstream:
		return "downstream bender"
	case ChannelHorizontalUpstream:
		return "horizontal KB upstream bender"
	case ChannelHorizontalDownstream:
		return "horizontal KB downstream bender"
	case ChannelVerticalUpstream:
		return "vertical KB upstream bender"
	case ChannelVerticalDownstream:
		return "vertical KB downstream bender"
	default:
		return fmt.Sprintf("channel(%d)", int(c))
	}
}

// OutOfRangeError reports a position outside [Min, Max] of the calibration
// column used for Channel.
type OutOfRangeError struct {
	Channel  Channel
	Position float64
	Min      float64
	Max      float64
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s value %g is out of range [%g, %g]", e.Channel, e.Position, e.Min, e.Max)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// DegenerateGeometryError reports which term of which computation went singular.
type DegenerateGeometryError struct {
	Op   string
	Term string
}

func (e *DegenerateGeometryError) Error() string {
	return fmt.Sprintf("%s: degenerate geometry: %s", e.Op, e.Term)
}

func (e *DegenerateGeometryError) Is(target error) bool {
	return target == ErrDegenerateGeometry
}
