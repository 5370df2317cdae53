package optics

import (
	"errors"
	"fmt"

	"github.com/pcdshub/rixcalc/pkg/calib"
)

// KBOffsets are the distances subtracted from the KB calibration parameter to
// express the focus relative to the interaction point.
type KBOffsets struct {
	Horizontal float64 `json:"horizontal"`
	Vertical   float64 `json:"vertical"`
}

// DefaultKBOffsets returns the offsets of the ChemRIXS interaction point from
// MR3K2 and MR4K2.
func DefaultKBOffsets() KBOffsets {
	return KBOffsets{
		Horizontal: 8.8,
		Vertical:   7.3,
	}
}

// benderPair interpolates both motors of one bendable mirror against the
// shared parameter column of its table.
type benderPair struct {
	us *Interpolator
	ds *Interpolator
}

func newBenderPair(t *calib.Table) (benderPair, error) {
	if t == nil {
		return benderPair{}, &calib.LoadError{Source: "<nil>", Err: errors.New("calibration table is not loaded")}
	}
	us, err := NewInterpolator(t.Upstream, t.Parameter)
	if err != nil {
		return benderPair{}, &calib.LoadError{Source: t.Name, Err: fmt.Errorf("upstream: %w", err)}
	}
	ds, err := NewInterpolator(t.Downstream, t.Parameter)
	if err != nil {
		return benderPair{}, &calib.LoadError{Source: t.Name, Err: fmt.Errorf("downstream: %w", err)}
	}
	return benderPair{us: us, ds: ds}, nil
}

func outOfRange(in *Interpolator, ch Channel, x float64) error {
	lo, hi := in.Domain()
	return &OutOfRangeError{Channel: ch, Position: x, Min: lo, Max: hi}
}

// Bender computes the focus of a bendable mirror with an upstream and a
// downstream bender motor.
type Bender struct {
	pair benderPair
}

// NewBender prepares interpolation over t. It fails with a calibration error
// when a position column is not ascending.
func NewBender(t *calib.Table) (*Bender, error) {
	pair, err := newBenderPair(t)
	if err != nil {
		return nil, err
	}
	return &Bender{pair: pair}, nil
}

// Focus returns the mean of the focus parameters interpolated from the
// upstream and downstream positions.
func (b *Bender) Focus(us, ds float64) (float64, error) {
	q1, ok := b.pair.us.At(us)
	if !ok {
		return 0, outOfRange(b.pair.us, ChannelBenderUpstream, us)
	}
	q2, ok := b.pair.ds.At(ds)
	if !ok {
		return 0, outOfRange(b.pair.ds, ChannelBenderDownstream, ds)
	}
	return 0.5 * (q1 + q2), nil
}

// KBFocus holds the four focus positions of a KB mirror pair.
type KBFocus struct {
	HorizontalUpstream   float64 `json:"horizontalUpstream"`
	HorizontalDownstream float64 `json:"horizontalDownstream"`
	VerticalUpstream     float64 `json:"verticalUpstream"`
	VerticalDownstream   float64 `json:"verticalDownstream"`
}

// KB computes focus positions for a horizontal and a vertical KB mirror.
type KB struct {
	h       benderPair
	v       benderPair
	offsets KBOffsets
}

// NewKB prepares interpolation over the horizontal and vertical tables.
func NewKB(horizontal, vertical *calib.Table, offsets KBOffsets) (*KB, error) {
	h, err := newBenderPair(horizontal)
	if err != nil {
		return nil, err
	}
	v, err := newBenderPair(vertical)
	if err != nil {
		return nil, err
	}
	return &KB{h: h, v: v, offsets: offsets}, nil
}

// Focus interpolates each bender position independently and subtracts the
// mirror's offset. Every channel that is out of range contributes its own
// *OutOfRangeError to the returned error.
func (k *KB) Focus(usH, dsH, usV, dsV float64) (KBFocus, error) {
	var f KBFocus
	channels := []struct {
		in     *Interpolator
		ch     Channel
		x      float64
		offset float64
		dst    *float64
	}{
		{k.h.us, ChannelHorizontalUpstream, usH, k.offsets.Horizontal, &f.HorizontalUpstream},
		{k.h.ds, ChannelHorizontalDownstream, dsH, k.offsets.Horizontal, &f.HorizontalDownstream},
		{k.v.us, ChannelVerticalUpstream, usV, k.offsets.Vertical, &f.VerticalUpstream},
		{k.v.ds, ChannelVerticalDownstream, dsV, k.offsets.Vertical, &f.VerticalDownstream},
	}

	var errs []error
	for _, c := range channels {
		q, ok := c.in.At(c.x)
		if !ok {
			errs = append(errs, outOfRange(c.in, c.ch, c.x))
			continue
		}
		*c.dst = q - c.offset
	}
	if len(errs) > 0 {
		return KBFocus{}, errors.Join(errs...)
	}

	return f, nil
}
