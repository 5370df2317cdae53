package optics

import (
	"errors"
	"testing"

	"github.com/pcdshub/rixcalc/pkg/calib"
)

func TestBenderFocusEndToEnd(t *testing.T) {
	b, err := NewBender(&calib.Table{
		Name:       "MR1K1",
		Parameter:  []float64{0, 1},
		Upstream:   []float64{0, 10},
		Downstream: []float64{0, 20},
	})
	if err != nil {
		t.Fatalf("NewBender() error = %v", err)
	}

	got, err := b.Focus(5, 10)
	if err != nil {
		t.Fatalf("Focus() error = %v", err)
	}
	if !almostEqual(got, 0.5) {
		t.Errorf("Focus(5, 10) = %v, want 0.5", got)
	}
}

func TestBenderFocusIsMeanOfInterpolations(t *testing.T) {
	b, err := NewBender(&calib.Table{
		Parameter:  []float64{1, 2, 4},
		Upstream:   []float64{0, 10, 20},
		Downstream: []float64{0, 5, 10},
	})
	if err != nil {
		t.Fatalf("NewBender() error = %v", err)
	}

	tests := []struct {
		us, ds float64
		want   float64
	}{
		// q1 = 1.5, q2 = 3
		{us: 5, ds: 7.5, want: 2.25},
		// q1 = 3, q2 = 1.5
		{us: 15, ds: 2.5, want: 2.25},
		// q1 = 2, q2 = 2
		{us: 10, ds: 5, want: 2},
		// q1 = 4, q2 = 1
		{us: 20, ds: 0, want: 2.5},
	}
	for _, tt := range tests {
		got, err := b.Focus(tt.us, tt.ds)
		if err != nil {
			t.Fatalf("Focus(%v, %v) error = %v", tt.us, tt.ds, err)
		}
		if !almostEqual(got, tt.want) {
			t.Errorf("Focus(%v, %v) = %v, want %v", tt.us, tt.ds, got, tt.want)
		}
	}
}

func TestBenderFocusOutOfRange(t *testing.T) {
	b, err := NewBender(&calib.Table{
		Parameter:  []float64{0, 1},
		Upstream:   []float64{0, 10},
		Downstream: []float64{0, 20},
	})
	if err != nil {
		t.Fatalf("NewBender() error = %v", err)
	}

	tests := []struct {
		name    string
		us, ds  float64
		channel Channel
	}{
		{name: "upstream below", us: -1, ds: 10, channel: ChannelBenderUpstream},
		{name: "upstream above", us: 11, ds: 10, channel: ChannelBenderUpstream},
		{name: "downstream below", us: 5, ds: -0.5, channel: ChannelBenderDownstream},
		{name: "downstream above", us: 5, ds: 21, channel: ChannelBenderDownstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.Focus(tt.us, tt.ds)
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("Focus() error = %v, want ErrOutOfRange", err)
			}
			var oor *OutOfRangeError
			if !errors.As(err, &oor) || oor.Channel != tt.channel {
				t.Errorf("Focus() error = %v, want channel %v", err, tt.channel)
			}
		})
	}
}

func TestNewBenderRejectsDescendingTable(t *testing.T) {
	_, err := NewBender(&calib.Table{
		Name:       "MR1K1",
		Parameter:  []float64{0, 1},
		Upstream:   []float64{10, 0},
		Downstream: []float64{0, 20},
	})
	if !errors.Is(err, calib.ErrCalibrationLoad) {
		t.Errorf("NewBender() error = %v, want ErrCalibrationLoad", err)
	}
}

func newTestKB(t *testing.T) *KB {
	t.Helper()
	k, err := NewKB(
		&calib.Table{
			Name:       "MR3K2",
			Parameter:  []float64{20.5, 21.5, 23},
			Upstream:   []float64{-1, 0, 1},
			Downstream: []float64{2, 3, 4},
		},
		&calib.Table{
			Name:       "MR4K2",
			Parameter:  []float64{17.25, 18, 19.75},
			Upstream:   []float64{100, 200, 300},
			Downstream: []float64{-30, -20, -10},
		},
		DefaultKBOffsets(),
	)
	if err != nil {
		t.Fatalf("NewKB() error = %v", err)
	}
	return k
}

func TestKBFocusAtTabulatedPoints(t *testing.T) {
	k := newTestKB(t)

	for i := 0; i < 3; i++ {
		usH := []float64{-1, 0, 1}[i]
		dsH := []float64{2, 3, 4}[i]
		usV := []float64{100, 200, 300}[i]
		dsV := []float64{-30, -20, -10}[i]
		qH := []float64{20.5, 21.5, 23}[i]
		qV := []float64{17.25, 18, 19.75}[i]

		got, err := k.Focus(usH, dsH, usV, dsV)
		if err != nil {
			t.Fatalf("Focus() row %d error = %v", i, err)
		}
		want := KBFocus{
			HorizontalUpstream:   qH - 8.8,
			HorizontalDownstream: qH - 8.8,
			VerticalUpstream:     qV - 7.3,
			VerticalDownstream:   qV - 7.3,
		}
		if got != want {
			t.Errorf("Focus() row %d = %+v, want %+v", i, got, want)
		}
	}
}

func TestKBFocusInterpolates(t *testing.T) {
	k := newTestKB(t)

	got, err := k.Focus(-0.5, 3.5, 250, -25)
	if err != nil {
		t.Fatalf("Focus() error = %v", err)
	}
	want := KBFocus{
		HorizontalUpstream:   21 - 8.8,
		HorizontalDownstream: 22.25 - 8.8,
		VerticalUpstream:     18.875 - 7.3,
		VerticalDownstream:   17.625 - 7.3,
	}
	for _, c := range []struct{ got, want float64 }{
		{got.HorizontalUpstream, want.HorizontalUpstream},
		{got.HorizontalDownstream, want.HorizontalDownstream},
		{got.VerticalUpstream, want.VerticalUpstream},
		{got.VerticalDownstream, want.VerticalDownstream},
	} {
		if !almostEqual(c.got, c.want) {
			t.Errorf("Focus() = %+v, want %+v", got, want)
			break
		}
	}
}

func TestKBFocusOutOfRangePerChannel(t *testing.T) {
	k := newTestKB(t)

	tests := []struct {
		name               string
		usH, dsH, usV, dsV float64
		want               []Channel
	}{
		{name: "horizontal upstream", usH: -2, dsH: 3, usV: 200, dsV: -20, want: []Channel{ChannelHorizontalUpstream}},
		{name: "horizontal downstream", usH: 0, dsH: 5, usV: 200, dsV: -20, want: []Channel{ChannelHorizontalDownstream}},
		{name: "vertical upstream", usH: 0, dsH: 3, usV: 99, dsV: -20, want: []Channel{ChannelVerticalUpstream}},
		{name: "vertical downstream", usH: 0, dsH: 3, usV: 200, dsV: 0, want: []Channel{ChannelVerticalDownstream}},
		{
			name: "all channels",
			usH:  9,
			dsH:  9,
			usV:  9,
			dsV:  9,
			want: []Channel{
				ChannelHorizontalUpstream,
				ChannelHorizontalDownstream,
				ChannelVerticalUpstream,
				ChannelVerticalDownstream,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := k.Focus(tt.usH, tt.dsH, tt.usV, tt.dsV)
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("Focus() error = %v, want ErrOutOfRange", err)
			}
			joined, ok := err.(interface{ Unwrap() []error })
			if !ok {
				t.Fatalf("Focus() error %T does not wrap multiple errors", err)
			}
			errs := joined.Unwrap()
			if len(errs) != len(tt.want) {
				t.Fatalf("Focus() returned %d errors, want %d: %v", len(errs), len(tt.want), err)
			}
			for i, e := range errs {
				var oor *OutOfRangeError
				if !errors.As(e, &oor) || oor.Channel != tt.want[i] {
					t.Errorf("error %d = %v, want channel %v", i, e, tt.want[i])
				}
			}
		})
	}
}

func TestChannelMessagesAreDistinct(t *testing.T) {
	seen := map[string]Channel{}
	for _, ch := range []Channel{
		ChannelHorizontalUpstream,
		ChannelHorizontalDownstream,
		ChannelVerticalUpstream,
		ChannelVerticalDownstream,
	} {
		msg := (&OutOfRangeError{Channel: ch}).Error()
		if prev, ok := seen[msg]; ok {
			t.Errorf("channels %v and %v share message %q", prev, ch, msg)
		}
		seen[msg] = ch
	}
}
