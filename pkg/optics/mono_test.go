package optics

import (
	"errors"
	"math"
	"testing"
)

func TestPhotonEnergyZeroPitchRegression(t *testing.T) {
	c := DefaultMonoConstants()

	// Raw pitches equal to the offsets give zero pitch after correction.
	g := c.OffsetG * 1e6
	m := c.OffsetM2 * 1e6

	current, target, err := c.PhotonEnergy(g, g, m, m)
	if err != nil {
		t.Fatalf("PhotonEnergy() error = %v", err)
	}

	const want = 9.143994567922709
	if math.Abs(current-want) > 1e-9 {
		t.Errorf("current = %.15g, want %.15g", current, want)
	}
	if current != target {
		t.Errorf("current %v != target %v", current, target)
	}

	cff, err := c.FixedFocusConstant(Pitch{Grating: g, Mirror: m})
	if err != nil {
		t.Fatalf("FixedFocusConstant() error = %v", err)
	}
	if math.Abs(cff-3.327828177450471) > 1e-9 {
		t.Errorf("Cff = %.15g, want 3.327828177450471", cff)
	}
}

func TestPhotonEnergyCurrentAndTargetIndependent(t *testing.T) {
	c := DefaultMonoConstants()

	tests := []struct {
		name         string
		gRBV, gTgt   float64
		mRBV, mTgt   float64
		wantCur      float64
		wantTgt      float64
		sameExpected bool
	}{
		{
			name: "identical pairs",
			gRBV: 64358, gTgt: 64358,
			mRBV: 91141, mTgt: 91141,
			wantCur: 9.310638133992107, wantTgt: 9.310638133992107,
			sameExpected: true,
		},
		{
			name: "moving",
			gRBV: 63358, gTgt: 64358,
			mRBV: 90641, mTgt: 91141,
			wantCur: 9.143994567922709, wantTgt: 9.310638133992107,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cur, tgt, err := c.PhotonEnergy(tt.gRBV, tt.gTgt, tt.mRBV, tt.mTgt)
			if err != nil {
				t.Fatalf("PhotonEnergy() error = %v", err)
			}
			if math.Abs(cur-tt.wantCur) > 1e-9 || math.Abs(tgt-tt.wantTgt) > 1e-9 {
				t.Errorf("PhotonEnergy() = %v, %v, want %v, %v", cur, tgt, tt.wantCur, tt.wantTgt)
			}
			if tt.sameExpected && cur != tgt {
				t.Errorf("expected identical energies, got %v and %v", cur, tgt)
			}
		})
	}
}

func TestPhotonEnergyDegenerate(t *testing.T) {
	c := DefaultMonoConstants()
	// With no deflections and offsets, zero pitch gives alpha = pi/2 and
	// beta = -pi/2, so sin(alpha)+sin(beta) = 0.
	c.ThetaM1 = 0
	c.ThetaES = 0
	c.OffsetG = 0
	c.OffsetM2 = 0

	_, _, err := c.PhotonEnergy(0, 0, 0, 0)
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Fatalf("PhotonEnergy() error = %v, want ErrDegenerateGeometry", err)
	}

	// The same geometry gives cos(alpha) = 0.
	_, err = c.FixedFocusConstant(Pitch{})
	if !errors.Is(err, ErrDegenerateGeometry) {
		t.Errorf("FixedFocusConstant() error = %v, want ErrDegenerateGeometry", err)
	}
}
