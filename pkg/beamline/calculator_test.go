package beamline

import (
	"errors"
	"math"
	"testing"

	"github.com/pcdshub/rixcalc/pkg/calib"
	"github.com/pcdshub/rixcalc/pkg/optics"
	"github.com/pcdshub/rixcalc/pkg/pv"
	"github.com/pcdshub/rixcalc/pkg/signals"
)

func testSet() *calib.Set {
	return &calib.Set{
		MR1K1: &calib.Table{Name: "MR1K1", Parameter: []float64{0, 1}, Upstream: []float64{0, 10}, Downstream: []float64{0, 20}},
		MR3K2: &calib.Table{Name: "MR3K2", Parameter: []float64{10, 20}, Upstream: []float64{0, 10}, Downstream: []float64{0, 10}},
		MR4K2: &calib.Table{Name: "MR4K2", Parameter: []float64{10, 20}, Upstream: []float64{0, 10}, Downstream: []float64{0, 10}},
	}
}

func fullSnapshot() signals.Snapshot {
	mono := optics.DefaultMonoConstants()
	return signals.Snapshot{
		pv.MR1K1BenderUS:      signals.Of(5),
		pv.MR1K1BenderDS:      signals.Of(10),
		pv.MR3K2BenderUS:      signals.Of(5),
		pv.MR3K2BenderDS:      signals.Of(5),
		pv.MR4K2BenderUS:      signals.Of(10),
		pv.MR4K2BenderDS:      signals.Of(10),
		pv.GratingPitchRBV:    signals.Of(mono.OffsetG * 1e6),
		pv.GratingPitchTarget: signals.Of(mono.OffsetG * 1e6),
		pv.MirrorPitchRBV:     signals.Of(mono.OffsetM2 * 1e6),
		pv.MirrorPitchTarget:  signals.Of(mono.OffsetM2 * 1e6),
		pv.FELSetEnergy:       signals.Of(530),
	}
}

func newTestCalculator(t *testing.T) *Calculator {
	t.Helper()
	c, err := New(testSet(), DefaultConstants())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestComputeAllGroups(t *testing.T) {
	c := newTestCalculator(t)
	r := c.Compute(fullSnapshot())

	if r.ID == "" {
		t.Errorf("result has no id")
	}
	if len(r.Outputs) != len(pv.Slots) {
		t.Fatalf("got %d outputs, want %d: %+v", len(r.Outputs), len(pv.Slots), r.Reports)
	}

	tests := []struct {
		name pv.Output
		want float64
	}{
		{pv.MR1K1Focus, 0.5},
		{pv.MR3K2Focus, 15 - 8.8},
		{pv.MR4K2Focus, 20 - 7.3},
		{pv.FELEnergy, 530},
		{pv.MonoEnergy, 9.143994567922709},
		{pv.TargetMonoEnergy, 9.143994567922709},
	}
	for _, tt := range tests {
		got, ok := r.Value(tt.name)
		if !ok {
			t.Errorf("%s not computed", tt.name)
			continue
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}

	if _, ok := r.Value(pv.LinearDispersion); !ok {
		t.Errorf("LIN_DISP not computed")
	}
	if r.Diagnostics.KB == nil || r.Diagnostics.FixedFocus == nil || r.Diagnostics.Dispersion == nil {
		t.Errorf("diagnostics incomplete: %+v", r.Diagnostics)
	}
	if len(r.Failed()) != 0 {
		t.Errorf("unexpected failures: %+v", r.Failed())
	}
}

func TestComputeSkipsIncompleteGroups(t *testing.T) {
	c := newTestCalculator(t)

	snap := fullSnapshot()
	delete(snap, pv.MR4K2BenderDS)
	snap[pv.MirrorPitchTarget] = signals.Sample{}

	r := c.Compute(snap)

	kb, _ := r.Report(GroupKBFocus)
	if kb.Status != StatusSkipped || !errors.Is(kb.Err, ErrInputsIncomplete) {
		t.Errorf("kb report = %+v, want skipped", kb)
	}
	if len(kb.Missing) != 1 || kb.Missing[0] != pv.MR4K2BenderDS {
		t.Errorf("kb missing = %v", kb.Missing)
	}

	mono, _ := r.Report(GroupMonoEnergy)
	if mono.Status != StatusSkipped {
		t.Errorf("mono report = %+v, want skipped", mono)
	}
	disp, _ := r.Report(GroupLinearDispersion)
	if disp.Status != StatusSkipped {
		t.Errorf("dispersion report = %+v, want skipped", disp)
	}

	for _, name := range []pv.Output{pv.MR3K2Focus, pv.MR4K2Focus, pv.MonoEnergy, pv.TargetMonoEnergy, pv.LinearDispersion} {
		if _, ok := r.Value(name); ok {
			t.Errorf("%s should not be computed", name)
		}
	}
	for _, name := range []pv.Output{pv.MR1K1Focus, pv.FELEnergy} {
		if _, ok := r.Value(name); !ok {
			t.Errorf("%s should be computed", name)
		}
	}
	if len(r.Failed()) != 0 {
		t.Errorf("skipped groups must not be failures: %+v", r.Failed())
	}
}

func TestComputeReportsOutOfRange(t *testing.T) {
	c := newTestCalculator(t)

	snap := fullSnapshot()
	snap[pv.MR1K1BenderUS] = signals.Of(11)

	r := c.Compute(snap)
	rep, _ := r.Report(GroupMR1K1Focus)
	if rep.Status != StatusFailed || !errors.Is(rep.Err, optics.ErrOutOfRange) {
		t.Errorf("mr1k1 report = %+v, want out of range failure", rep)
	}
	if _, ok := r.Value(pv.MR1K1Focus); ok {
		t.Errorf("MR1K1_FOCUS should not be published when out of range")
	}
}

func TestNewRejectsMissingTable(t *testing.T) {
	set := testSet()
	set.MR4K2 = nil
	if _, err := New(set, DefaultConstants()); !errors.Is(err, calib.ErrCalibrationLoad) {
		t.Errorf("New() error = %v, want ErrCalibrationLoad", err)
	}
}
