package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/calib"
	"github.com/pcdshub/rixcalc/pkg/config"
	"github.com/pcdshub/rixcalc/pkg/events"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

func testSet() *calib.Set {
	return &calib.Set{
		MR1K1: &calib.Table{Name: "MR1K1", Parameter: []float64{0, 1}, Upstream: []float64{0, 10}, Downstream: []float64{0, 20}},
		MR3K2: &calib.Table{Name: "MR3K2", Parameter: []float64{10, 20}, Upstream: []float64{0, 10}, Downstream: []float64{0, 10}},
		MR4K2: &calib.Table{Name: "MR4K2", Parameter: []float64{10, 20}, Upstream: []float64{0, 10}, Downstream: []float64{0, 10}},
	}
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[pv.Input]float64
		wantErr bool
	}{
		{
			name:  "empty",
			pairs: nil,
			want:  map[pv.Input]float64{},
		},
		{
			name:  "valid",
			pairs: []string{"MR1K1:BEND:MMS:US.RBV=5", " RIX:USER:MCC:EPHOTK:SET1 = 530.5"},
			want: map[pv.Input]float64{
				pv.MR1K1BenderUS: 5,
				pv.FELSetEnergy:  530.5,
			},
		},
		{
			name:    "missing equals",
			pairs:   []string{"MR1K1:BEND:MMS:US.RBV"},
			wantErr: true,
		},
		{
			name:    "unknown input",
			pairs:   []string{"FOO:BAR=1"},
			wantErr: true,
		},
		{
			name:    "not a number",
			pairs:   []string{"MR1K1:BEND:MMS:US.RBV=five"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.pairs)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseAssignments() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("parseAssignments() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestParseDurationArg(t *testing.T) {
	d, err := parseDurationArg([]string{"2s"}, "interval")
	if err != nil || d.Seconds() != 2 {
		t.Errorf("parseDurationArg() = %v, %v", d, err)
	}
	if _, err := parseDurationArg(nil, "interval"); err == nil {
		t.Errorf("expected error for missing argument")
	}
	if _, err := parseDurationArg([]string{"soon"}, "interval"); err == nil {
		t.Errorf("expected error for invalid duration")
	}
}

func TestCalibrationFlagsOverride(t *testing.T) {
	conf, err := config.NewFile(filepath.Join(t.TempDir(), "rixcalc.json"))
	if err != nil {
		t.Fatalf("NewFile() error = %v", err)
	}

	f := calibrationFlags{mr3k2: "s3://tables/MR3K2.txt"}
	loc := f.locations(conf)
	if loc.MR3K2 != "s3://tables/MR3K2.txt" {
		t.Errorf("MR3K2 = %q, want override", loc.MR3K2)
	}
	if loc.MR1K1 != conf.Calibration().MR1K1 {
		t.Errorf("MR1K1 = %q, want config value %q", loc.MR1K1, conf.Calibration().MR1K1)
	}
}

func TestCompute(t *testing.T) {
	res, err := compute(context.Background(), testSet(), beamline.DefaultConstants(), map[pv.Input]float64{
		pv.MR1K1BenderUS: 5,
		pv.MR1K1BenderDS: 10,
		pv.FELSetEnergy:  530,
	})
	if err != nil {
		t.Fatalf("compute() error = %v", err)
	}

	if got, ok := res.Value(pv.MR1K1Focus); !ok || math.Abs(got-0.5) > 1e-9 {
		t.Errorf("MR1K1_FOCUS = %v, %v; want 0.5", got, ok)
	}
	if got, ok := res.Value(pv.FELEnergy); !ok || got != 530 {
		t.Errorf("FEL_E = %v, %v; want 530", got, ok)
	}
	if _, ok := res.Value(pv.MonoEnergy); ok {
		t.Errorf("MONO_E computed without pitch inputs")
	}
}

func TestComputeRejectsIncompleteSet(t *testing.T) {
	set := testSet()
	set.MR4K2 = nil
	if _, err := compute(context.Background(), set, beamline.DefaultConstants(), nil); err == nil {
		t.Errorf("expected error for missing table")
	}
}

func TestSweep(t *testing.T) {
	xs := sweep(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if math.Abs(xs[i]-want[i]) > 1e-12 {
			t.Fatalf("sweep() = %v, want %v", xs, want)
		}
	}
}

func TestRenderPlots(t *testing.T) {
	var buf bytes.Buffer
	o := plotOptions{points: 50, pitchSpan: 20000, eMin: 250, eMax: 1600}
	if err := renderPlots(&buf, testSet(), beamline.DefaultConstants(), o); err != nil {
		t.Fatalf("renderPlots() error = %v", err)
	}

	out := buf.String()
	for _, want := range []string{"MR1K1 calibration", "MR3K2 calibration", "MR4K2 calibration", "Photon energy", "Reciprocal linear dispersion"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered page missing %q", want)
		}
	}
}

func TestFormatEvent(t *testing.T) {
	tests := []struct {
		name    string
		ev      events.Event
		want    string
		wantErr bool
	}{
		{
			name: "cycle",
			ev: events.Event{
				Name: events.Cycle,
				Data: json.RawMessage(`{"id":"x","time":"2024-01-01T00:00:00Z","values":[{"name":"FEL_E","value":530,"precision":3}]}`),
			},
			want: "FEL_E=530.000",
		},
		{
			name: "group failed",
			ev: events.Event{
				Name: events.GroupFailed,
				Data: json.RawMessage(`{"group":"kb","message":"out of range","ts":0}`),
			},
			want: "kb failed: out of range",
		},
		{
			name: "calibration reloaded",
			ev: events.Event{
				Name: events.CalibrationReloaded,
				Data: json.RawMessage(`{"tables":{"MR3K2":4,"MR1K1":2},"ts":0}`),
			},
			want: "calibration reloaded: MR1K1(2 rows) MR3K2(4 rows)",
		},
		{
			name: "unknown",
			ev:   events.Event{Name: "other", Data: json.RawMessage(`{}`)},
			want: "other {}",
		},
		{
			name:    "bad payload",
			ev:      events.Event{Name: events.Cycle, Data: json.RawMessage(`{`)},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := formatEvent(tt.ev)
			if (err != nil) != tt.wantErr {
				t.Fatalf("formatEvent() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("formatEvent() = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}
