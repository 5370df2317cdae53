package beamline

import (
	"fmt"
	"strings"
	"time"

	"github.com/pcdshub/rixcalc/pkg/optics"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

// Group is a set of outputs computed together from the same inputs.
type Group string

const (
	GroupMonoEnergy       Group = "monoEnergy"
	GroupFELEnergy        Group = "felEnergy"
	GroupMR1K1Focus       Group = "mr1k1Focus"
	GroupKBFocus          Group = "kbFocus"
	GroupLinearDispersion Group = "linearDispersion"
)

// Status is the outcome of one group in one cycle.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// GroupReport records what happened to a group in one cycle.
type GroupReport struct {
	Group   Group      `json:"group"`
	Status  Status     `json:"status"`
	Missing []pv.Input `json:"missing,omitempty"`
	Reason  string     `json:"reason,omitempty"`
	Err     error      `json:"-"`
}

// Output is one derived value.
type Output struct {
	Name  pv.Output `json:"name"`
	Value float64   `json:"value"`
}

// FixedFocus is the Cff of the readback and setpoint pitches. An error string
// is set instead of the value when the geometry is degenerate.
type FixedFocus struct {
	Current    float64 `json:"current"`
	CurrentErr string  `json:"currentError,omitempty"`
	Target     float64 `json:"target"`
	TargetErr  string  `json:"targetError,omitempty"`
}

// Diagnostics are intermediate values that are not published as outputs.
type Diagnostics struct {
	KB         *optics.KBFocus    `json:"kb,omitempty"`
	FixedFocus *FixedFocus        `json:"fixedFocus,omitempty"`
	Dispersion *optics.Dispersion `json:"dispersion,omitempty"`
}

// Result is everything one poll cycle produced.
type Result struct {
	ID          string        `json:"id"`
	Time        time.Time     `json:"time"`
	Outputs     []Output      `json:"outputs"`
	Reports     []GroupReport `json:"reports"`
	Diagnostics Diagnostics   `json:"diagnostics"`
}

// Value returns the output named name, if it was computed.
func (r *Result) Value(name pv.Output) (float64, bool) {
	for _, o := range r.Outputs {
		if o.Name == name {
			return o.Value, true
		}
	}
	return 0, false
}

// Report returns the report of group g.
func (r *Result) Report(g Group) (GroupReport, bool) {
	for _, rep := range r.Reports {
		if rep.Group == g {
			return rep, true
		}
	}
	return GroupReport{}, false
}

// Failed returns the reports of groups that failed.
func (r *Result) Failed() []GroupReport {
	var failed []GroupReport
	for _, rep := range r.Reports {
		if rep.Status == StatusFailed {
			failed = append(failed, rep)
		}
	}
	return failed
}

func (r *Result) set(name pv.Output, v float64) {
	r.Outputs = append(r.Outputs, Output{Name: name, Value: v})
}

func (r *Result) ok(g Group) {
	r.Reports = append(r.Reports, GroupReport{Group: g, Status: StatusOK})
}

func (r *Result) skip(g Group, missing []pv.Input) {
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = string(m)
	}
	r.Reports = append(r.Reports, GroupReport{
		Group:   g,
		Status:  StatusSkipped,
		Missing: missing,
		Reason:  fmt.Sprintf("waiting for %s", strings.Join(names, ", ")),
		Err:     ErrInputsIncomplete,
	})
}

func (r *Result) fail(g Group, err error) {
	r.Reports = append(r.Reports, GroupReport{
		Group:  g,
		Status: StatusFailed,
		Reason: err.Error(),
		Err:    err,
	})
}
