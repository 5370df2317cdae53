// Package beamline turns one snapshot of raw inputs into the derived outputs
// of a poll cycle.
package beamline

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pcdshub/rixcalc/pkg/calib"
	"github.com/pcdshub/rixcalc/pkg/optics"
	"github.com/pcdshub/rixcalc/pkg/pv"
	"github.com/pcdshub/rixcalc/pkg/signals"
)

// ErrInputsIncomplete marks a group skipped because an input is absent.
var ErrInputsIncomplete = errors.New("inputs incomplete")

// Constants are the installation constants used by the calculator.
type Constants struct {
	Mono       optics.MonoConstants       `json:"mono"`
	Dispersion optics.DispersionConstants `json:"dispersion"`
	KBOffsets  optics.KBOffsets           `json:"kbOffsets"`
}

// DefaultConstants returns the installed values.
func DefaultConstants() Constants {
	return Constants{
		Mono:       optics.DefaultMonoConstants(),
		Dispersion: optics.DefaultDispersionConstants(),
		KBOffsets:  optics.DefaultKBOffsets(),
	}
}

// Calculator computes all groups from a snapshot. It holds no mutable state
// and is safe for concurrent use.
type Calculator struct {
	mr1k1     *optics.Bender
	kb        *optics.KB
	constants Constants
}

// New prepares a Calculator over the loaded calibration tables.
func New(set *calib.Set, c Constants) (*Calculator, error) {
	if set == nil {
		return nil, &calib.LoadError{Source: "<nil>", Err: errors.New("calibration set is not loaded")}
	}
	mr1k1, err := optics.NewBender(set.MR1K1)
	if err != nil {
		return nil, err
	}
	kb, err := optics.NewKB(set.MR3K2, set.MR4K2, c.KBOffsets)
	if err != nil {
		return nil, err
	}
	return &Calculator{
		mr1k1:     mr1k1,
		kb:        kb,
		constants: c,
	}, nil
}

// Constants returns the constants the calculator was built with.
func (c *Calculator) Constants() Constants {
	return c.constants
}

// Compute runs every group against snap. A group whose inputs are incomplete
// is skipped; a group that fails reports its error. Neither affects the
// other groups, except that dispersion needs the current mono energy.
func (c *Calculator) Compute(snap signals.Snapshot) *Result {
	r := &Result{
		ID:   uuid.NewString(),
		Time: time.Now(),
	}

	current, haveEnergy := c.monoEnergy(snap, r)
	c.felEnergy(snap, r)
	c.mr1k1Focus(snap, r)
	c.kbFocus(snap, r)
	c.linearDispersion(current, haveEnergy, r)

	return r
}

func (c *Calculator) monoEnergy(snap signals.Snapshot, r *Result) (float64, bool) {
	in := []pv.Input{pv.GratingPitchRBV, pv.GratingPitchTarget, pv.MirrorPitchRBV, pv.MirrorPitchTarget}
	vals, ok := snap.Values(in...)
	if !ok {
		r.skip(GroupMonoEnergy, snap.Missing(in...))
		return 0, false
	}

	current, target, err := c.constants.Mono.PhotonEnergy(vals[0], vals[1], vals[2], vals[3])
	if err != nil {
		r.fail(GroupMonoEnergy, err)
		return 0, false
	}

	var cff FixedFocus
	cff.Current, cff.CurrentErr = fixedFocus(c.constants.Mono, vals[0], vals[2])
	cff.Target, cff.TargetErr = fixedFocus(c.constants.Mono, vals[1], vals[3])
	r.Diagnostics.FixedFocus = &cff

	r.set(pv.TargetMonoEnergy, target)
	r.set(pv.MonoEnergy, current)
	r.ok(GroupMonoEnergy)
	return current, true
}

func fixedFocus(m optics.MonoConstants, grating, mirror float64) (float64, string) {
	v, err := m.FixedFocusConstant(optics.Pitch{Grating: grating, Mirror: mirror})
	if err != nil {
		return 0, err.Error()
	}
	return v, ""
}

func (c *Calculator) felEnergy(snap signals.Snapshot, r *Result) {
	v, ok := snap.Get(pv.FELSetEnergy)
	if !ok {
		r.skip(GroupFELEnergy, []pv.Input{pv.FELSetEnergy})
		return
	}
	r.set(pv.FELEnergy, v)
	r.ok(GroupFELEnergy)
}

func (c *Calculator) mr1k1Focus(snap signals.Snapshot, r *Result) {
	in := []pv.Input{pv.MR1K1BenderUS, pv.MR1K1BenderDS}
	vals, ok := snap.Values(in...)
	if !ok {
		r.skip(GroupMR1K1Focus, snap.Missing(in...))
		return
	}

	f, err := c.mr1k1.Focus(vals[0], vals[1])
	if err != nil {
		r.fail(GroupMR1K1Focus, err)
		return
	}
	r.set(pv.MR1K1Focus, f)
	r.ok(GroupMR1K1Focus)
}

func (c *Calculator) kbFocus(snap signals.Snapshot, r *Result) {
	in := []pv.Input{pv.MR3K2BenderUS, pv.MR3K2BenderDS, pv.MR4K2BenderUS, pv.MR4K2BenderDS}
	vals, ok := snap.Values(in...)
	if !ok {
		r.skip(GroupKBFocus, snap.Missing(in...))
		return
	}

	f, err := c.kb.Focus(vals[0], vals[1], vals[2], vals[3])
	if err != nil {
		r.fail(GroupKBFocus, err)
		return
	}
	r.Diagnostics.KB = &f
	r.set(pv.MR3K2Focus, f.HorizontalDownstream)
	r.set(pv.MR4K2Focus, f.VerticalDownstream)
	r.ok(GroupKBFocus)
}

func (c *Calculator) linearDispersion(energy float64, ok bool, r *Result) {
	if !ok {
		r.Reports = append(r.Reports, GroupReport{
			Group:  GroupLinearDispersion,
			Status: StatusSkipped,
			Reason: "mono energy unavailable",
			Err:    ErrInputsIncomplete,
		})
		return
	}

	d, err := c.constants.Dispersion.LinearDispersion(energy)
	if err != nil {
		r.fail(GroupLinearDispersion, err)
		return
	}
	r.Diagnostics.Dispersion = &d
	r.set(pv.LinearDispersion, d.Value)
	r.ok(GroupLinearDispersion)
}
