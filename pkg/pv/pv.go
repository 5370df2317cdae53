// Package pv names the process variables rixcalc reads and publishes.
package pv

// Input is the name of an upstream process variable.
type Input string

const (
	MR1K1BenderUS Input = "MR1K1:BEND:MMS:US.RBV"
	MR1K1BenderDS Input = "MR1K1:BEND:MMS:DS.RBV"

	MR3K2BenderUS Input = "MR3K2:KBH:MMS:BEND:US.RBV"
	MR3K2BenderDS Input = "MR3K2:KBH:MMS:BEND:DS.RBV"
	MR4K2BenderUS Input = "MR4K2:KBV:MMS:BEND:US.RBV"
	MR4K2BenderDS Input = "MR4K2:KBV:MMS:BEND:DS.RBV"

	GratingPitchRBV    Input = "SP1K1:MONO:MMS:G_PI.RBV"
	GratingPitchTarget Input = "SP1K1:MONO:MMS:G_PI"
	MirrorPitchRBV     Input = "SP1K1:MONO:MMS:M_PI.RBV"
	MirrorPitchTarget  Input = "SP1K1:MONO:MMS:M_PI"

	FELSetEnergy Input = "RIX:USER:MCC:EPHOTK:SET1"
)

// Inputs lists every input in a stable order.
var Inputs = []Input{
	MR1K1BenderUS,
	MR1K1BenderDS,
	MR3K2BenderUS,
	MR3K2BenderDS,
	MR4K2BenderUS,
	MR4K2BenderDS,
	GratingPitchRBV,
	GratingPitchTarget,
	MirrorPitchRBV,
	MirrorPitchTarget,
	FELSetEnergy,
}

// Output is the suffix of a published process variable. The full name is
// the configured prefix followed by the suffix.
type Output string

const (
	TargetMonoEnergy Output = "TAR_MONO_E"
	MonoEnergy       Output = "MONO_E"
	FELEnergy        Output = "FEL_E"
	MR1K1Focus       Output = "MR1K1_FOCUS"
	MR3K2Focus       Output = "MR3K2_FOCUS"
	MR4K2Focus       Output = "MR4K2_FOCUS"
	LinearDispersion Output = "LIN_DISP"
)

// Slot describes a published output.
type Slot struct {
	Name      Output `json:"name"`
	Units     string `json:"units"`
	Precision int    `json:"precision"`
	Doc       string `json:"doc"`
}

// Slots lists every output in publishing order.
var Slots = []Slot{
	{Name: TargetMonoEnergy, Units: "eV", Precision: 3, Doc: "Current Target Mono Energy"},
	{Name: MonoEnergy, Units: "eV", Precision: 3, Doc: "Current Mono Energy"},
	{Name: FELEnergy, Units: "eV", Precision: 3, Doc: "FEL Set Energy"},
	{Name: MR1K1Focus, Units: "m", Precision: 3, Doc: "MR1K1 Focus"},
	{Name: MR3K2Focus, Units: "m", Precision: 3, Doc: "MR3K2 (Horizontal) Focus"},
	{Name: MR4K2Focus, Units: "m", Precision: 3, Doc: "MR4K2 (Vertical) Focus"},
	{Name: LinearDispersion, Units: "meV/um", Precision: 3, Doc: "Reciprocal Linear Dispersion"},
}

// LookupSlot returns the slot named name.
func LookupSlot(name Output) (Slot, bool) {
	for _, s := range Slots {
		if s.Name == name {
			return s, true
		}
	}
	return Slot{}, false
}

// FullName returns prefix+name.
func FullName(prefix string, name Output) string {
	return prefix + string(name)
}
