package optics

import (
	"math"
)

// singularTolerance is the magnitude below which a denominator counts as zero.
const singularTolerance = 1e-12

// MonoConstants describe the SP1K1 grating monochromator geometry.
type MonoConstants struct {
	// EVmm converts energy to wavelength: lambda[mm] = EVmm / E[eV].
	EVmm float64 `json:"eVmm"`
	// Order is the diffraction order.
	Order float64 `json:"order"`
	// GrooveDensity in lines/mm.
	GrooveDensity float64 `json:"grooveDensity"`
	// ThetaM1 is the M1 deflection in rad.
	ThetaM1 float64 `json:"thetaM1"`
	// ThetaES is the exit-slit deflection in rad.
	ThetaES float64 `json:"thetaES"`
	// OffsetM2 is the pre-mirror pitch offset in rad.
	OffsetM2 float64 `json:"offsetM2"`
	// OffsetG is the grating pitch offset in rad.
	OffsetG float64 `json:"offsetG"`
}

// DefaultMonoConstants returns the installed SP1K1 values.
func DefaultMonoConstants() MonoConstants {
	return MonoConstants{
		EVmm:          0.001239842,
		Order:         1,
		GrooveDensity: 50.0,
		ThetaM1:       0.03662,
		ThetaES:       0.1221413,
		OffsetM2:      90641.0e-6,
		OffsetG:       63358.0e-6,
	}
}

// Pitch is a grating and pre-mirror pitch pair in micro-radians, as read from
// the motor records.
type Pitch struct {
	Grating float64 `json:"grating"`
	Mirror  float64 `json:"mirror"`
}

// Angles returns the incidence (alpha) and diffraction (beta) angles in rad
// for pitch p.
func (c MonoConstants) Angles(p Pitch) (alpha, beta float64) {
	pG := p.Grating*1e-6 - c.OffsetG
	pM2 := p.Mirror*1e-6 - c.OffsetM2
	alpha = math.Pi/2 - pG + 2*pM2 - c.ThetaM1
	beta = -math.Pi/2 - pG + c.ThetaES
	return alpha, beta
}

// Energy solves the grating equation for pitch p and returns the photon
// energy in eV.
func (c MonoConstants) Energy(p Pitch) (float64, error) {
	alpha, beta := c.Angles(p)
	den := math.Sin(alpha) + math.Sin(beta)
	if math.Abs(den) < singularTolerance || math.IsNaN(den) {
		return 0, &DegenerateGeometryError{Op: "photon energy", Term: "sin(alpha)+sin(beta) = 0"}
	}
	return c.Order * c.GrooveDensity * c.EVmm / den, nil
}

// FixedFocusConstant returns Cff = cos(beta)/cos(alpha) for pitch p.
func (c MonoConstants) FixedFocusConstant(p Pitch) (float64, error) {
	alpha, beta := c.Angles(p)
	den := math.Cos(alpha)
	if math.Abs(den) < singularTolerance || math.IsNaN(den) {
		return 0, &DegenerateGeometryError{Op: "fixed focus constant", Term: "cos(alpha) = 0"}
	}
	return math.Cos(beta) / den, nil
}

// PhotonEnergy returns the photon energy for the readback pitches (current)
// and for the setpoint pitches (target).
func (c MonoConstants) PhotonEnergy(gratingRBV, gratingTarget, mirrorRBV, mirrorTarget float64) (current, target float64, err error) {
	current, err = c.Energy(Pitch{Grating: gratingRBV, Mirror: mirrorRBV})
	if err != nil {
		return 0, 0, err
	}
	target, err = c.Energy(Pitch{Grating: gratingTarget, Mirror: mirrorTarget})
	if err != nil {
		return 0, 0, err
	}
	return current, target, nil
}
