package optics

import (
	"math"
)

// DispersionConstants describe the grating used for the reciprocal linear
// dispersion in the exit slit plane.
type DispersionConstants struct {
	// GrooveDensity in lines/mm.
	GrooveDensity float64 `json:"grooveDensity"`
	// Order is the diffraction order.
	Order float64 `json:"order"`
	// GratingConstant is the d1 coefficient of the VLS groove density.
	GratingConstant float64 `json:"gratingConstant"`
	// IncidenceAngle on the grating in degrees.
	IncidenceAngle float64 `json:"incidenceAngle"`
	// VirtualSourceDistance from the grating in mm.
	VirtualSourceDistance float64 `json:"virtualSourceDistance"`
	// RadiusOfCurvature of the grating in mm.
	RadiusOfCurvature float64 `json:"radiusOfCurvature"`
	// GratingEquationHC is hc in eV*nm used for the diffraction angle and
	// Bragg factor.
	GratingEquationHC float64 `json:"gratingEquationHC"`
	// WavelengthHC is hc in eV*nm used for the wavelength term.
	WavelengthHC float64 `json:"wavelengthHC"`
}

// DefaultDispersionConstants returns the installed SP1K1 grating values.
func DefaultDispersionConstants() DispersionConstants {
	return DispersionConstants{
		GrooveDensity:         50,
		Order:                 1,
		GratingConstant:       -0.0244,
		IncidenceAngle:        88.627325,
		VirtualSourceDistance: -7540.0458,
		RadiusOfCurvature:     9e99,
		GratingEquationHC:     1239.852,
		WavelengthHC:          1239.842,
	}
}

// Dispersion is the result of LinearDispersion with its intermediate terms.
type Dispersion struct {
	// Value is the reciprocal linear dispersion in meV/um.
	Value float64 `json:"value"`
	// Beta is the diffraction angle in degrees.
	Beta float64 `json:"beta"`
	// BetaClamped is set when the grating equation had no solution and Beta
	// was forced to zero.
	BetaClamped bool    `json:"betaClamped"`
	Bragg       float64 `json:"bragg"`
	RPrime      float64 `json:"rPrime"`
	// Lambda is the wavelength in m.
	Lambda float64 `json:"lambda"`
	// NoDispersion is set when RPrime is zero. Value is then zero.
	NoDispersion bool `json:"noDispersion"`
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }

// Beta returns the diffraction angle in degrees at photon energy e (eV). When
// the sine argument reaches 1 there is no diffracted order; Beta returns 0
// with clamped set.
func (c DispersionConstants) Beta(e float64) (beta float64, clamped bool, err error) {
	if e == 0 || math.IsNaN(e) {
		return 0, false, &DegenerateGeometryError{Op: "diffraction angle", Term: "photon energy is zero"}
	}
	arg := -c.Order*(c.GratingEquationHC/e)*(c.GrooveDensity/1e6) + math.Sin(radians(c.IncidenceAngle))
	if arg >= 1 {
		return 0, true, nil
	}
	if arg < -1 {
		return 0, false, &DegenerateGeometryError{Op: "diffraction angle", Term: "sin(beta) < -1"}
	}
	return degrees(math.Asin(arg)), false, nil
}

// Bragg returns the Bragg-condition factor m*lambda[mm]*d1 at photon energy e.
func (c DispersionConstants) Bragg(e float64) float64 {
	return c.Order * (c.GratingEquationHC / (e * 1e6)) * c.GratingConstant
}

// Wavelength returns the wavelength in m at photon energy e.
func (c DispersionConstants) Wavelength(e float64) float64 {
	return (c.WavelengthHC / (e * 1e6)) * 1e-3
}

// RPrime returns the effective focal length term for diffraction angle beta
// (degrees). It is zero unless beta is positive.
func (c DispersionConstants) RPrime(e, beta float64) (float64, error) {
	if beta <= 0 {
		return 0, nil
	}
	cosInc := math.Cos(radians(c.IncidenceAngle))
	cosBeta := math.Cos(radians(beta))
	den := c.Bragg(e) - (cosInc*cosInc)/c.VirtualSourceDistance + cosInc/c.RadiusOfCurvature + cosBeta/c.RadiusOfCurvature
	if den == 0 || math.IsNaN(den) || math.IsInf(den, 0) {
		return 0, &DegenerateGeometryError{Op: "focal length", Term: "R' denominator = 0"}
	}
	return cosBeta * cosBeta / den, nil
}

// LinearDispersion returns the reciprocal linear dispersion of the mono in the
// exit slit plane at photon energy e (eV).
func (c DispersionConstants) LinearDispersion(e float64) (Dispersion, error) {
	beta, clamped, err := c.Beta(e)
	if err != nil {
		return Dispersion{}, err
	}

	d := Dispersion{
		Beta:        beta,
		BetaClamped: clamped,
		Bragg:       c.Bragg(e),
		Lambda:      c.Wavelength(e),
	}

	d.RPrime, err = c.RPrime(e, beta)
	if err != nil {
		return Dispersion{}, err
	}
	if d.RPrime == 0 {
		d.NoDispersion = true
		return d, nil
	}

	b := c.GrooveDensity * c.Order * d.RPrime
	if b == 0 {
		return Dispersion{}, &DegenerateGeometryError{Op: "linear dispersion", Term: "groove density * order = 0"}
	}
	v := (math.Cos(radians(beta)) / b) * (e / (d.Lambda * 1e9)) * 1e6
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Dispersion{}, &DegenerateGeometryError{Op: "linear dispersion", Term: "result is not finite"}
	}
	d.Value = v

	return d, nil
}
