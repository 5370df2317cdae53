package calib

import (
	"errors"
	"fmt"
)

// ErrCalibrationLoad is matched by every error returned while loading a table.
var ErrCalibrationLoad = errors.New("calibration load error")

// LoadError describes why a calibration table could not be loaded.
type LoadError struct {
	Source string
	// Line is 1-based, zero when the error is not tied to a line.
	Line int
	Err  error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("calibration %s line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("calibration %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func (e *LoadError) Is(target error) bool {
	return target == ErrCalibrationLoad
}
