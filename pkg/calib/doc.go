// Package calib loads calibration tables for the beamline benders.
//
// A calibration file is a whitespace-delimited text table with one row per
// calibration point and exactly three columns:
//
//	parameter   upstream-position   downstream-position
//
// The parameter is the focus distance the bender pair produces at those motor
// positions. Tables are loaded once and shared read-only afterwards.
package calib
