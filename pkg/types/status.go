// Package types holds the payloads shared between the daemon and its clients.
package types

import (
	"time"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

// Status is the daemon state returned by GET /status.
type Status struct {
	Version   string   `json:"version"`
	Prefix    string   `json:"prefix"`
	Source    string   `json:"source"`
	Sinks     []string `json:"sinks"`
	Schedule  string   `json:"schedule"`
	Scheduled bool     `json:"scheduled"`
	// NextCycle is zero when no cycle is scheduled.
	NextCycle time.Time `json:"nextCycle"`
	LastCycle time.Time `json:"lastCycle"`
	Cycles    uint64    `json:"cycles"`
	// MissedCycles is set when recent cycles did not run at the expected
	// rate.
	MissedCycles bool                   `json:"missedCycles"`
	Calibration  []TableInfo            `json:"calibration"`
	Groups       []beamline.GroupReport `json:"groups"`
	Subscribers  int                    `json:"subscribers"`
	Dropped      uint64                 `json:"droppedEvents"`
}

// TableInfo describes one loaded calibration table.
type TableInfo struct {
	Name     string    `json:"name"`
	Location string    `json:"location"`
	Rows     int       `json:"rows"`
	LoadedAt time.Time `json:"loadedAt"`
}

// InputValue is the last reading of one input, as returned by GET /inputs.
type InputValue struct {
	Name     pv.Input  `json:"name"`
	Value    float64   `json:"value"`
	Present  bool      `json:"present"`
	Received time.Time `json:"received,omitempty"`
}
