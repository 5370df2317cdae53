// Package signals holds the latest raw readings of upstream process
// variables and the sources they come from.
package signals

import (
	"context"
	"time"

	"github.com/pcdshub/rixcalc/pkg/pv"
)

// Sample is the latest value of one input. A zero Sample means the input has
// not been received yet.
type Sample struct {
	Value    float64   `json:"value"`
	Present  bool      `json:"present"`
	Received time.Time `json:"received,omitempty"`
}

// Of returns a present sample received now.
func Of(v float64) Sample {
	return Sample{Value: v, Present: true, Received: time.Now()}
}

// Snapshot is a consistent view of inputs taken once per poll cycle.
type Snapshot map[pv.Input]Sample

// Get returns the value of name and whether it is present.
func (s Snapshot) Get(name pv.Input) (float64, bool) {
	sm, ok := s[name]
	if !ok || !sm.Present {
		return 0, false
	}
	return sm.Value, true
}

// Values returns the values of names in order, or false if any is absent.
func (s Snapshot) Values(names ...pv.Input) ([]float64, bool) {
	vals := make([]float64, len(names))
	for i, n := range names {
		v, ok := s.Get(n)
		if !ok {
			return nil, false
		}
		vals[i] = v
	}
	return vals, true
}

// Missing returns the names that are not present, in order.
func (s Snapshot) Missing(names ...pv.Input) []pv.Input {
	var missing []pv.Input
	for _, n := range names {
		if _, ok := s.Get(n); !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Source provides the latest raw readings.
type Source interface {
	// Read returns a snapshot of names. Inputs never received are absent
	// from the snapshot or not Present; that is not an error.
	Read(ctx context.Context, names []pv.Input) (Snapshot, error)
	Close() error
}
