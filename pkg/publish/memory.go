package publish

import (
	"context"
	"sync"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

var _ Sink = &Memory{}

// Memory keeps the latest result and the last published value of every
// output. Outputs that were skipped in a cycle keep their previous value.
type Memory struct {
	mu     sync.RWMutex
	latest *beamline.Result
	values map[pv.Output]beamline.Output
}

func NewMemory() *Memory {
	return &Memory{values: make(map[pv.Output]beamline.Output)}
}

func (m *Memory) Name() string {
	return "memory"
}

func (m *Memory) Publish(_ context.Context, r *beamline.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.latest = r
	for _, o := range r.Outputs {
		m.values[o.Name] = o
	}
	return nil
}

// Latest returns the most recent result, or nil before the first cycle.
func (m *Memory) Latest() *beamline.Result {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Value returns the last published value of name.
func (m *Memory) Value(name pv.Output) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.values[name]
	return o.Value, ok
}

// Values returns the last published value of every output that has one.
func (m *Memory) Values() map[pv.Output]float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make(map[pv.Output]float64, len(m.values))
	for k, o := range m.values {
		ret[k] = o.Value
	}
	return ret
}

func (m *Memory) Close() error {
	return nil
}
