package signals

import (
	"context"
	"sync"

	"github.com/pcdshub/rixcalc/pkg/pv"
)

var _ Source = &Memory{}

// Memory is an in-process Source fed by Set.
type Memory struct {
	mu      sync.RWMutex
	samples map[pv.Input]Sample
}

func NewMemory() *Memory {
	return &Memory{samples: make(map[pv.Input]Sample)}
}

// Set records v as the latest value of name.
func (m *Memory) Set(name pv.Input, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples[name] = Of(v)
}

// Unset forgets name, as if it had never been received.
func (m *Memory) Unset(name pv.Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.samples, name)
}

func (m *Memory) Read(_ context.Context, names []pv.Input) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := make(Snapshot, len(names))
	for _, n := range names {
		if s, ok := m.samples[n]; ok {
			snap[n] = s
		}
	}
	return snap, nil
}

func (m *Memory) Close() error {
	return nil
}
