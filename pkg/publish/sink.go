// Package publish writes the outputs of each poll cycle to their consumers.
package publish

import (
	"context"
	"time"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/pv"
)

// Sink receives the result of every poll cycle.
type Sink interface {
	Name() string
	Publish(ctx context.Context, r *beamline.Result) error
	Close() error
}

// Value is an output as published, with its slot metadata.
type Value struct {
	PV        string    `json:"pv"`
	Name      pv.Output `json:"name"`
	Value     float64   `json:"value"`
	Units     string    `json:"units"`
	Precision int       `json:"precision"`
}

// Message is the wire form of a cycle result.
type Message struct {
	ID      string                 `json:"id"`
	Time    time.Time              `json:"time"`
	Values  []Value                `json:"values"`
	Reports []beamline.GroupReport `json:"reports"`
}

// NewMessage builds the message for r with full PV names under prefix.
func NewMessage(prefix string, r *beamline.Result) Message {
	m := Message{
		ID:      r.ID,
		Time:    r.Time,
		Values:  make([]Value, 0, len(r.Outputs)),
		Reports: r.Reports,
	}
	for _, slot := range pv.Slots {
		v, ok := r.Value(slot.Name)
		if !ok {
			continue
		}
		m.Values = append(m.Values, NewValue(prefix, slot, v))
	}
	return m
}

// NewValue returns v as output slot under prefix.
func NewValue(prefix string, slot pv.Slot, v float64) Value {
	return Value{
		PV:        pv.FullName(prefix, slot.Name),
		Name:      slot.Name,
		Value:     v,
		Units:     slot.Units,
		Precision: slot.Precision,
	}
}
