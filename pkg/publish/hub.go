package publish

import (
	"context"

	"github.com/pcdshub/rixcalc/pkg/beamline"
	"github.com/pcdshub/rixcalc/pkg/events"
)

var _ Sink = &Hub{}

// Hub forwards every cycle to an events.EventHub.
type Hub struct {
	hub    *events.EventHub
	prefix string
}

func NewHub(hub *events.EventHub, prefix string) *Hub {
	return &Hub{hub: hub, prefix: prefix}
}

func (h *Hub) Name() string {
	return "events"
}

func (h *Hub) Publish(_ context.Context, r *beamline.Result) error {
	h.hub.Publish(events.Cycle, NewMessage(h.prefix, r))
	for _, rep := range r.Failed() {
		h.hub.Publish(events.GroupFailed, events.GroupFailedEvent{
			Cycle:   r.ID,
			Group:   string(rep.Group),
			Message: rep.Reason,
			Ts:      r.Time.Unix(),
		})
	}
	return nil
}

func (h *Hub) Close() error {
	return nil
}
