package handler

import (
	"context"

	"nodecanvas/internal/hub"
	"nodecanvas/internal/service"
)

// Relay forwards service events to the hub until ctx is cancelled.
func Relay(ctx context.Context, bus *service.EventBus, h *hub.Hub) {
	events := make(chan service.Event, 256)
	bus.Subscribe(events)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			h.Broadcast(hub.Event{Type: string(ev.Type), Data: ev.Payload})
		}
	}
}
