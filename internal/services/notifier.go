package services

import (
	"context"

	"github.com/studyline/studyline-backend/internal/clients/redis"
	"github.com/studyline/studyline-backend/internal/pkg/logger"
	"github.com/studyline/studyline-backend/internal/realtime"
)

// Notifier pushes realtime events toward connected clients. With a redis bus
// wired in, events reach every API replica; without one, delivery is local to
// this process.
type Notifier interface {
	Publish(ctx context.Context, msg realtime.SSEMessage)
}

type sseNotifier struct {
	log *logger.Logger
	hub *realtime.SSEHub
	bus redis.SSEBus
}

func NewNotifier(log *logger.Logger, hub *realtime.SSEHub, bus redis.SSEBus) Notifier {
	return &sseNotifier{
		log: log.With("service", "Notifier"),
		hub: hub,
		bus: bus,
	}
}

func (n *sseNotifier) Publish(ctx context.Context, msg realtime.SSEMessage) {
	if n.bus != nil {
		// The bus forwarder broadcasts into the local hub, so publishing is
		// enough for local subscribers too.
		if err := n.bus.Publish(ctx, msg); err != nil {
			n.log.Warn("SSE bus publish failed, falling back to local delivery", "error", err)
			n.hub.Broadcast(msg)
		}
		return
	}
	n.hub.Broadcast(msg)
}

type nopNotifier struct{}

// NewNopNotifier is for tests and tooling that do not care about realtime.
func NewNopNotifier() Notifier { return nopNotifier{} }

func (nopNotifier) Publish(context.Context, realtime.SSEMessage) {}
