package usecase

import (
	"context"
	"log/slog"

	"github.com/kirillkom/handyman-docs/internal/core/domain"
	"github.com/kirillkom/handyman-docs/internal/core/ports"
)

// EventDispatcher routes worker events to their handler by type. Events without
// a handler are acknowledged and dropped.
type EventDispatcher struct {
	handlers map[domain.EventType]ports.DocumentEventHandler
	logger   *slog.Logger
}

func NewEventDispatcher(logger *slog.Logger) *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[domain.EventType]ports.DocumentEventHandler),
		logger:   loggerOrDefault(logger),
	}
}

func (d *EventDispatcher) Register(handler ports.DocumentEventHandler, types ...domain.EventType) *EventDispatcher {
	for _, t := range types {
		d.handlers[t] = handler
	}
	return d
}

func (d *EventDispatcher) HandleEvent(ctx context.Context, event domain.DocumentEvent) error {
	handler, ok := d.handlers[event.Type]
	if !ok {
		d.logger.Debug("event_ignored", "event_id", event.ID, "event_type", event.Type)
		return nil
	}
	return handler.HandleEvent(ctx, event)
}
