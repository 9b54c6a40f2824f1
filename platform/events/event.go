// Package events carries the engine's domain events between modules
// without coupling publishers to subscribers.
package events

import (
	"context"
	"time"
)

// Event is implemented by every domain event carried on the bus.
type Event interface {
	// EventName identifies the event type. Subscriptions key on it.
	EventName() string
	// OccurredAt is the instant the event was produced.
	OccurredAt() time.Time
}

// BaseEvent carries the fields shared by all events. Embed it.
type BaseEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// NewBaseEvent stamps a base event with the current time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{Timestamp: time.Now()}
}

// Handler consumes events of one subscribed type.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus decouples event producers from their consumers. Publication is fire
// and forget; a failing handler must never reach back into the publisher.
type Bus interface {
	// Publish delivers the event to every handler subscribed to its name.
	Publish(ctx context.Context, event Event)

	// Subscribe registers a handler for the event name, as returned by
	// Event.EventName.
	Subscribe(eventName string, handler Handler)
}
