package events

import (
	"github.com/kelindar/event"
)

// Bus wraps kelindar/event dispatcher for event broadcasting.
// Each subscriber receives its events in publish order on its own goroutine.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers
// Usage: bus.Publish(PresentationChangedEvent{...})
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case BootStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case PresentationChangedEvent:
		event.Publish(b.dispatcher, e)
	case ActuationFailedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function
// The handler type determines which events it receives.
// Returns an unsubscribe function
// Usage: unsub := bus.Subscribe(func(e PresentationChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(BootStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PresentationChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ActuationFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Return a no-op function if handler type is not recognized
		return func() {}
	}
}

// SubscribeToChannel bridges callback subscriptions to a channel.
// Events are dropped when the channel is full.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
