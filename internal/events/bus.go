package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher. Delivery is asynchronous: each
// subscriber runs on its own goroutine and must not touch the display
// device.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers of its type.
func (b *Bus) Publish(ev Event) {
	switch e := ev.(type) {
	case HotplugChangedEvent:
		event.Publish(b.dispatcher, e)
	case OutputChangedEvent:
		event.Publish(b.dispatcher, e)
	case EnableFailedEvent:
		event.Publish(b.dispatcher, e)
	case ConfigReloadedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers handler for the event type of its parameter and
// returns an unsubscribe function. Unknown handler types get a no-op.
//
//	unsub := bus.Subscribe(func(e events.HotplugChangedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(HotplugChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(OutputChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(EnableFailedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(ConfigReloadedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// Close stops the dispatcher and every subscriber goroutine.
func (b *Bus) Close() error {
	return b.dispatcher.Close()
}
