package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// Output events produced by the session core
	EventLayerChanged      EventType = "layer.changed"
	EventLayerCleared      EventType = "layer.cleared"
	EventTimeChanged       EventType = "time.changed"
	EventNoLayersActive    EventType = "layers.none"
	EventTileUpdated       EventType = "tile.updated"
	EventTimesMisaligned   EventType = "time.misaligned"
	EventCapabilitiesReady EventType = "capabilities.ready"
	EventUnauthorized      EventType = "capabilities.unauthorized"
	EventPlaybackChanged   EventType = "playback.changed"
	EventTimePreview       EventType = "time.preview"
	EventInputRejected     EventType = "input.rejected"
	EventSnapshot          EventType = "session.snapshot"
)

// Event is a typed event with its payload.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// Emitter receives events from the core components.
type Emitter interface {
	Emit(Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit calls f(ev).
func (f EmitterFunc) Emit(ev Event) { f(ev) }

// Fanout delivers every event to each emitter in order.
func Fanout(emitters ...Emitter) Emitter {
	return EmitterFunc(func(ev Event) {
		for _, e := range emitters {
			e.Emit(ev)
		}
	})
}

// Subscriber receives events.
type Subscriber chan Event

// subscriberBuffer keeps a slow websocket writer from stalling the core.
const subscriberBuffer = 64

// Bus implements a simple in-process pubsub.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
	all  []Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for the given event types. With no types
// the subscriber receives every event.
func (b *Bus) Subscribe(eventTypes ...EventType) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	if len(eventTypes) == 0 {
		b.all = append(b.all, ch)
	}
	for _, t := range eventTypes {
		b.subs[t] = append(b.subs[t], ch)
	}
	b.mu.Unlock()
	return ch
}

// Emit publishes ev. Delivery never blocks; a full subscriber drops the event.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	subs := append([]Subscriber(nil), b.subs[ev.Type]...)
	subs = append(subs, b.all...)
	b.mu.RUnlock()
	for _, sub := range subs {
		select {
		case sub <- ev:
		default:
		}
	}
}

// Publish is shorthand for Emit(Event{Type: t, Payload: payload}).
func (b *Bus) Publish(t EventType, payload any) {
	b.Emit(Event{Type: t, Payload: payload})
}

// Unsubscribe removes the subscriber and closes it.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subs {
		b.subs[t] = remove(subs, sub)
	}
	b.all = remove(b.all, sub)
	close(sub)
}

func remove(subs []Subscriber, sub Subscriber) []Subscriber {
	for i, candidate := range subs {
		if candidate == sub {
			return append(subs[:i], subs[i+1:]...)
		}
	}
	return subs
}
