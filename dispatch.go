package voicetranslate

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// ============================================================================
// Event Dispatcher
// ============================================================================

// EventHandler receives the raw payload of a single event type.
type EventHandler func(data json.RawMessage)

// EnvelopeHandler receives every event with its full envelope. Used for
// cross-cutting concerns such as debug logging.
type EnvelopeHandler func(ev Event)

type subscription struct {
	id      uint64
	handler EventHandler
}

type wildcardSub struct {
	id      uint64
	handler EnvelopeHandler
}

// dispatcher routes inbound events to built-in state handlers first, then to
// per-type subscribers in registration order, then to wildcard subscribers.
// Delivery is synchronous on the read loop so that derived state is consistent
// by the time subscribers observe it, and events are never reordered.
type dispatcher struct {
	mu       sync.Mutex
	nextID   uint64
	builtin  func(ev Event)
	handlers map[string][]subscription
	wildcard []wildcardSub
	log      *zap.Logger
}

func newDispatcher(log *zap.Logger) *dispatcher {
	return &dispatcher{
		handlers: make(map[string][]subscription),
		log:      log,
	}
}

// on registers a handler for one event type and returns its unsubscribe func.
// Multiple handlers per type are kept as an ordered set so independently
// running consumers never clobber each other.
func (d *dispatcher) on(eventType string, h EventHandler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.handlers[eventType] = append(d.handlers[eventType], subscription{id: id, handler: h})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		subs := d.handlers[eventType]
		for i, s := range subs {
			if s.id == id {
				d.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
				break
			}
		}
	}
}

// onAny registers a wildcard handler receiving every event.
func (d *dispatcher) onAny(h EnvelopeHandler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.wildcard = append(d.wildcard, wildcardSub{id: id, handler: h})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		for i, w := range d.wildcard {
			if w.id == id {
				d.wildcard = append(d.wildcard[:i:i], d.wildcard[i+1:]...)
				break
			}
		}
	}
}

// dispatch delivers one event to all matching handlers, exactly once each.
// Handler sets are snapshotted before invocation so a handler may subscribe
// or unsubscribe without deadlocking the registry.
func (d *dispatcher) dispatch(ev Event) {
	d.mu.Lock()
	builtin := d.builtin
	typed := append([]subscription(nil), d.handlers[ev.Type]...)
	wild := append([]wildcardSub(nil), d.wildcard...)
	d.mu.Unlock()

	if builtin != nil {
		builtin(ev)
	}
	for _, s := range typed {
		d.invoke(ev, func() { s.handler(ev.Data) })
	}
	for _, w := range wild {
		d.invoke(ev, func() { w.handler(ev) })
	}
}

// invoke shields the read loop from panicking subscribers; a bad handler must
// never tear down the connection.
func (d *dispatcher) invoke(ev Event, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("event handler panicked",
				zap.String("event_type", ev.Type),
				zap.Any("panic", r))
		}
	}()
	fn()
}
