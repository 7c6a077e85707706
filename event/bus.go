package event

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler processes a single event. Handlers run synchronously on the
// publisher's goroutine.
type Handler func(Event)

// Bus is an in-memory pub/sub fan-out. A panicking handler is recovered and
// logged so one subscriber cannot take down the publisher or starve the
// remaining handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type]map[int]Handler
	nextID   int
	logger   zerolog.Logger
}

func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[Type]map[int]Handler),
		logger:   logger.With().Str("component", "event-bus").Logger(),
	}
}

// Subscribe registers a handler for the given event types. The returned
// function removes the registration.
func (b *Bus) Subscribe(handler Handler, types ...Type) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	for _, t := range types {
		if b.handlers[t] == nil {
			b.handlers[t] = make(map[int]Handler)
		}
		b.handlers[t][id] = handler
	}
	b.logger.Debug().Int("handler_id", id).Msg("handler subscribed")

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for _, t := range types {
			delete(b.handlers[t], id)
		}
	}
}

// Publish dispatches the event to all handlers registered for its type.
func (b *Bus) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.handlers[ev.Type]))
	for _, h := range b.handlers[ev.Type] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.dispatch(h, ev)
	}
}

func (b *Bus) dispatch(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error().
				Str("event_type", string(ev.Type)).
				Interface("panic", r).
				Msg("handler panicked")
		}
	}()
	h(ev)
}
