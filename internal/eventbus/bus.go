// Package eventbus provides an in-process pub/sub bus for demand
// events. Handlers publish after a successful store write; subscribers
// (the realtime hub, future webhook executors) process asynchronously.
package eventbus

import (
	"context"
	"log"
	"sync"

	"github.com/fbastos/demandboard/internal/event"
)

// Handler processes a domain event. Implementations must be safe for
// concurrent calls from different goroutines.
type Handler interface {
	HandleEvent(ctx context.Context, evt event.DomainEvent) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx context.Context, evt event.DomainEvent) error

func (f HandlerFunc) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	return f(ctx, evt)
}

// subscription pairs a handler with the event types it wants. A nil
// types set means every event.
type subscription struct {
	name    string
	handler Handler
	types   map[string]bool
}

func (s subscription) wants(eventType string) bool {
	return s.types == nil || s.types[eventType]
}

// Bus is a simple in-process event bus. Events are published to a
// buffered channel and dispatched to matching subscribers from a
// single consumer goroutine, which serialises processing and keeps
// SQLite writers out of each other's way.
type Bus struct {
	mu            sync.RWMutex
	subscriptions []subscription
	queue         chan event.DomainEvent
	done          chan struct{}
}

// New creates a new Bus with the given channel buffer size.
func New(bufSize int) *Bus {
	if bufSize < 1 {
		bufSize = 256
	}
	return &Bus{
		queue: make(chan event.DomainEvent, bufSize),
		done:  make(chan struct{}),
	}
}

// Subscribe registers a named handler for every event type. Must be
// called before Start.
func (b *Bus) Subscribe(name string, h Handler) {
	b.add(subscription{name: name, handler: h})
}

// SubscribeTo registers a named handler for the given event types
// only. Must be called before Start.
func (b *Bus) SubscribeTo(name string, h Handler, eventTypes ...string) {
	types := make(map[string]bool, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = true
	}
	b.add(subscription{name: name, handler: h, types: types})
}

func (b *Bus) add(sub subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscriptions = append(b.subscriptions, sub)
}

// Publish sends an event to the bus. Non-blocking — if the buffer is
// full the event is dropped and a warning is logged.
func (b *Bus) Publish(ctx context.Context, evt event.DomainEvent) {
	select {
	case b.queue <- evt:
	default:
		log.Printf("eventbus: buffer full, dropping event %s (%s)", evt.EventType, evt.ID)
	}
}

// Start begins the consumer goroutine. It processes events until the
// context is cancelled.
func (b *Bus) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		for {
			select {
			case evt := <-b.queue:
				b.dispatch(ctx, evt)
			case <-ctx.Done():
				// Drain remaining events before exiting.
				for {
					select {
					case evt := <-b.queue:
						b.dispatch(ctx, evt)
					default:
						return
					}
				}
			}
		}
	}()
}

// Stop waits for the consumer goroutine to finish.
func (b *Bus) Stop() {
	<-b.done
}

func (b *Bus) dispatch(ctx context.Context, evt event.DomainEvent) {
	b.mu.RLock()
	subs := b.subscriptions
	b.mu.RUnlock()

	for _, s := range subs {
		if !s.wants(evt.EventType) {
			continue
		}
		if err := s.handler.HandleEvent(ctx, evt); err != nil {
			log.Printf("eventbus: %s handler error for %s: %v", s.name, evt.EventType, err)
		}
	}
}
