package events

import (
	"sync"
	"sync/atomic"
	"time"
)

// subscription represents a single event subscription
type subscription struct {
	id      SubscriptionID
	handler EventHandler
}

// Stats counts what the bus did with published events
type Stats struct {
	Delivered uint64 // events dispatched to at least one handler
	Dropped   uint64 // events refused because the bus was stopped or full
	Panics    uint64 // handler calls that panicked
}

// PanicHandler is told about a handler that panicked. The bus keeps going.
type PanicHandler func(eventType EventType, recovered interface{})

// DefaultEventBus is the default implementation of EventBus. One processor
// goroutine dispatches queued events, so handlers see events in publish order
// and never run concurrently with each other.
type DefaultEventBus struct {
	subscribers map[EventType][]subscription
	mu          sync.RWMutex
	nextSubID   atomic.Int64

	eventQueue chan Event
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup

	onPanic   atomic.Pointer[PanicHandler]
	delivered atomic.Uint64
	dropped   atomic.Uint64
	panics    atomic.Uint64
}

// NewEventBus creates a new event bus with specified buffer size
func NewEventBus(bufferSize int) *DefaultEventBus {
	bus := &DefaultEventBus{
		subscribers: make(map[EventType][]subscription),
		eventQueue:  make(chan Event, bufferSize),
		stopCh:      make(chan struct{}),
	}

	bus.wg.Add(1)
	go bus.processEvents()

	return bus
}

// SetPanicHandler installs a callback for recovered handler panics
func (eb *DefaultEventBus) SetPanicHandler(h PanicHandler) {
	eb.onPanic.Store(&h)
}

// Subscribe registers a handler for a specific event type
func (eb *DefaultEventBus) Subscribe(eventType EventType, handler EventHandler) SubscriptionID {
	id := SubscriptionID(eb.nextSubID.Add(1))

	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers[eventType] = append(eb.subscribers[eventType], subscription{id: id, handler: handler})

	return id
}

// Unsubscribe removes a subscription by ID
func (eb *DefaultEventBus) Unsubscribe(id SubscriptionID) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	for eventType, subs := range eb.subscribers {
		for i, sub := range subs {
			if sub.id != id {
				continue
			}
			kept := make([]subscription, 0, len(subs)-1)
			kept = append(kept, subs[:i]...)
			eb.subscribers[eventType] = append(kept, subs[i+1:]...)
			return
		}
	}
}

// Publish queues an event, blocking while the queue is full. Events
// published after Stop are dropped.
func (eb *DefaultEventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if eb.stopped() {
		eb.dropped.Add(1)
		return
	}

	select {
	case eb.eventQueue <- event:
	case <-eb.stopCh:
		eb.dropped.Add(1)
	}
}

// PublishAsync queues an event without blocking. The event is dropped when
// the queue is full or the bus is stopped.
func (eb *DefaultEventBus) PublishAsync(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if eb.stopped() {
		eb.dropped.Add(1)
		return
	}

	select {
	case eb.eventQueue <- event:
	default:
		eb.dropped.Add(1)
	}
}

// Stop stops the event bus and drains remaining events. Safe to call twice.
func (eb *DefaultEventBus) Stop() {
	eb.stopOnce.Do(func() { close(eb.stopCh) })
	eb.wg.Wait()
}

// Stats returns a snapshot of the bus counters
func (eb *DefaultEventBus) Stats() Stats {
	return Stats{
		Delivered: eb.delivered.Load(),
		Dropped:   eb.dropped.Load(),
		Panics:    eb.panics.Load(),
	}
}

func (eb *DefaultEventBus) stopped() bool {
	select {
	case <-eb.stopCh:
		return true
	default:
		return false
	}
}

func (eb *DefaultEventBus) processEvents() {
	defer eb.wg.Done()

	for {
		select {
		case event := <-eb.eventQueue:
			eb.dispatch(event)

		case <-eb.stopCh:
			for {
				select {
				case event := <-eb.eventQueue:
					eb.dispatch(event)
				default:
					return
				}
			}
		}
	}
}

func (eb *DefaultEventBus) dispatch(event Event) {
	eb.mu.RLock()
	subs := eb.subscribers[event.Type]
	handlers := make([]EventHandler, len(subs))
	for i, sub := range subs {
		handlers[i] = sub.handler
	}
	eb.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}
	eb.delivered.Add(1)

	for _, handler := range handlers {
		eb.safeHandlerCall(handler, event)
	}
}

func (eb *DefaultEventBus) safeHandlerCall(handler EventHandler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			eb.panics.Add(1)
			if h := eb.onPanic.Load(); h != nil && *h != nil {
				(*h)(event.Type, r)
			}
		}
	}()

	handler(event)
}
