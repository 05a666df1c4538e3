package event

import (
	"sync"

	"github.com/google/uuid"
)

type EventType string

const (
	EventSyncStarted    EventType = "sync_started"
	EventSyncProgress   EventType = "sync_progress"
	EventSyncComplete   EventType = "sync_complete"
	EventLibraryChanged EventType = "library_changed"
)

// Event is one system event.
type Event struct {
	Type    EventType
	Payload interface{}
}

type Handler func(event Event)

// Bus is the in-process pub/sub channel between the synchronizer and its
// observers (SSE clients, workers).
type Bus interface {
	Subscribe(topic EventType, handler Handler) string // returns subscription id
	Unsubscribe(topic EventType, subID string)
	Publish(topic EventType, payload interface{})
}

type handlerWrapper struct {
	id      string
	handler Handler
}

// InMemoryBus is a simple callback-based bus.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]handlerWrapper
}

// GlobalBus is the process-wide instance.
var GlobalBus Bus = NewInMemoryBus()

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[EventType][]handlerWrapper),
	}
}

func (b *InMemoryBus) Subscribe(topic EventType, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := uuid.New().String()
	b.handlers[topic] = append(b.handlers[topic], handlerWrapper{id: id, handler: handler})
	return id
}

func (b *InMemoryBus) Unsubscribe(topic EventType, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wrappers := b.handlers[topic]
	for i, w := range wrappers {
		if w.id == subID {
			b.handlers[topic] = append(wrappers[:i], wrappers[i+1:]...)
			break
		}
	}
}

func (b *InMemoryBus) Publish(topic EventType, payload interface{}) {
	b.mu.RLock()
	wrappers := b.handlers[topic]
	b.mu.RUnlock()

	// Handlers run async so a slow subscriber can't block the publisher.
	evt := Event{Type: topic, Payload: payload}
	for _, w := range wrappers {
		go w.handler(evt)
	}
}
