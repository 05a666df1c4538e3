package event

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewInMemoryBus()

	received := make(chan Event, 1)
	bus.Subscribe(EventSyncComplete, func(e Event) {
		received <- e
	})

	bus.Publish(EventSyncComplete, "payload")

	select {
	case e := <-received:
		assert.Equal(t, EventSyncComplete, e.Type)
		assert.Equal(t, "payload", e.Payload)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestPublishIsTopicScoped(t *testing.T) {
	bus := NewInMemoryBus()

	received := make(chan Event, 1)
	bus.Subscribe(EventSyncStarted, func(e Event) {
		received <- e
	})

	bus.Publish(EventLibraryChanged, nil)

	select {
	case <-received:
		t.Fatal("handler received an event from another topic")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewInMemoryBus()

	received := make(chan Event, 1)
	id := bus.Subscribe(EventSyncProgress, func(e Event) {
		received <- e
	})
	bus.Unsubscribe(EventSyncProgress, id)

	bus.Publish(EventSyncProgress, nil)

	select {
	case <-received:
		t.Fatal("unsubscribed handler was invoked")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestConcurrentPublish(t *testing.T) {
	bus := NewInMemoryBus()

	var mu sync.Mutex
	count := 0
	done := make(chan struct{})
	bus.Subscribe(EventSyncProgress, func(e Event) {
		mu.Lock()
		count++
		if count == 20 {
			close(done)
		}
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(EventSyncProgress, nil)
		}()
	}
	wg.Wait()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected 20 deliveries, got %d", count)
	}
}
