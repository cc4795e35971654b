// Package bus publishes committed tab events to downstream consumers.
package bus

import (
	"context"
	"sync"

	"github.com/louisbranch/tabhouse/internal/tab/event"
)

// Publisher delivers one committed event. Delivery is at-least-once;
// consumers must tolerate duplicates.
type Publisher interface {
	Publish(ctx context.Context, evt event.Event) error
}

// Subscriber handles one delivered event.
type Subscriber func(ctx context.Context, evt event.Event) error

// Memory is an in-process bus delivering events synchronously to
// subscribers in registration order.
type Memory struct {
	mu          sync.RWMutex
	subscribers []Subscriber
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{}
}

// Subscribe registers fn for all future publications.
func (m *Memory) Subscribe(fn Subscriber) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers = append(m.subscribers, fn)
}

// Publish delivers evt to every subscriber, stopping at the first failure.
func (m *Memory) Publish(ctx context.Context, evt event.Event) error {
	m.mu.RLock()
	subscribers := append([]Subscriber(nil), m.subscribers...)
	m.mu.RUnlock()

	for _, fn := range subscribers {
		if err := fn(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}
