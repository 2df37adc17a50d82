package broadcast

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryBroker connects in-process buses, one per simulated tab or embedded
// console. Delivery is synchronous and skips the publishing origin.
type MemoryBroker struct {
	mu    sync.RWMutex
	buses map[string]*memoryBus
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{buses: make(map[string]*memoryBus)}
}

// NewBus attaches a new bus instance to the broker.
func (b *MemoryBroker) NewBus() Bus {
	bus := &memoryBus{
		broker:   b,
		origin:   uuid.New().String(),
		handlers: make(map[int]Handler),
	}
	b.mu.Lock()
	b.buses[bus.origin] = bus
	b.mu.Unlock()
	return bus
}

func (b *MemoryBroker) publish(e Event) {
	b.mu.RLock()
	targets := make([]*memoryBus, 0, len(b.buses))
	for origin, bus := range b.buses {
		if origin == e.Origin {
			continue
		}
		targets = append(targets, bus)
	}
	b.mu.RUnlock()

	for _, bus := range targets {
		bus.deliver(e)
	}
}

func (b *MemoryBroker) detach(origin string) {
	b.mu.Lock()
	delete(b.buses, origin)
	b.mu.Unlock()
}

type memoryBus struct {
	broker *MemoryBroker
	origin string

	mu       sync.RWMutex
	handlers map[int]Handler
	nextID   int
}

func (m *memoryBus) Origin() string { return m.origin }

func (m *memoryBus) Publish(_ context.Context, kind Kind) error {
	m.broker.publish(Event{Origin: m.origin, Kind: kind})
	return nil
}

func (m *memoryBus) Subscribe(h Handler) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.handlers[id] = h
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.handlers, id)
		m.mu.Unlock()
	}
}

func (m *memoryBus) deliver(e Event) {
	m.mu.RLock()
	handlers := make([]Handler, 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

func (m *memoryBus) Close() error {
	m.broker.detach(m.origin)
	return nil
}
