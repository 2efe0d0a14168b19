package testutil

import (
	"context"
	"sync"

	"github.com/numera/numera/internal/types"
)

// InMemoryLedgerEventPublisher records published events for assertions
// instead of handing them to a message broker.
type InMemoryLedgerEventPublisher struct {
	mu     sync.Mutex
	events []*types.LedgerEvent
}

// NewInMemoryLedgerEventPublisher creates a new in-memory publisher
func NewInMemoryLedgerEventPublisher() *InMemoryLedgerEventPublisher {
	return &InMemoryLedgerEventPublisher{}
}

func (p *InMemoryLedgerEventPublisher) PublishLedgerEvent(_ context.Context, event *types.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *InMemoryLedgerEventPublisher) Close() error {
	return nil
}

// GetEvents returns a snapshot of the events published so far
func (p *InMemoryLedgerEventPublisher) GetEvents() []*types.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*types.LedgerEvent(nil), p.events...)
}

// Clear drops all recorded events
func (p *InMemoryLedgerEventPublisher) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}
