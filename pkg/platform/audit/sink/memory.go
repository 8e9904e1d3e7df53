package sink

import (
	"context"
	"sync"

	audit "medadmit/pkg/platform/audit"
)

// Memory collects events in process. Tests use it to observe what was
// published.
type Memory struct {
	mu     sync.RWMutex
	events []audit.Event
	err    error
	closed bool
}

func NewMemory() *Memory {
	return &Memory{}
}

// FailWith makes subsequent writes return err. Pass nil to recover.
func (m *Memory) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Memory) Write(_ context.Context, events []audit.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, events...)
	return nil
}

// Events returns a copy of everything written so far.
func (m *Memory) Events() []audit.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]audit.Event{}, m.events...)
}

// ListByAction returns the written events with the given action.
func (m *Memory) ListByAction(action string) []audit.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []audit.Event
	for _, e := range m.events {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *Memory) Closed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
