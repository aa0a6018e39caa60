package hass

import (
	"context"
	"sync"

	"github.com/homewatt/homewatt/core/state"
)

// MockSource is an in-memory state.Source for tests and dry runs.
type MockSource struct {
	mu     sync.RWMutex
	values map[string]state.Value
}

// NewMockSource creates a source pre-seeded with the given values.
func NewMockSource(values map[string]state.Value) *MockSource {
	if values == nil {
		values = make(map[string]state.Value)
	}
	return &MockSource{values: values}
}

// Set updates one entity value.
func (m *MockSource) Set(entityID string, v state.Value) {
	m.mu.Lock()
	m.values[entityID] = v
	m.mu.Unlock()
}

// Get implements state.Store.
func (m *MockSource) Get(_ context.Context, entityID string) (state.Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[entityID]
	if !ok {
		return state.Value{Unavailable: true}, nil
	}
	return v, nil
}

// Start implements state.Source.
func (m *MockSource) Start(context.Context) error { return nil }

// Close implements state.Source.
func (m *MockSource) Close() error { return nil }

// MockNotifier records sent notifications.
type MockNotifier struct {
	mu   sync.Mutex
	Sent []MockNotification
	Err  error
}

// MockNotification is one recorded Send call.
type MockNotification struct {
	Service string
	Title   string
	Message string
}

// Send records the notification and returns the configured error.
func (m *MockNotifier) Send(_ context.Context, service, title, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, MockNotification{Service: service, Title: title, Message: message})
	return nil
}

// Count returns the number of recorded notifications.
func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}
