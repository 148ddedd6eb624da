package service

import (
	"context"
	"sync"
)

// Frontend event names.
const (
	EventReaderState   = "reader:state"
	EventReaderSurface = "reader:surface"
	EventReaderPreview = "reader:preview"
	EventReaderSaved   = "reader:saved"
	EventTutorScanning = "tutor:scanning"
	EventTutorReply    = "tutor:reply"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples services from wailsRuntime
// ─────────────────────────────────────────────────────────────

// EventEmitter is an interface for emitting events to the frontend.
// The App struct implements this by delegating to wailsRuntime.EventsEmit.
// Reader events are emitted from render goroutines, so implementations
// must be safe for concurrent use.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter is a test-friendly EventEmitter that records all calls.
type MockEmitter struct {
	mu     sync.Mutex
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission for test assertions.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}

// Named returns the recorded emissions of one event, oldest first.
func (m *MockEmitter) Named(event string) []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []EmittedEvent
	for _, e := range m.Events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent emission of event.
func (m *MockEmitter) Last(event string) (EmittedEvent, bool) {
	named := m.Named(event)
	if len(named) == 0 {
		return EmittedEvent{}, false
	}
	return named[len(named)-1], true
}
