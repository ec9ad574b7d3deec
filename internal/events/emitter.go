package events

import "context"

// ─────────────────────────────────────────────────────────────
// Emitter — decouples the API layer from the transport pushing
// change notifications to clients
// ─────────────────────────────────────────────────────────────

// Emitter publishes a named event with a JSON-serializable payload.
// The Hub implements this over websockets; tests use MockEmitter.
type Emitter interface {
	Emit(ctx context.Context, event string, data any)
}

// MockEmitter records all emissions for test assertions.
type MockEmitter struct {
	Events []EmittedEvent
}

// EmittedEvent holds a single recorded emission.
type EmittedEvent struct {
	Event string
	Data  any
}

func (m *MockEmitter) Emit(_ context.Context, event string, data any) {
	m.Events = append(m.Events, EmittedEvent{Event: event, Data: data})
}
