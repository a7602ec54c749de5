package service

import (
	"context"
	"fmt"
	"io"
	"sync"

	"consultetl/internal/etl"
)

// ─────────────────────────────────────────────────────────────
// EventEmitter: decouples the service from how results are reported
// ─────────────────────────────────────────────────────────────

// EventEmitter receives service events such as EventJobCompleted.
type EventEmitter interface {
	Emit(ctx context.Context, event string, data any)
}

// StatusPrinter writes the status message of every completed run to W,
// one per line.
type StatusPrinter struct {
	W io.Writer
}

func (p *StatusPrinter) Emit(_ context.Context, event string, data any) {
	if event != EventJobCompleted {
		return
	}
	if res, ok := data.(*etl.SyncResult); ok {
		fmt.Fprintln(p.W, res.Message)
	}
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

// Count returns the number of recorded events.
func (m *MockEmitter) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}

// Snapshot returns a copy of the recorded events.
func (m *MockEmitter) Snapshot() []EmittedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]EmittedEvent(nil), m.Events...)
}
