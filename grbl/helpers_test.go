package grbl

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/fornellas/slogxt/log"
)

func testContext(t *testing.T) context.Context {
	t.Helper()
	return log.WithLogger(t.Context(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Notify(ctx context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Take returns all recorded events and clears them.
func (r *eventRecorder) Take() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	events := r.events
	r.events = nil
	return events
}

func filterEvents[T Event](events []Event) []T {
	var filtered []T
	for _, event := range events {
		if e, ok := event.(T); ok {
			filtered = append(filtered, e)
		}
	}
	return filtered
}

type decoders struct {
	machine  *Machine
	recorder *eventRecorder
	status   *StatusReportDecoder
	response *ResponseDecoder
}

func newDecoders() *decoders {
	recorder := &eventRecorder{}
	machine := NewMachine(recorder)
	return &decoders{
		machine:  machine,
		recorder: recorder,
		status:   NewStatusReportDecoder(machine),
		response: NewResponseDecoder(machine),
	}
}
