package events

import (
	"context"
	"sync"
)

// Recorder is an in-memory Publisher that keeps every envelope it receives.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope

	// PublishErr, if set, is returned from every Publish after recording.
	PublishErr error
}

func (r *Recorder) Publish(_ context.Context, _ string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(Envelope); ok {
		r.events = append(r.events, e)
	}
	return r.PublishErr
}

// Events returns a copy of the recorded envelopes.
func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}
