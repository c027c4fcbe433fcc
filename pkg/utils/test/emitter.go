package testutils

import (
	"sync"

	"github.com/papercomputeco/hearth/pkg/chat"
)

// RecordingEmitter keeps chat events in memory. A Fail entry makes every
// Emit of that event type return the error.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []chat.Event
	Fail   map[chat.EventType]error
}

func NewRecordingEmitter() *RecordingEmitter {
	return &RecordingEmitter{Fail: map[chat.EventType]error{}}
}

func (r *RecordingEmitter) Emit(ev chat.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.Fail[ev.Type]; err != nil {
		return err
	}
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of everything emitted.
func (r *RecordingEmitter) Events() []chat.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chat.Event(nil), r.events...)
}

// Types returns the emitted event types without heartbeats.
func (r *RecordingEmitter) Types() []chat.EventType {
	var out []chat.EventType
	for _, ev := range r.Events() {
		if ev.Type != chat.EventHeartbeat {
			out = append(out, ev.Type)
		}
	}
	return out
}

// Contents returns the content deltas in emission order.
func (r *RecordingEmitter) Contents() []string {
	var out []string
	for _, ev := range r.Events() {
		if ev.Type == chat.EventContent {
			out = append(out, ev.Content)
		}
	}
	return out
}

// Last returns the final non-heartbeat event.
func (r *RecordingEmitter) Last() chat.Event {
	events := r.Events()
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Type != chat.EventHeartbeat {
			return events[i]
		}
	}
	return chat.Event{}
}
