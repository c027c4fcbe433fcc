package chat

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Format is the wire framing of a chat stream.
type Format int

const (
	// FormatSSE frames each event as "data: {json}\n\n".
	FormatSSE Format = iota

	// FormatNDJSON frames each event as one JSON line.
	FormatNDJSON
)

const (
	ContentTypeSSE    = "text/event-stream"
	ContentTypeNDJSON = "application/x-ndjson"
)

// ErrEmitterClosed is returned by Emit after a terminal event was written.
var ErrEmitterClosed = errors.New("chat stream already terminated")

// Emitter is where the orchestrator sends events.
type Emitter interface {
	Emit(Event) error
}

// ContentType returns the HTTP content type for f.
func (f Format) ContentType() string {
	if f == FormatNDJSON {
		return ContentTypeNDJSON
	}
	return ContentTypeSSE
}

// StreamEmitter writes framed events to w. It is safe for concurrent use so
// heartbeats and content never interleave on the wire.
type StreamEmitter struct {
	mu     sync.Mutex
	w      io.Writer
	format Format
	done   bool
}

// NewStreamEmitter creates an emitter writing f-framed events to w.
func NewStreamEmitter(w io.Writer, f Format) *StreamEmitter {
	return &StreamEmitter{w: w, format: f}
}

// Emit writes one event. After a terminal event every further call fails
// with ErrEmitterClosed.
func (e *StreamEmitter) Emit(ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding %s event: %w", ev.Type, err)
	}

	var frame []byte
	switch e.format {
	case FormatNDJSON:
		frame = append(payload, '\n')
	default:
		frame = make([]byte, 0, len(payload)+8)
		frame = append(frame, "data: "...)
		frame = append(frame, payload...)
		frame = append(frame, "\n\n"...)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.done {
		return ErrEmitterClosed
	}
	if ev.Terminal() {
		e.done = true
	}

	_, err = e.w.Write(frame)
	return err
}
