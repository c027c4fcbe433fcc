// Package sse reads Server-Sent Events from a response body. The hearth
// chat client uses it to consume the chat stream.
//
// See https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import "time"

// Event is a single parsed SSE event, delimited by a blank line.
type Event struct {
	// Type is the "event:" field. Empty means the default "message" type.
	Type string

	// Data joins every "data:" line of the event with "\n".
	Data string

	// ID is the last "id:" field seen, if any.
	ID string

	// Retry is the reconnection delay from a "retry:" field, zero when absent.
	Retry time.Duration
}
