// Package chat runs a household chat exchange: it gathers notes and history,
// streams the model's reply as events, persists both turns and hands the
// exchange to memory extraction.
package chat

// EventType names a stream event.
type EventType string

const (
	EventConnected EventType = "connected"
	EventContent   EventType = "content"
	EventDone      EventType = "done"
	EventError     EventType = "error"
	EventHeartbeat EventType = "heartbeat"

	// EventComplete is accepted from peers as a synonym for EventDone.
	EventComplete EventType = "complete"
)

// ClientErrorMessage is the only error text sent to clients mid-stream.
const ClientErrorMessage = "Internal server error"

// Event is one frame of the chat stream.
type Event struct {
	Type         EventType `json:"type"`
	Content      string    `json:"content,omitempty"`
	FullResponse string    `json:"full_response,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Terminal reports whether no event may follow e.
func (e Event) Terminal() bool {
	switch e.Type {
	case EventDone, EventComplete, EventError:
		return true
	}
	return false
}

func connectedEvent() Event { return Event{Type: EventConnected} }

func contentEvent(delta string) Event { return Event{Type: EventContent, Content: delta} }

func doneEvent(full string) Event { return Event{Type: EventDone, FullResponse: full} }

func errorEvent() Event { return Event{Type: EventError, Error: ClientErrorMessage} }

func heartbeatEvent() Event { return Event{Type: EventHeartbeat} }
