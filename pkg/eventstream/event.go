package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeExchangePersisted is emitted after both turns of a chat
	// exchange are persisted.
	EventTypeExchangePersisted = "hearth.exchange.persisted"
)

// ExchangePersistedEvent is a transport-neutral event payload for a
// completed chat exchange.
type ExchangePersistedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	HouseholdID   string       `json:"household_id"`
	UserID        string       `json:"user_id,omitempty"`
	RequestMeta   ExchangeMeta `json:"request_meta"`
	UserTurn      TurnRef      `json:"user_turn"`
	AssistantTurn TurnRef      `json:"assistant_turn"`
}

// ExchangeMeta captures request lifecycle metadata for the event.
type ExchangeMeta struct {
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
	DurationMs   int64     `json:"duration_ms"`
	Streaming    bool      `json:"streaming"`
	NotesUsed    int       `json:"notes_used"`
	HistoryTurns int       `json:"history_turns"`
}

// TurnRef points at a persisted turn without carrying its content.
type TurnRef struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Chars     int       `json:"chars"`
}

// NewExchangePersistedEvent fills the envelope fields of an event.
func NewExchangePersistedEvent(householdID, userID string) *ExchangePersistedEvent {
	return &ExchangePersistedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeExchangePersisted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		HouseholdID:   householdID,
		UserID:        userID,
	}
}
