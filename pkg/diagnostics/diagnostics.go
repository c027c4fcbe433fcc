// Package diagnostics records failure events under stable fingerprints so
// repeated failures aggregate into a single row.
package diagnostics

import (
	"context"
	"runtime/debug"
)

// Level is the severity of a diagnostic record.
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Scope is the part of the system a record originates from.
type Scope string

const (
	ScopeEdgeFunction Scope = "edge_function"
	ScopeIntegration  Scope = "integration"
	ScopeClient       Scope = "client"
	ScopeDatabase     Scope = "database"
)

// Fingerprints, one per failure class.
const (
	MissingParameters        = "missing_parameters"
	ProviderUnavailable      = "provider_unavailable"
	StreamingError           = "streaming_error"
	NotesFetchError          = "notes_fetch_error"
	NotesFallbackError       = "notes_fallback_error"
	ChatHistoryError         = "chat_history_error"
	ConversationStorageError = "conversation_storage_error"
	MemoryExtractionError    = "memory_extraction_error"
	ClientDisconnected       = "client_disconnected"
	OpenAIKeyMissing         = "openai_key_missing"
	NoteVectorizeError       = "note_vectorize_error"
	EventPublishError        = "event_publish_error"
	ChatStreamClientError    = "chat_eventsource_error"
)

// Record is a single diagnostic event.
type Record struct {
	Fingerprint string `json:"fingerprint"`
	Level       Level  `json:"level"`
	Category    string `json:"category"`
	Scope       Scope  `json:"scope"`
	Message     string `json:"message"`
	Stack       string `json:"stack,omitempty"`
}

// Sink accepts diagnostic records. Implementations must not block the caller
// on failure and must never return errors into the request path.
type Sink interface {
	Record(ctx context.Context, r Record)
}

// FromError builds a record whose message is err's text. Error and critical
// records also carry the current goroutine stack.
func FromError(fingerprint string, level Level, category string, scope Scope, err error) Record {
	r := Record{
		Fingerprint: fingerprint,
		Level:       level,
		Category:    category,
		Scope:       scope,
	}
	if err != nil {
		r.Message = err.Error()
	}
	if level == LevelError || level == LevelCritical {
		r.Stack = string(debug.Stack())
	}
	return r
}

// Nop returns a sink that drops every record.
func Nop() Sink {
	return nopSink{}
}

type nopSink struct{}

func (nopSink) Record(context.Context, Record) {}
