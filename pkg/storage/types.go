package storage

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChatChannel is the messages_log channel used for assistant conversations.
const ChatChannel = "chat"

// Turn is one row of the conversation log.
type Turn struct {
	ID          string    `json:"id"`
	HouseholdID string    `json:"household_id"`
	Role        string    `json:"role"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// Kind classifies a note.
type Kind string

const (
	KindFact        Kind = "fact"
	KindPreference  Kind = "preference"
	KindObservation Kind = "observation"
	KindRule        Kind = "rule"
	KindNote        Kind = "note"
)

// ParseKind maps s onto a known kind. Anything unrecognised becomes KindNote.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindFact, KindPreference, KindObservation, KindRule, KindNote:
		return k
	default:
		return KindNote
	}
}

// Note is an append-only household memory.
type Note struct {
	ID          string         `json:"id"`
	HouseholdID string         `json:"household_id"`
	Content     string         `json:"content"`
	Kind        Kind           `json:"kind"`
	Source      map[string]any `json:"source,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ErrorAggregate is the deduplicated view of diagnostics sharing a fingerprint.
type ErrorAggregate struct {
	Fingerprint string    `json:"fingerprint"`
	Level       string    `json:"level"`
	Category    string    `json:"category"`
	Scope       string    `json:"scope"`
	LastMessage string    `json:"last_message"`
	Stack       string    `json:"stack,omitempty"`
	Occurrences int       `json:"occurrences"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// Collection names a household collection table.
type Collection string

const (
	CollectionEvents     Collection = "events"
	CollectionTasks      Collection = "tasks"
	CollectionRideOffers Collection = "ride_offers"
	CollectionReminders  Collection = "reminders"
)

// Collections is the allow-list of collection tables.
var Collections = []Collection{
	CollectionEvents,
	CollectionTasks,
	CollectionRideOffers,
	CollectionReminders,
}

// ParseCollection returns the collection named s or ErrUnknownCollection.
func ParseCollection(s string) (Collection, error) {
	for _, c := range Collections {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCollection, s)
}

// Item is a row of a household collection. Collection specific fields that
// have no column of their own live in Data.
type Item struct {
	ID          string         `json:"id"`
	HouseholdID string         `json:"household_id"`
	Title       string         `json:"title"`
	Details     string         `json:"details,omitempty"`
	Status      string         `json:"status,omitempty"`
	DueAt       *time.Time     `json:"due_at,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Stamp fills in an empty id and zero created_at, normalised to UTC.
func Stamp(id *string, createdAt *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if createdAt.IsZero() {
		*createdAt = time.Now()
	}
	*createdAt = createdAt.UTC()
}
