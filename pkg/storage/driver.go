// Package storage is the household store gateway: conversation turns, notes,
// error aggregates and the household collections all go through a Driver.
package storage

import (
	"context"
)

// TurnStore persists the append-only conversation log.
type TurnStore interface {
	// AppendTurn writes one turn. ID and CreatedAt are filled in when empty.
	AppendTurn(ctx context.Context, turn *Turn) error

	// RecentTurns returns up to limit chat rows for a household, newest first.
	RecentTurns(ctx context.Context, householdID string, limit int) ([]*Turn, error)
}

// NoteStore persists household notes. Notes are never updated.
type NoteStore interface {
	// InsertNote writes one note. ID and CreatedAt are filled in when empty.
	InsertNote(ctx context.Context, note *Note) error

	// GetNote returns a single note or a NotFoundError.
	GetNote(ctx context.Context, id string) (*Note, error)

	// GetNotes returns the notes with the given ids in the order of ids.
	// Unknown ids are skipped.
	GetNotes(ctx context.Context, ids []string) ([]*Note, error)

	// KeywordSearchNotes returns notes of a household whose content matches
	// any of terms, newest first.
	KeywordSearchNotes(ctx context.Context, householdID string, terms []string, limit int) ([]*Note, error)
}

// AggregateStore keeps one row per diagnostic fingerprint.
type AggregateStore interface {
	// UpsertErrorAggregate inserts the aggregate or bumps the occurrence count
	// and last seen fields of the existing row with the same fingerprint.
	UpsertErrorAggregate(ctx context.Context, agg *ErrorAggregate) error

	// ListErrorAggregates returns aggregates, most recently seen first.
	ListErrorAggregates(ctx context.Context, limit int) ([]*ErrorAggregate, error)
}

// ItemStore persists household collection items (events, tasks, ...).
type ItemStore interface {
	InsertItem(ctx context.Context, collection Collection, item *Item) error
	ListItems(ctx context.Context, collection Collection, householdID string, limit int) ([]*Item, error)
}

// Driver is the full store gateway implemented by every backend.
type Driver interface {
	TurnStore
	NoteStore
	AggregateStore
	ItemStore

	// Close closes the store and releases any resources.
	Close() error
}
