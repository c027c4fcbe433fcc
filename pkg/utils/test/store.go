package testutils

import (
	"context"
	"errors"
	"sync"

	"github.com/papercomputeco/hearth/pkg/storage"
)

// ErrInjected is returned by FailingDriver for every injected failure.
var ErrInjected = errors.New("injected storage failure")

// FailingDriver wraps a storage.Driver and fails selected operations.
type FailingDriver struct {
	storage.Driver

	mu sync.Mutex

	// FailAppendRole fails AppendTurn for turns with this role.
	FailAppendRole string

	FailRecentTurns bool
	FailKeyword     bool
	FailGetNotes    bool

	// FailInsertNoteAfter fails InsertNote once this many notes have been
	// written through the wrapper. Negative disables.
	FailInsertNoteAfter int

	insertedNotes int
}

// NewFailingDriver wraps d with no failures enabled.
func NewFailingDriver(d storage.Driver) *FailingDriver {
	return &FailingDriver{Driver: d, FailInsertNoteAfter: -1}
}

func (f *FailingDriver) AppendTurn(ctx context.Context, turn *storage.Turn) error {
	if f.FailAppendRole != "" && turn.Role == f.FailAppendRole {
		return ErrInjected
	}
	return f.Driver.AppendTurn(ctx, turn)
}

func (f *FailingDriver) RecentTurns(ctx context.Context, householdID string, limit int) ([]*storage.Turn, error) {
	if f.FailRecentTurns {
		return nil, ErrInjected
	}
	return f.Driver.RecentTurns(ctx, householdID, limit)
}

func (f *FailingDriver) KeywordSearchNotes(ctx context.Context, householdID string, terms []string, limit int) ([]*storage.Note, error) {
	if f.FailKeyword {
		return nil, ErrInjected
	}
	return f.Driver.KeywordSearchNotes(ctx, householdID, terms, limit)
}

func (f *FailingDriver) GetNotes(ctx context.Context, ids []string) ([]*storage.Note, error) {
	if f.FailGetNotes {
		return nil, ErrInjected
	}
	return f.Driver.GetNotes(ctx, ids)
}

func (f *FailingDriver) InsertNote(ctx context.Context, note *storage.Note) error {
	f.mu.Lock()
	if f.FailInsertNoteAfter >= 0 && f.insertedNotes >= f.FailInsertNoteAfter {
		f.mu.Unlock()
		return ErrInjected
	}
	f.insertedNotes++
	f.mu.Unlock()

	return f.Driver.InsertNote(ctx, note)
}
