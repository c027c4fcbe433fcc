// Package memory turns chat messages into relevant household notes and
// distills finished exchanges into new notes.
package memory

import (
	"context"
	"errors"
	"log/slog"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
)

// DefaultNoteLimit is how many notes a retrieval returns by default.
const DefaultNoteLimit = 5

const category = "memory_system"

// Searcher is the note search surface the Retriever needs.
// *notes.Service implements it.
type Searcher interface {
	SemanticEnabled() bool
	SemanticSearch(ctx context.Context, householdID, query string, limit int) ([]*storage.Note, error)
	KeywordSearch(ctx context.Context, householdID, query string, limit int) ([]*storage.Note, error)
}

// RetrieverConfig configures a Retriever.
type RetrieverConfig struct {
	Notes       Searcher
	Limit       int
	Diagnostics diagnostics.Sink
	Logger      *slog.Logger
}

// Retriever finds the notes most relevant to a message.
type Retriever struct {
	notes  Searcher
	limit  int
	diag   diagnostics.Sink
	logger *slog.Logger
}

// NewRetriever creates a Retriever.
func NewRetriever(c RetrieverConfig) (*Retriever, error) {
	if c.Notes == nil {
		return nil, errors.New("retriever requires a note searcher")
	}
	if c.Limit <= 0 {
		c.Limit = DefaultNoteLimit
	}
	if c.Diagnostics == nil {
		c.Diagnostics = diagnostics.Nop()
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	return &Retriever{
		notes:  c.Notes,
		limit:  c.Limit,
		diag:   c.Diagnostics,
		logger: c.Logger,
	}, nil
}

// Retrieve returns up to the configured limit of notes relevant to query,
// most relevant first. It never fails: semantic search errors fall back to
// keyword search, and a failed fallback yields no notes.
//
// An empty semantic result is returned as is; only an error triggers the
// keyword fallback.
func (r *Retriever) Retrieve(ctx context.Context, householdID, query string) []*storage.Note {
	return r.RetrieveN(ctx, householdID, query, r.limit)
}

// RetrieveN is Retrieve with an explicit limit. A limit <= 0 uses the
// configured one.
func (r *Retriever) RetrieveN(ctx context.Context, householdID, query string, limit int) []*storage.Note {
	if limit <= 0 {
		limit = r.limit
	}

	if r.notes.SemanticEnabled() {
		found, err := r.notes.SemanticSearch(ctx, householdID, query, limit)
		if err == nil {
			return found
		}

		r.logger.Warn("semantic note search failed, falling back to keywords",
			"household_id", householdID,
			logger.Err(err),
		)
		r.diag.Record(ctx, diagnostics.FromError(
			diagnostics.NotesFetchError,
			diagnostics.LevelWarning,
			category,
			diagnostics.ScopeDatabase,
			err,
		))
	}

	return r.keyword(ctx, householdID, query, limit)
}

func (r *Retriever) keyword(ctx context.Context, householdID, query string, limit int) []*storage.Note {
	found, err := r.notes.KeywordSearch(ctx, householdID, query, limit)
	if err != nil {
		r.logger.Error("keyword note search failed",
			"household_id", householdID,
			logger.Err(err),
		)
		r.diag.Record(ctx, diagnostics.FromError(
			diagnostics.NotesFallbackError,
			diagnostics.LevelError,
			category,
			diagnostics.ScopeDatabase,
			err,
		))
		return nil
	}
	return found
}
