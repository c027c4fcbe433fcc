// Package notes owns the household note store: adding notes, keeping their
// embeddings current and searching them.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/embeddings"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/vector"
	"github.com/papercomputeco/hearth/pkg/worker"
)

// ErrSemanticUnavailable is returned by SemanticSearch when no embedder or
// vector store is configured.
var ErrSemanticUnavailable = errors.New("semantic search not configured")

// ErrInvalidNote is returned by Add for a note without household or content.
var ErrInvalidNote = errors.New("note requires household_id and content")

const vectorizeJob = "note_vectorize"

// Config wires the service. Only Store is required.
type Config struct {
	Store storage.NoteStore

	// Embedder and Vectors enable semantic search; both or neither.
	Embedder embeddings.Embedder
	Vectors  vector.Driver

	// Pool runs vectorization in the background. Without a pool Add
	// vectorizes inline.
	Pool *worker.Pool

	Diagnostics diagnostics.Sink
	Logger      *slog.Logger
}

// Service manages notes.
type Service struct {
	store    storage.NoteStore
	embedder embeddings.Embedder
	vectors  vector.Driver
	pool     *worker.Pool
	diag     diagnostics.Sink
	logger   *slog.Logger
}

// NewService validates c and builds a Service.
func NewService(c Config) (*Service, error) {
	if c.Store == nil {
		return nil, errors.New("notes service requires a store")
	}
	if (c.Embedder == nil) != (c.Vectors == nil) {
		return nil, errors.New("embedder and vector store must be configured together")
	}
	if c.Diagnostics == nil {
		c.Diagnostics = diagnostics.Nop()
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	return &Service{
		store:    c.Store,
		embedder: c.Embedder,
		vectors:  c.Vectors,
		pool:     c.Pool,
		diag:     c.Diagnostics,
		logger:   c.Logger,
	}, nil
}

// SemanticEnabled reports whether SemanticSearch can run.
func (s *Service) SemanticEnabled() bool {
	return s.embedder != nil && s.vectors != nil
}

// Add stores a new note and schedules its vectorization.
func (s *Service) Add(ctx context.Context, note *storage.Note) (*storage.Note, error) {
	note.Content = strings.TrimSpace(note.Content)
	if note.HouseholdID == "" || note.Content == "" {
		return nil, ErrInvalidNote
	}
	if note.Kind == "" {
		note.Kind = storage.KindFact
	} else {
		note.Kind = storage.ParseKind(string(note.Kind))
	}

	if err := s.store.InsertNote(ctx, note); err != nil {
		return nil, fmt.Errorf("failed to store note: %w", err)
	}

	s.logger.Debug("note added",
		"note_id", note.ID,
		"household_id", note.HouseholdID,
		"kind", string(note.Kind),
	)

	if s.SemanticEnabled() {
		s.scheduleVectorize(ctx, note)
	}

	return note, nil
}

func (s *Service) scheduleVectorize(ctx context.Context, note *storage.Note) {
	id, household := note.ID, note.HouseholdID
	run := func(ctx context.Context) error {
		return s.Vectorize(ctx, id)
	}

	if s.pool == nil {
		if err := run(context.WithoutCancel(ctx)); err != nil {
			s.logger.Warn("note vectorization failed", "note_id", id, logger.Err(err))
		}
		return
	}

	s.pool.Enqueue(worker.Job{Name: vectorizeJob, HouseholdID: household, Run: run})
}

// Vectorize (re)computes and stores the embedding of a note. Failures are
// also recorded as a note_vectorize_error diagnostic.
func (s *Service) Vectorize(ctx context.Context, id string) error {
	if !s.SemanticEnabled() {
		return ErrSemanticUnavailable
	}

	note, err := s.store.GetNote(ctx, id)
	if err != nil {
		return err
	}

	err = s.vectorize(ctx, note)
	if err != nil {
		s.diag.Record(ctx, diagnostics.FromError(
			diagnostics.NoteVectorizeError,
			diagnostics.LevelWarning,
			"notes",
			diagnostics.ScopeIntegration,
			err,
		))
	}
	return err
}

func (s *Service) vectorize(ctx context.Context, note *storage.Note) error {
	embedding, err := s.embedder.Embed(ctx, note.Content)
	if err != nil {
		return fmt.Errorf("embedding note %s: %w", note.ID, err)
	}

	err = s.vectors.Add(ctx, []vector.Document{{
		ID:          note.ID,
		HouseholdID: note.HouseholdID,
		Embedding:   embedding,
	}})
	if err != nil {
		return fmt.Errorf("storing embedding for note %s: %w", note.ID, err)
	}

	s.logger.Debug("note vectorized", "note_id", note.ID, "embedding_dim", len(embedding))
	return nil
}

// SemanticSearch returns up to limit notes of a household most similar to
// query, most similar first.
func (s *Service) SemanticSearch(ctx context.Context, householdID, query string, limit int) ([]*storage.Note, error) {
	if !s.SemanticEnabled() {
		return nil, ErrSemanticUnavailable
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := s.vectors.Query(ctx, householdID, embedding, limit)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}

	found, err := s.store.GetNotes(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading matched notes: %w", err)
	}

	notes := make([]*storage.Note, 0, len(found))
	for _, n := range found {
		if n.HouseholdID != householdID {
			continue
		}
		notes = append(notes, n)
		if limit > 0 && len(notes) == limit {
			break
		}
	}
	return notes, nil
}

// KeywordSearch ORs the words of query together against note content.
func (s *Service) KeywordSearch(ctx context.Context, householdID, query string, limit int) ([]*storage.Note, error) {
	terms := storage.SearchTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}
	return s.store.KeywordSearchNotes(ctx, householdID, terms, limit)
}
