package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/hearth/pkg/storage"
)

var noteColumns = []string{"id", "household_id", "content", "kind", "source", "tags", "created_at"}

// InsertNote writes a note.
func (s *Store) InsertNote(ctx context.Context, note *storage.Note) error {
	if note == nil {
		return errors.New("cannot store nil note")
	}
	storage.Stamp(&note.ID, &note.CreatedAt)
	if note.Kind == "" {
		note.Kind = storage.KindNote
	}

	source, err := jsonColumn(note.Source, len(note.Source) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode note source: %w", err)
	}
	tags, err := jsonColumn(note.Tags, len(note.Tags) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode note tags: %w", err)
	}

	insert := s.builder().Insert(NotesTable.Name).
		Columns(noteColumns...).
		Values(note.ID, note.HouseholdID, note.Content, string(note.Kind), source, tags, note.CreatedAt)

	if err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("failed to insert note: %w", err)
	}
	return nil
}

// GetNote returns a note by id.
func (s *Store) GetNote(ctx context.Context, id string) (*storage.Note, error) {
	notes, err := s.selectNotes(ctx, entsql.EQ("id", id), 1)
	if err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, storage.NotFoundError{Kind: "note", ID: id}
	}
	return notes[0], nil
}

// GetNotes returns notes in the order of ids.
func (s *Store) GetNotes(ctx context.Context, ids []string) ([]*storage.Note, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	notes, err := s.selectNotes(ctx, entsql.In("id", args...), 0)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*storage.Note, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
	}

	ordered := make([]*storage.Note, 0, len(notes))
	for _, id := range ids {
		if n, ok := byID[id]; ok {
			ordered = append(ordered, n)
		}
	}
	return ordered, nil
}

// KeywordSearchNotes ORs the terms together. PostgreSQL uses its english
// full text search, SQLite a case-insensitive substring match.
func (s *Store) KeywordSearchNotes(ctx context.Context, householdID string, terms []string, limit int) ([]*storage.Note, error) {
	clean := make([]string, 0, len(terms))
	for _, t := range terms {
		clean = append(clean, storage.SearchTerms(t)...)
	}
	if len(clean) == 0 {
		return nil, nil
	}

	var match *entsql.Predicate
	switch s.dialect {
	case dialect.Postgres:
		tsquery := strings.Join(clean, " | ")
		match = entsql.P(func(b *entsql.Builder) {
			b.WriteString("to_tsvector('english', ").
				Ident("content").
				WriteString(") @@ to_tsquery('english', ").
				Arg(tsquery).
				WriteString(")")
		})
	default:
		preds := make([]*entsql.Predicate, len(clean))
		for i, t := range clean {
			preds[i] = entsql.ContainsFold("content", t)
		}
		match = entsql.Or(preds...)
	}

	return s.selectNotes(ctx, entsql.And(entsql.EQ("household_id", householdID), match), limit)
}

func (s *Store) selectNotes(ctx context.Context, where *entsql.Predicate, limit int) ([]*storage.Note, error) {
	selector := s.builder().
		Select(noteColumns...).
		From(entsql.Table(NotesTable.Name)).
		Where(where).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		selector.Limit(limit)
	}

	query, args := selector.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer rows.Close()

	var notes []*storage.Note
	for rows.Next() {
		var (
			n      = &storage.Note{}
			kind   string
			source sql.NullString
			tags   sql.NullString
		)
		if err := rows.Scan(&n.ID, &n.HouseholdID, &n.Content, &kind, &source, &tags, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		n.Kind = storage.ParseKind(kind)
		if source.Valid && source.String != "" {
			if err := json.Unmarshal([]byte(source.String), &n.Source); err != nil {
				return nil, fmt.Errorf("failed to decode note source: %w", err)
			}
		}
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &n.Tags); err != nil {
				return nil, fmt.Errorf("failed to decode note tags: %w", err)
			}
		}
		notes = append(notes, n)
	}

	return notes, rows.Err()
}

// jsonColumn encodes v for a nullable JSON column.
func jsonColumn(v any, empty bool) (any, error) {
	if empty {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
