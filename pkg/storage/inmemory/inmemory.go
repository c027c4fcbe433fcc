// Package inmemory is a map backed storage.Driver for tests and ephemeral runs.
package inmemory

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/hearth/pkg/storage"
)

// Driver implements storage.Driver in process memory.
type Driver struct {
	mu sync.RWMutex

	turns      []*storage.Turn
	notes      map[string]*storage.Note
	noteOrder  []string
	aggregates map[string]*storage.ErrorAggregate
	items      map[storage.Collection][]*storage.Item
}

// NewDriver creates a new in-memory store.
func NewDriver() *Driver {
	return &Driver{
		notes:      make(map[string]*storage.Note),
		aggregates: make(map[string]*storage.ErrorAggregate),
		items:      make(map[storage.Collection][]*storage.Item),
	}
}

func (d *Driver) AppendTurn(_ context.Context, turn *storage.Turn) error {
	if turn == nil {
		return errors.New("cannot store nil turn")
	}
	storage.Stamp(&turn.ID, &turn.CreatedAt)

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *turn
	d.turns = append(d.turns, &cp)
	return nil
}

func (d *Driver) RecentTurns(_ context.Context, householdID string, limit int) ([]*storage.Turn, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*storage.Turn
	for _, t := range d.turns {
		if t.HouseholdID == householdID {
			cp := *t
			result = append(result, &cp)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if limit >= 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Turns returns every turn of a household, oldest first.
func (d *Driver) Turns(householdID string) []*storage.Turn {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*storage.Turn
	for _, t := range d.turns {
		if t.HouseholdID == householdID {
			cp := *t
			result = append(result, &cp)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result
}

func (d *Driver) InsertNote(_ context.Context, note *storage.Note) error {
	if note == nil {
		return errors.New("cannot store nil note")
	}
	storage.Stamp(&note.ID, &note.CreatedAt)

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *note
	d.notes[note.ID] = &cp
	d.noteOrder = append(d.noteOrder, note.ID)
	return nil
}

func (d *Driver) GetNote(_ context.Context, id string) (*storage.Note, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.notes[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "note", ID: id}
	}
	cp := *n
	return &cp, nil
}

func (d *Driver) GetNotes(_ context.Context, ids []string) ([]*storage.Note, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*storage.Note, 0, len(ids))
	for _, id := range ids {
		if n, ok := d.notes[id]; ok {
			cp := *n
			result = append(result, &cp)
		}
	}
	return result, nil
}

// Notes returns every note of a household in insertion order.
func (d *Driver) Notes(householdID string) []*storage.Note {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*storage.Note
	for _, id := range d.noteOrder {
		if n := d.notes[id]; n.HouseholdID == householdID {
			cp := *n
			result = append(result, &cp)
		}
	}
	return result
}

func (d *Driver) KeywordSearchNotes(_ context.Context, householdID string, terms []string, limit int) ([]*storage.Note, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*storage.Note
	for i := len(d.noteOrder) - 1; i >= 0; i-- {
		n := d.notes[d.noteOrder[i]]
		if n.HouseholdID != householdID {
			continue
		}
		content := strings.ToLower(n.Content)
		if slices.ContainsFunc(terms, func(t string) bool {
			return t != "" && strings.Contains(content, strings.ToLower(t))
		}) {
			cp := *n
			result = append(result, &cp)
		}
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (d *Driver) UpsertErrorAggregate(_ context.Context, agg *storage.ErrorAggregate) error {
	if agg == nil || agg.Fingerprint == "" {
		return errors.New("aggregate requires a fingerprint")
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now().UTC()
	existing, ok := d.aggregates[agg.Fingerprint]
	if !ok {
		cp := *agg
		cp.Occurrences = 1
		cp.FirstSeen = now
		cp.LastSeen = now
		d.aggregates[agg.Fingerprint] = &cp
		return nil
	}

	existing.Level = agg.Level
	existing.Category = agg.Category
	existing.Scope = agg.Scope
	existing.LastMessage = agg.LastMessage
	existing.Stack = agg.Stack
	existing.Occurrences++
	existing.LastSeen = now
	return nil
}

func (d *Driver) ListErrorAggregates(_ context.Context, limit int) ([]*storage.ErrorAggregate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*storage.ErrorAggregate, 0, len(d.aggregates))
	for _, a := range d.aggregates {
		cp := *a
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastSeen.After(result[j].LastSeen)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (d *Driver) InsertItem(_ context.Context, collection storage.Collection, item *storage.Item) error {
	if _, err := storage.ParseCollection(string(collection)); err != nil {
		return err
	}
	if item == nil {
		return errors.New("cannot store nil item")
	}
	storage.Stamp(&item.ID, &item.CreatedAt)

	d.mu.Lock()
	defer d.mu.Unlock()

	cp := *item
	d.items[collection] = append(d.items[collection], &cp)
	return nil
}

func (d *Driver) ListItems(_ context.Context, collection storage.Collection, householdID string, limit int) ([]*storage.Item, error) {
	if _, err := storage.ParseCollection(string(collection)); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*storage.Item
	items := d.items[collection]
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].HouseholdID != householdID {
			continue
		}
		cp := *items[i]
		result = append(result, &cp)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (d *Driver) Close() error {
	return nil
}

var _ storage.Driver = (*Driver)(nil)
