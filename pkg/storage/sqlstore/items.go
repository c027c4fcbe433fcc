package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/hearth/pkg/storage"
)

var itemColumnNames = []string{"id", "household_id", "title", "details", "status", "due_at", "data", "created_at"}

// InsertItem writes a row into a household collection table.
func (s *Store) InsertItem(ctx context.Context, collection storage.Collection, item *storage.Item) error {
	if _, err := storage.ParseCollection(string(collection)); err != nil {
		return err
	}
	if item == nil {
		return errors.New("cannot store nil item")
	}
	storage.Stamp(&item.ID, &item.CreatedAt)

	data, err := jsonColumn(item.Data, len(item.Data) == 0)
	if err != nil {
		return fmt.Errorf("failed to encode item data: %w", err)
	}

	var dueAt any
	if item.DueAt != nil {
		dueAt = item.DueAt.UTC()
	}

	insert := s.builder().Insert(string(collection)).
		Columns(itemColumnNames...).
		Values(item.ID, item.HouseholdID, item.Title, nullable(item.Details), nullable(item.Status), dueAt, data, item.CreatedAt)

	if err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", collection, err)
	}
	return nil
}

// ListItems returns the newest rows of a household collection.
func (s *Store) ListItems(ctx context.Context, collection storage.Collection, householdID string, limit int) ([]*storage.Item, error) {
	if _, err := storage.ParseCollection(string(collection)); err != nil {
		return nil, err
	}

	selector := s.builder().
		Select(itemColumnNames...).
		From(entsql.Table(string(collection))).
		Where(entsql.EQ("household_id", householdID)).
		OrderBy(entsql.Desc("created_at"))
	if limit > 0 {
		selector.Limit(limit)
	}

	query, args := selector.Query()
	rows, err := s.RunStatement(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	items := make([]*storage.Item, 0, len(rows))
	for _, row := range rows {
		item, err := itemFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s row: %w", collection, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func itemFromRow(row map[string]any) (*storage.Item, error) {
	item := &storage.Item{
		ID:          asString(row["id"]),
		HouseholdID: asString(row["household_id"]),
		Title:       asString(row["title"]),
		Details:     asString(row["details"]),
		Status:      asString(row["status"]),
	}

	if t, ok := row["created_at"].(time.Time); ok {
		item.CreatedAt = t
	}
	if t, ok := row["due_at"].(time.Time); ok {
		item.DueAt = &t
	}
	if raw := asString(row["data"]); raw != "" {
		if err := json.Unmarshal([]byte(raw), &item.Data); err != nil {
			return nil, err
		}
	}
	return item, nil
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return ""
	}
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
