package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/hearth/pkg/storage"
)

// UpsertErrorAggregate inserts the aggregate or, on a fingerprint conflict,
// refreshes its last seen fields and increments occurrences.
func (s *Store) UpsertErrorAggregate(ctx context.Context, agg *storage.ErrorAggregate) error {
	if agg == nil || agg.Fingerprint == "" {
		return errors.New("aggregate requires a fingerprint")
	}

	now := time.Now().UTC()
	var stack any
	if agg.Stack != "" {
		stack = agg.Stack
	}

	insert := s.builder().Insert(ErrorAggregatesTable.Name).
		Columns("fingerprint", "level", "category", "scope", "last_message", "stack", "occurrences", "first_seen", "last_seen").
		Values(agg.Fingerprint, agg.Level, agg.Category, agg.Scope, agg.LastMessage, stack, 1, now, now).
		OnConflict(
			entsql.ConflictColumns("fingerprint"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("level")
				u.SetExcluded("category")
				u.SetExcluded("scope")
				u.SetExcluded("last_message")
				u.SetExcluded("stack")
				u.SetExcluded("last_seen")
				u.Add("occurrences", 1)
			}),
		)

	if err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("failed to upsert error aggregate: %w", err)
	}
	return nil
}

// ListErrorAggregates returns aggregates, most recently seen first.
func (s *Store) ListErrorAggregates(ctx context.Context, limit int) ([]*storage.ErrorAggregate, error) {
	selector := s.builder().
		Select("fingerprint", "level", "category", "scope", "last_message", "stack", "occurrences", "first_seen", "last_seen").
		From(entsql.Table(ErrorAggregatesTable.Name)).
		OrderBy(entsql.Desc("last_seen"))
	if limit > 0 {
		selector.Limit(limit)
	}

	query, args := selector.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query error aggregates: %w", err)
	}
	defer rows.Close()

	var aggs []*storage.ErrorAggregate
	for rows.Next() {
		var (
			a     = &storage.ErrorAggregate{}
			stack sql.NullString
		)
		if err := rows.Scan(&a.Fingerprint, &a.Level, &a.Category, &a.Scope, &a.LastMessage, &stack,
			&a.Occurrences, &a.FirstSeen, &a.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan error aggregate: %w", err)
		}
		a.Stack = stack.String
		aggs = append(aggs, a)
	}

	return aggs, rows.Err()
}
