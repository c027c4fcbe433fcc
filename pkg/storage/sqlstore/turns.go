package sqlstore

import (
	"context"
	"errors"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/papercomputeco/hearth/pkg/storage"
)

const turnStatusSent = "sent"

// AppendTurn writes a chat turn to messages_log.
func (s *Store) AppendTurn(ctx context.Context, turn *storage.Turn) error {
	if turn == nil {
		return errors.New("cannot store nil turn")
	}
	storage.Stamp(&turn.ID, &turn.CreatedAt)

	insert := s.builder().Insert(MessagesLogTable.Name).
		Columns("id", "household_id", "channel", "subject", "body", "status", "created_at").
		Values(turn.ID, turn.HouseholdID, storage.ChatChannel, turn.Role, turn.Content, turnStatusSent, turn.CreatedAt)

	if err := s.exec(ctx, insert); err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// RecentTurns returns the newest chat rows of a household.
func (s *Store) RecentTurns(ctx context.Context, householdID string, limit int) ([]*storage.Turn, error) {
	selector := s.builder().
		Select("id", "household_id", "subject", "body", "created_at").
		From(entsql.Table(MessagesLogTable.Name)).
		Where(entsql.And(
			entsql.EQ("household_id", householdID),
			entsql.EQ("channel", storage.ChatChannel),
		)).
		OrderBy(entsql.Desc("created_at"))
	if limit >= 0 {
		selector.Limit(limit)
	}

	query, args := selector.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []*storage.Turn
	for rows.Next() {
		t := &storage.Turn{}
		if err := rows.Scan(&t.ID, &t.HouseholdID, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		turns = append(turns, t)
	}

	return turns, rows.Err()
}
