package chat

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/llm"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
)

// DefaultHistoryLimit is the number of prior exchanges sent to the model.
const DefaultHistoryLimit = 5

// HistoryLoader reads recent conversation turns as model messages.
type HistoryLoader struct {
	turns  storage.TurnStore
	diag   diagnostics.Sink
	logger *slog.Logger
}

// NewHistoryLoader creates a HistoryLoader. diag and log may be nil.
func NewHistoryLoader(turns storage.TurnStore, diag diagnostics.Sink, log *slog.Logger) *HistoryLoader {
	if diag == nil {
		diag = diagnostics.Nop()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HistoryLoader{turns: turns, diag: diag, logger: log}
}

// Load returns up to 2*limit of the household's newest turns, oldest first.
// Rows with any role other than user or assistant are dropped. A failed
// query yields no history.
func (h *HistoryLoader) Load(ctx context.Context, householdID string, limit int) []llm.Message {
	if limit <= 0 {
		return nil
	}

	rows, err := h.turns.RecentTurns(ctx, householdID, 2*limit)
	if err != nil {
		h.logger.Warn("failed to load chat history", "household_id", householdID, logger.Err(err))
		h.diag.Record(ctx, diagnostics.FromError(
			diagnostics.ChatHistoryError,
			diagnostics.LevelWarning,
			category,
			diagnostics.ScopeDatabase,
			err,
		))
		return nil
	}

	msgs := make([]llm.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		if !llm.IsConversationRole(rows[i].Role) {
			continue
		}
		msgs = append(msgs, llm.NewMessage(rows[i].Role, rows[i].Content))
	}
	return msgs
}
