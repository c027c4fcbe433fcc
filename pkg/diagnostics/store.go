package diagnostics

import (
	"context"
	"log/slog"
	"time"

	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
)

const storeWriteTimeout = 5 * time.Second

// StoreSink logs every record and upserts it into the error aggregates table.
type StoreSink struct {
	store  storage.AggregateStore
	logger *slog.Logger
}

// NewStoreSink creates a sink. A nil store only logs.
func NewStoreSink(store storage.AggregateStore, log *slog.Logger) *StoreSink {
	if log == nil {
		log = logger.Nop()
	}
	return &StoreSink{store: store, logger: log}
}

func (s *StoreSink) Record(ctx context.Context, r Record) {
	s.logger.Log(ctx, slogLevel(r.Level), "diagnostic",
		"fingerprint", r.Fingerprint,
		"category", r.Category,
		"scope", string(r.Scope),
		"message", r.Message,
	)

	if s.store == nil {
		return
	}

	// Diagnostics often describe a cancelled request; the write must outlive it.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeWriteTimeout)
	defer cancel()

	err := s.store.UpsertErrorAggregate(writeCtx, &storage.ErrorAggregate{
		Fingerprint: r.Fingerprint,
		Level:       string(r.Level),
		Category:    r.Category,
		Scope:       string(r.Scope),
		LastMessage: r.Message,
		Stack:       r.Stack,
	})
	if err != nil {
		s.logger.Error("failed to store diagnostic",
			"fingerprint", r.Fingerprint,
			logger.Err(err),
		)
	}
}

func slogLevel(l Level) slog.Level {
	switch l {
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
