package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/papercomputeco/hearth/api"
	"github.com/papercomputeco/hearth/api/mcp"
	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/config"
	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/dotdir"
	"github.com/papercomputeco/hearth/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/hearth/pkg/embeddings/utils"
	"github.com/papercomputeco/hearth/pkg/eventstream"
	eventstreamutils "github.com/papercomputeco/hearth/pkg/eventstream/utils"
	"github.com/papercomputeco/hearth/pkg/llm"
	"github.com/papercomputeco/hearth/pkg/llm/provider/ollama"
	"github.com/papercomputeco/hearth/pkg/llm/provider/openai"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/memory"
	"github.com/papercomputeco/hearth/pkg/notes"
	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/storage/sqlstore"
	"github.com/papercomputeco/hearth/pkg/vector"
	vectorutils "github.com/papercomputeco/hearth/pkg/vector/utils"
	"github.com/papercomputeco/hearth/pkg/worker"
)

// Services holds every long-lived component behind the API server.
type Services struct {
	Store        storage.Driver
	Diagnostics  diagnostics.Sink
	Pool         *worker.Pool
	Embedder     embeddings.Embedder
	Vectors      vector.Driver
	Notes        *notes.Service
	Retriever    *memory.Retriever
	Provider     llm.Provider
	Publisher    eventstream.Publisher
	Orchestrator *chat.Orchestrator
	MCP          *mcp.Server

	logger  *slog.Logger
	closers []func() error
}

// Build wires the services described by cfg. A missing completion
// provider key is not fatal: it is recorded as a critical diagnostic and
// chat requests are answered with 503.
func Build(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (_ *Services, err error) {
	if log == nil {
		log = logger.Nop()
	}
	svc := &Services{logger: log}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()

	svc.Store, err = openStore(ctx, cfg, configDir, log)
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, svc.Store.Close)

	svc.Diagnostics = diagnostics.NewStoreSink(svc.Store, log)

	svc.Pool, err = worker.NewPool(worker.Config{
		NumWorkers: cfg.Worker.NumWorkers,
		QueueSize:  cfg.Worker.QueueSize,
		Logger:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}

	if err := svc.buildSemantic(ctx, cfg, configDir); err != nil {
		return nil, err
	}

	noteConfig := notes.Config{
		Store:       svc.Store,
		Pool:        svc.Pool,
		Diagnostics: svc.Diagnostics,
		Logger:      log,
	}
	if svc.Embedder != nil && svc.Vectors != nil {
		noteConfig.Embedder = svc.Embedder
		noteConfig.Vectors = svc.Vectors
	}
	svc.Notes, err = notes.NewService(noteConfig)
	if err != nil {
		return nil, fmt.Errorf("creating notes service: %w", err)
	}

	svc.Retriever, err = memory.NewRetriever(memory.RetrieverConfig{
		Notes:       svc.Notes,
		Limit:       int(cfg.Chat.NoteLimit),
		Diagnostics: svc.Diagnostics,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating note retriever: %w", err)
	}

	svc.Provider = svc.buildProvider(ctx, cfg)

	var extractor chat.ExtractionJobs
	if svc.Provider != nil {
		e, err := memory.NewExtractor(memory.ExtractorConfig{
			Provider:    svc.Provider,
			Notes:       svc.Notes,
			Model:       cfg.LLM.ExtractionModel,
			Diagnostics: svc.Diagnostics,
			Logger:      log,
		})
		if err != nil {
			return nil, fmt.Errorf("creating memory extractor: %w", err)
		}
		extractor = e
	}

	svc.Publisher, err = eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		ProviderType: cfg.EventStream.Provider,
		Brokers:      cfg.EventStream.Brokers,
		Topic:        cfg.EventStream.Topic,
		Logger:       log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}
	svc.closers = append(svc.closers, svc.Publisher.Close)

	location, err := cfg.Chat.Location()
	if err != nil {
		return nil, err
	}

	temperature := cfg.LLM.Temperature
	svc.Orchestrator, err = chat.NewOrchestrator(chat.Config{
		Provider:          svc.Provider,
		Notes:             svc.Retriever,
		Turns:             svc.Store,
		Extractor:         extractor,
		Pool:              svc.Pool,
		Publisher:         svc.Publisher,
		Model:             cfg.LLM.Model,
		Temperature:       &temperature,
		MaxTokens:         int(cfg.LLM.MaxTokens),
		HistoryLimit:      int(cfg.Chat.HistoryLimit),
		HeartbeatInterval: time.Duration(cfg.Chat.HeartbeatSeconds) * time.Second,
		Location:          location,
		Diagnostics:       svc.Diagnostics,
		Logger:            log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating chat orchestrator: %w", err)
	}

	svc.MCP, err = mcp.NewServer(mcp.Config{
		Retriever: svc.Retriever,
		Notes:     svc.Notes,
		Logger:    log,
	})
	if err != nil {
		return nil, fmt.Errorf("creating MCP server: %w", err)
	}

	return svc, nil
}

// APIConfig returns the API server configuration for these services.
func (s *Services) APIConfig(listen string) api.Config {
	return api.Config{
		ListenAddr:   listen,
		Orchestrator: s.Orchestrator,
		Notes:        s.Notes,
		Retriever:    s.Retriever,
		Diagnostics:  s.Diagnostics,
		MCPHandler:   s.MCP.Handler(),
	}
}

// Close drains the worker pool, then releases resources in reverse order
// of creation.
func (s *Services) Close() error {
	if s.Pool != nil {
		s.Pool.Close()
		s.Pool = nil
	}

	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg *config.Config, configDir string, log *slog.Logger) (storage.Driver, error) {
	if cfg.Storage.PostgresDSN != "" {
		store, err := sqlstore.NewPostgres(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL store: %w", err)
		}
		log.Info("using PostgreSQL storage")
		return store, nil
	}

	path, err := sqlitePath(cfg, configDir)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.NewSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite store: %w", err)
	}
	log.Info("using SQLite storage", "path", path)
	return store, nil
}

func sqlitePath(cfg *config.Config, configDir string) (string, error) {
	if cfg.Storage.SQLitePath != "" {
		return cfg.Storage.SQLitePath, nil
	}
	path, err := dotdir.NewManager().SQLitePath(configDir)
	if err != nil {
		return "", fmt.Errorf("resolving SQLite path: %w", err)
	}
	return path, nil
}

// buildSemantic sets up the embedder and vector store. Semantic search is
// optional: a provider that cannot be built leaves both unset and notes
// are found by keyword only.
func (s *Services) buildSemantic(ctx context.Context, cfg *config.Config, configDir string) error {
	if cfg.Embedding.Provider == "none" || cfg.VectorStore.Provider == "none" {
		s.logger.Info("semantic note search disabled")
		return nil
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       cfg.LLM.APIKey,
		Dimensions:   cfg.Embedding.Dimensions,
	})
	if err != nil {
		s.logger.Warn("embedder unavailable, semantic note search disabled", logger.Err(err))
		return nil
	}
	if embedder == nil {
		return nil
	}

	target := cfg.VectorStore.Target
	if target == "" && cfg.VectorStore.Provider == "sqlite" {
		target, err = sqlitePath(cfg, configDir)
		if err != nil {
			embedder.Close()
			return err
		}
	}

	vectors, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       target,
		Dimensions:   cfg.Embedding.Dimensions,
		Logger:       s.logger,
	})
	if err != nil {
		embedder.Close()
		return fmt.Errorf("creating vector store: %w", err)
	}
	if vectors == nil {
		embedder.Close()
		return nil
	}

	s.Embedder = embedder
	s.Vectors = vectors
	s.closers = append(s.closers, embedder.Close, vectors.Close)

	s.logger.Info("semantic note search enabled",
		"embedding_provider", cfg.Embedding.Provider,
		"vector_store", cfg.VectorStore.Provider,
	)
	return nil
}

// buildProvider returns nil when no provider can be built.
func (s *Services) buildProvider(ctx context.Context, cfg *config.Config) llm.Provider {
	switch cfg.LLM.Provider {
	case "ollama":
		return ollama.New(ollama.Config{BaseURL: cfg.LLM.BaseURL})
	case "openai":
	default:
		s.logger.Error("unsupported completion provider", "provider", cfg.LLM.Provider)
		s.Diagnostics.Record(ctx, diagnostics.FromError(
			diagnostics.ProviderUnavailable,
			diagnostics.LevelCritical,
			"ai_chat_stream",
			diagnostics.ScopeEdgeFunction,
			fmt.Errorf("%w: unsupported provider %q", llm.ErrProviderUnavailable, cfg.LLM.Provider),
		))
		return nil
	}

	p, err := openai.New(openai.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
	})
	if err != nil {
		s.logger.Error("completion provider unavailable, chat requests will fail", logger.Err(err))
		s.Diagnostics.Record(ctx, diagnostics.FromError(
			diagnostics.OpenAIKeyMissing,
			diagnostics.LevelCritical,
			"ai_chat_stream",
			diagnostics.ScopeEdgeFunction,
			err,
		))
		return nil
	}
	return p
}
