package api

import (
	"context"
	"errors"
	"log/slog"
	"net"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/storage"
)

// NoteRetriever searches household notes. *memory.Retriever implements it.
type NoteRetriever interface {
	RetrieveN(ctx context.Context, householdID, query string, limit int) []*storage.Note
}

// Server is the hearth API server.
type Server struct {
	config Config
	store  storage.Driver
	diag   diagnostics.Sink
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The store is shared with the
// orchestrator and the notes service.
func NewServer(config Config, store storage.Driver, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if config.Orchestrator == nil {
		return nil, errors.New("chat orchestrator is required")
	}
	if config.Notes == nil {
		return nil, errors.New("notes service is required")
	}
	if config.Retriever == nil {
		return nil, errors.New("note retriever is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.Diagnostics == nil {
		config.Diagnostics = diagnostics.Nop()
	}
	if config.History == nil {
		config.History = chat.NewHistoryLoader(store, config.Diagnostics, logger)
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		store:  store,
		diag:   config.Diagnostics,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	app.Get("/v1/chat/stream", s.handleChatStream)
	app.Post("/v1/chat/stream", s.handleChatStream)
	app.Post("/v1/chat", s.handleChat)

	app.Post("/v1/notes", s.handleAddNote)
	app.Get("/v1/notes/search", s.handleSearchNotes)
	app.Post("/v1/notes/:id/vectorize", s.handleVectorizeNote)

	app.Get("/v1/households/:household/conversation", s.handleConversation)
	app.Get("/v1/households/:household/:collection", s.handleListItems)
	app.Post("/v1/households/:household/:collection", s.handleCreateItem)

	app.Get("/v1/diagnostics", s.handleListDiagnostics)
	app.Post("/v1/diagnostics", s.handleReportDiagnostic)

	if config.MCPHandler != nil {
		app.All("/mcp", adaptor.HTTPHandler(config.MCPHandler))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the API server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting API server",
		"listen", listener.Addr().String(),
	)
	return s.app.Listener(listener)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
