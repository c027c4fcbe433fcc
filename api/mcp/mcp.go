// Package mcp exposes household notes to agent clients over the Model
// Context Protocol.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/utils"
)

// NoteRetriever searches notes with semantic-then-keyword fallback.
// *memory.Retriever implements it.
type NoteRetriever interface {
	RetrieveN(ctx context.Context, householdID, query string, limit int) []*storage.Note
}

// NoteAdder stores a note. *notes.Service implements it.
type NoteAdder interface {
	Add(ctx context.Context, note *storage.Note) (*storage.Note, error)
}

type Config struct {
	// Retriever backs the notes_search tool.
	Retriever NoteRetriever

	// Notes backs the notes_add tool.
	Notes NoteAdder

	// Noop for empty MCP server
	Noop bool

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the note tools.
func NewServer(c Config) (*Server, error) {
	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "hearth",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	if !c.Noop {
		if c.Retriever == nil {
			return nil, errors.New("note retriever is required")
		}
		if c.Notes == nil {
			return nil, errors.New("note store is required")
		}
		if c.Logger == nil {
			return nil, errors.New("logger is required")
		}

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        searchToolName,
			Description: searchDescription,
		}, s.handleSearch)

		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        addToolName,
			Description: addDescription,
		}, s.handleAdd)
	}

	s.mcpServer = mcpServer

	// Stateless streamable HTTP handler, mounted by the API server.
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

func toolError(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
