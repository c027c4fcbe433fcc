// Package api provides the hearth HTTP API: the chat stream, notes, household
// collections and diagnostics.
package api

import (
	"net/http"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/notes"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	Orchestrator *chat.Orchestrator
	Notes        *notes.Service
	Retriever    NoteRetriever

	// History backs the conversation endpoint. Defaults to a loader over
	// the server's store.
	History *chat.HistoryLoader

	Diagnostics diagnostics.Sink

	// MCPHandler is mounted under /mcp when set.
	MCPHandler http.Handler
}
