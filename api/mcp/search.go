package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/hearth/pkg/logger"
)

var (
	searchToolName    = "notes_search"
	searchDescription = "Search a household's notes (facts, preferences, observations, rules). Uses semantic search and falls back to keyword search. Returns the most relevant notes first."
)

// SearchInput represents the input arguments for the notes_search tool.
type SearchInput struct {
	HouseholdID string `json:"household_id" jsonschema:"the household whose notes to search"`
	Query       string `json:"query" jsonschema:"the search query text"`
	Limit       int    `json:"limit,omitempty" jsonschema:"number of notes to return (default: 5)"`
}

// NoteResult is a single matching note.
type NoteResult struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// SearchOutput represents the output of the notes_search tool.
type SearchOutput struct {
	Query string       `json:"query"`
	Notes []NoteResult `json:"notes"`
	Count int          `json:"count"`
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.HouseholdID == "" || input.Query == "" {
		return toolError("household_id and query are required"), SearchOutput{}, nil
	}

	s.config.Logger.Debug("MCP notes search",
		"household_id", input.HouseholdID,
		"query", input.Query,
		"limit", input.Limit,
	)

	found := s.config.Retriever.RetrieveN(ctx, input.HouseholdID, input.Query, input.Limit)

	output := SearchOutput{
		Query: input.Query,
		Notes: make([]NoteResult, 0, len(found)),
	}
	for _, n := range found {
		output.Notes = append(output.Notes, NoteResult{
			ID:        n.ID,
			Content:   n.Content,
			Kind:      string(n.Kind),
			CreatedAt: n.CreatedAt,
		})
	}
	output.Count = len(output.Notes)

	// Structured output is mirrored as JSON text for clients that only
	// read text content.
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal search output", logger.Err(err))
		return toolError(fmt.Sprintf("Failed to serialize results: %v", err)), SearchOutput{}, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(jsonBytes)}},
	}, output, nil
}
