package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
)

var (
	addToolName    = "notes_add"
	addDescription = "Remember something about a household. Stores a note of kind fact, preference, observation or rule (default fact)."
)

// AddInput represents the input arguments for the notes_add tool.
type AddInput struct {
	HouseholdID string   `json:"household_id" jsonschema:"the household the note belongs to"`
	Content     string   `json:"content" jsonschema:"the text to remember"`
	Kind        string   `json:"kind,omitempty" jsonschema:"one of fact, preference, observation, rule"`
	Tags        []string `json:"tags,omitempty" jsonschema:"optional labels"`
}

// AddOutput represents the output of the notes_add tool.
type AddOutput struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
}

func (s *Server) handleAdd(ctx context.Context, _ *mcp.CallToolRequest, input AddInput) (*mcp.CallToolResult, AddOutput, error) {
	note := &storage.Note{
		HouseholdID: input.HouseholdID,
		Content:     input.Content,
		Tags:        input.Tags,
		Source:      map[string]any{"derived_from": "mcp"},
	}
	if input.Kind != "" {
		note.Kind = storage.ParseKind(input.Kind)
	}

	stored, err := s.config.Notes.Add(ctx, note)
	if err != nil {
		s.config.Logger.Warn("MCP notes add failed", "household_id", input.HouseholdID, logger.Err(err))
		return toolError(fmt.Sprintf("Failed to add note: %v", err)), AddOutput{}, nil
	}

	out := AddOutput{ID: stored.ID, Kind: string(stored.Kind)}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("Stored %s note %s", out.Kind, out.ID)}},
	}, out, nil
}
