package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/llm"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
	"github.com/papercomputeco/hearth/pkg/worker"
)

// DefaultExtractionModel is a cheaper model used to distill facts.
const DefaultExtractionModel = "gpt-3.5-turbo"

// ExtractionPrompt is the system prompt for fact extraction.
const ExtractionPrompt = "Extract factual information from this conversation that would be useful to remember. " +
	"Return a JSON object with a 'facts' array; each fact has 'content' and 'kind' properties. " +
	"Kind should be one of: fact, preference, observation, rule. " +
	"If there are no clear facts, return an empty 'facts' array."

// SourceConversation is the provenance stored on extracted notes.
const SourceConversation = "conversation"

const extractionJob = "memory_extraction"

// NoteAdder stores a note. *notes.Service implements it.
type NoteAdder interface {
	Add(ctx context.Context, note *storage.Note) (*storage.Note, error)
}

// Fact is one extracted fact as returned by the model.
type Fact struct {
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

type extraction struct {
	Facts []Fact `json:"facts"`
}

// ExtractorConfig configures an Extractor.
type ExtractorConfig struct {
	Provider    llm.Provider
	Notes       NoteAdder
	Model       string
	Diagnostics diagnostics.Sink
	Logger      *slog.Logger
}

// Extractor distills a completed exchange into notes.
type Extractor struct {
	provider llm.Provider
	notes    NoteAdder
	model    string
	diag     diagnostics.Sink
	logger   *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(c ExtractorConfig) (*Extractor, error) {
	if c.Provider == nil {
		return nil, errors.New("extractor requires a completion provider")
	}
	if c.Notes == nil {
		return nil, errors.New("extractor requires a note store")
	}
	if c.Model == "" {
		c.Model = DefaultExtractionModel
	}
	if c.Diagnostics == nil {
		c.Diagnostics = diagnostics.Nop()
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	return &Extractor{
		provider: c.Provider,
		notes:    c.Notes,
		model:    c.Model,
		diag:     c.Diagnostics,
		logger:   c.Logger,
	}, nil
}

// Extract asks the model for facts in the exchange and stores each as a
// note. It returns how many notes were written. Every failure is recorded
// as a memory_extraction_error warning before being returned; callers only
// log it.
func (e *Extractor) Extract(ctx context.Context, householdID, userMessage, assistantResponse string) (int, error) {
	n, err := e.extract(ctx, householdID, userMessage, assistantResponse)
	if err != nil {
		e.diag.Record(ctx, diagnostics.FromError(
			diagnostics.MemoryExtractionError,
			diagnostics.LevelWarning,
			category,
			diagnostics.ScopeIntegration,
			fmt.Errorf("failed to extract memories: %w", err),
		))
		return n, err
	}

	if n > 0 {
		e.logger.Info("stored memories from conversation", "household_id", householdID, "count", n)
	}
	return n, nil
}

// Job wraps Extract for the worker pool.
func (e *Extractor) Job(householdID, userMessage, assistantResponse string) worker.Job {
	return worker.Job{
		Name:        extractionJob,
		HouseholdID: householdID,
		Run: func(ctx context.Context) error {
			_, err := e.Extract(ctx, householdID, userMessage, assistantResponse)
			return err
		},
	}
}

func (e *Extractor) extract(ctx context.Context, householdID, userMessage, assistantResponse string) (int, error) {
	resp, err := e.provider.Complete(ctx, &llm.CompletionRequest{
		Model: e.model,
		Messages: []llm.Message{
			llm.NewMessage(llm.RoleSystem, ExtractionPrompt),
			llm.NewMessage(llm.RoleUser, "User: "+userMessage+"\n\nAssistant: "+assistantResponse),
		},
		JSONObject: true,
	})
	if err != nil {
		return 0, err
	}

	facts, err := ParseFacts(resp.Content)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, f := range facts {
		content := strings.TrimSpace(f.Content)
		if content == "" {
			continue
		}

		_, err := e.notes.Add(ctx, &storage.Note{
			HouseholdID: householdID,
			Content:     content,
			Kind:        storage.ParseKind(f.Kind),
			Source:      map[string]any{"derived_from": SourceConversation},
		})
		if err != nil {
			return stored, fmt.Errorf("storing fact %d of %d: %w", stored+1, len(facts), err)
		}
		stored++
	}

	return stored, nil
}

// ParseFacts decodes a {"facts": [...]} object. Empty content and a missing
// facts key both mean no facts. Anything that is not a JSON object is an
// error.
func ParseFacts(content string) ([]Fact, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, nil
	}

	// Some models wrap JSON in a markdown fence even in JSON mode.
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(content, "```")
		content = strings.TrimSpace(content)
	}

	var out extraction
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("invalid extraction response: %w", err)
	}
	return out.Facts, nil
}
