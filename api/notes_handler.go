package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/memory"
	"github.com/papercomputeco/hearth/pkg/notes"
	"github.com/papercomputeco/hearth/pkg/storage"
)

// addNoteRequest is the body of POST /v1/notes.
type addNoteRequest struct {
	HouseholdID string         `json:"household_id"`
	Content     string         `json:"content"`
	Kind        string         `json:"kind"`
	Tags        []string       `json:"tags"`
	Source      map[string]any `json:"source"`
}

// NoteSummary is the note echoed back after an add.
type NoteSummary struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AddNoteResponse is the body returned by POST /v1/notes.
type AddNoteResponse struct {
	Success bool        `json:"success"`
	Note    NoteSummary `json:"note"`
	Message string      `json:"message"`
}

// NoteSearchResponse is the body returned by GET /v1/notes/search.
type NoteSearchResponse struct {
	Query string          `json:"query"`
	Notes []*storage.Note `json:"notes"`
	Count int             `json:"count"`
}

// handleAddNote handles POST /v1/notes.
func (s *Server) handleAddNote(c *fiber.Ctx) error {
	var body addNoteRequest
	if err := c.BodyParser(&body); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, errInvalidBody.Error())
	}

	note, err := s.config.Notes.Add(c.Context(), &storage.Note{
		HouseholdID: body.HouseholdID,
		Content:     body.Content,
		Kind:        storage.Kind(body.Kind),
		Tags:        body.Tags,
		Source:      body.Source,
	})
	if errors.Is(err, notes.ErrInvalidNote) {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}
	if err != nil {
		s.logger.Error("failed to add note", "household_id", body.HouseholdID, logger.Err(err))
		return errorJSON(c, fiber.StatusInternalServerError, "failed to add note")
	}

	return c.JSON(AddNoteResponse{
		Success: true,
		Note: NoteSummary{
			ID:        note.ID,
			Content:   note.Content,
			CreatedAt: note.CreatedAt,
		},
		Message: "Note added",
	})
}

// handleVectorizeNote handles POST /v1/notes/:id/vectorize.
func (s *Server) handleVectorizeNote(c *fiber.Ctx) error {
	id := c.Params("id")

	err := s.config.Notes.Vectorize(c.Context(), id)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"success": true, "id": id})
	case errors.Is(err, storage.ErrNotFound):
		return errorJSON(c, fiber.StatusNotFound, "note not found")
	case errors.Is(err, notes.ErrSemanticUnavailable):
		return errorJSON(c, fiber.StatusServiceUnavailable, err.Error())
	default:
		return errorJSON(c, fiber.StatusInternalServerError, "failed to vectorize note")
	}
}

// handleSearchNotes handles GET /v1/notes/search.
// Query parameters:
//   - q (required): the search text
//   - household_id (required)
//   - limit (optional, default 5)
func (s *Server) handleSearchNotes(c *fiber.Ctx) error {
	query := c.Query("q")
	household := c.Query("household_id")
	if query == "" || household == "" {
		return errorJSON(c, fiber.StatusBadRequest, "q and household_id are required")
	}

	limit, err := queryLimit(c, "limit", memory.DefaultNoteLimit)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	found := s.config.Retriever.RetrieveN(c.Context(), household, query, limit)
	if found == nil {
		found = []*storage.Note{}
	}

	return c.JSON(NoteSearchResponse{
		Query: query,
		Notes: found,
		Count: len(found),
	})
}
