package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/llm"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
)

const defaultItemLimit = 50

// ConversationResponse is the body returned by the conversation endpoint.
type ConversationResponse struct {
	HouseholdID string        `json:"household_id"`
	Messages    []llm.Message `json:"messages"`
	Count       int           `json:"count"`
}

// handleConversation handles GET /v1/households/:household/conversation.
func (s *Server) handleConversation(c *fiber.Ctx) error {
	household := c.Params("household")

	limit, err := queryLimit(c, "limit", chat.DefaultHistoryLimit)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	msgs := s.config.History.Load(c.Context(), household, limit)
	if msgs == nil {
		msgs = []llm.Message{}
	}

	return c.JSON(ConversationResponse{
		HouseholdID: household,
		Messages:    msgs,
		Count:       len(msgs),
	})
}

// handleListItems handles GET /v1/households/:household/:collection.
func (s *Server) handleListItems(c *fiber.Ctx) error {
	collection, err := storage.ParseCollection(c.Params("collection"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}

	limit, err := queryLimit(c, "limit", defaultItemLimit)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	household := c.Params("household")
	items, err := s.store.ListItems(c.Context(), collection, household, limit)
	if err != nil {
		s.logger.Error("failed to list items",
			"collection", string(collection),
			"household_id", household,
			logger.Err(err),
		)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list "+string(collection))
	}
	if items == nil {
		items = []*storage.Item{}
	}

	return c.JSON(fiber.Map{
		"count": len(items),
		"items": items,
	})
}

// handleCreateItem handles POST /v1/households/:household/:collection.
func (s *Server) handleCreateItem(c *fiber.Ctx) error {
	collection, err := storage.ParseCollection(c.Params("collection"))
	if err != nil {
		return errorJSON(c, fiber.StatusNotFound, err.Error())
	}

	var item storage.Item
	if err := c.BodyParser(&item); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, errInvalidBody.Error())
	}
	if strings.TrimSpace(item.Title) == "" {
		return errorJSON(c, fiber.StatusBadRequest, "title is required")
	}

	// The path decides the household; ids and timestamps are assigned here.
	item.HouseholdID = c.Params("household")
	item.ID = ""
	item.CreatedAt = time.Time{}

	if err := s.store.InsertItem(c.Context(), collection, &item); err != nil {
		s.logger.Error("failed to create item",
			"collection", string(collection),
			"household_id", item.HouseholdID,
			logger.Err(err),
		)
		return errorJSON(c, fiber.StatusInternalServerError, "failed to create item")
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}
