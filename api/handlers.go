package api

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/llm"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// errorJSON writes a JSON error body with the given status.
func errorJSON(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(llm.ErrorResponse{Error: msg})
}

// requestError maps an orchestrator error onto a response. Only rejection
// messages reach the client; anything else is the generic message.
func requestError(c *fiber.Ctx, err error) error {
	var reqErr *chat.RequestError
	if errors.As(err, &reqErr) {
		return errorJSON(c, reqErr.Status, reqErr.Message)
	}
	return errorJSON(c, fiber.StatusInternalServerError, chat.ClientErrorMessage)
}

// queryLimit parses a positive integer query parameter. An absent parameter
// yields def.
func queryLimit(c *fiber.Ctx, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, errors.New(name + " must be a positive integer")
	}
	return n, nil
}
