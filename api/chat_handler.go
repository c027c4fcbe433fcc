package api

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/hearth/pkg/chat"
	"github.com/papercomputeco/hearth/pkg/logger"
)

// handleChatStream handles GET and POST /v1/chat/stream.
//
// GET reads message, household_id, user_id and history_limit from the query
// and streams SSE frames. POST reads a JSON body and streams NDJSON lines,
// unless the client only accepts text/event-stream.
func (s *Server) handleChatStream(c *fiber.Ctx) error {
	req, format, err := parseStreamRequest(c)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	if err := s.config.Orchestrator.Validate(c.Context(), req); err != nil {
		return requestError(c, err)
	}

	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	// pw.Write blocks until fasthttp hands the chunk to the socket, so a
	// client that went away surfaces as a write error in the emitter.
	pr, pw := io.Pipe()
	go s.streamExchange(req, format, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// streamExchange runs the exchange on its own context: fasthttp recycles
// the request context once the handler returns.
func (s *Server) streamExchange(req chat.Request, format chat.Format, pw *io.PipeWriter) {
	defer pw.Close()

	em := chat.NewStreamEmitter(pw, format)
	if err := s.config.Orchestrator.Stream(context.Background(), req, em); err != nil {
		s.logger.Debug("chat stream rejected",
			"household_id", req.HouseholdID,
			logger.Err(err),
		)
	}
}

func parseStreamRequest(c *fiber.Ctx) (chat.Request, chat.Format, error) {
	var req chat.Request

	if c.Method() == fiber.MethodGet {
		req.Message = c.Query("message")
		req.HouseholdID = c.Query("household_id")
		req.UserID = c.Query("user_id")
		if raw := c.Query("history_limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return req, chat.FormatSSE, errInvalidHistoryLimit
			}
			req.HistoryLimit = &n
		}
		return req, chat.FormatSSE, nil
	}

	if err := c.BodyParser(&req); err != nil {
		return req, chat.FormatNDJSON, errInvalidBody
	}

	accept := c.Get(fiber.HeaderAccept)
	if strings.Contains(accept, chat.ContentTypeSSE) && !strings.Contains(accept, "ndjson") {
		return req, chat.FormatSSE, nil
	}
	return req, chat.FormatNDJSON, nil
}

// chatResponse is the body of a non-streaming chat reply.
type chatResponse struct {
	Response string `json:"response"`
}

// handleChat handles POST /v1/chat.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req chat.Request
	if err := c.BodyParser(&req); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, errInvalidBody.Error())
	}

	reply, err := s.config.Orchestrator.Chat(c.Context(), req)
	if err != nil {
		return requestError(c, err)
	}
	return c.JSON(chatResponse{Response: reply})
}
