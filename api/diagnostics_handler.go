package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/hearth/pkg/diagnostics"
	"github.com/papercomputeco/hearth/pkg/logger"
	"github.com/papercomputeco/hearth/pkg/storage"
)

const (
	defaultAggregateLimit = 100
	clientCategory        = "client"
)

// handleListDiagnostics handles GET /v1/diagnostics.
func (s *Server) handleListDiagnostics(c *fiber.Ctx) error {
	limit, err := queryLimit(c, "limit", defaultAggregateLimit)
	if err != nil {
		return errorJSON(c, fiber.StatusBadRequest, err.Error())
	}

	aggs, err := s.store.ListErrorAggregates(c.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list diagnostics", logger.Err(err))
		return errorJSON(c, fiber.StatusInternalServerError, "failed to list diagnostics")
	}
	if aggs == nil {
		aggs = []*storage.ErrorAggregate{}
	}

	return c.JSON(fiber.Map{
		"count":      len(aggs),
		"aggregates": aggs,
	})
}

// handleReportDiagnostic handles POST /v1/diagnostics, where clients report
// their own failures. Reports are always recorded with client scope.
func (s *Server) handleReportDiagnostic(c *fiber.Ctx) error {
	var rec diagnostics.Record
	if err := c.BodyParser(&rec); err != nil {
		return errorJSON(c, fiber.StatusBadRequest, errInvalidBody.Error())
	}
	if rec.Fingerprint == "" {
		return errorJSON(c, fiber.StatusBadRequest, "fingerprint is required")
	}

	switch rec.Level {
	case diagnostics.LevelInfo, diagnostics.LevelWarning, diagnostics.LevelError, diagnostics.LevelCritical:
	default:
		rec.Level = diagnostics.LevelError
	}
	if rec.Category == "" {
		rec.Category = clientCategory
	}
	rec.Scope = diagnostics.ScopeClient

	s.diag.Record(c.Context(), rec)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": true})
}
