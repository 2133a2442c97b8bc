package handlers

import (
	"github.com/gofiber/fiber/v2"

	"facewatch/internal/services"
)

// StatsHandler serves the derived per-identity aggregates
type StatsHandler struct {
	stats *services.StatsService
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(stats *services.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Summary returns per-label score, detection count and emotion histogram
// derived from the persisted event log.
// GET /stats
func (h *StatsHandler) Summary(c *fiber.Ctx) error {
	return c.JSON(h.stats.Summary(c.Context()))
}
