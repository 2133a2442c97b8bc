package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"facewatch/internal/database"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store database.Store
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(store database.Store) *HealthHandler {
	return &HealthHandler{store: store}
}

// Handle responds with server health status. It has no dependencies and
// never fails: the backend name is informational, not a liveness probe.
func (h *HealthHandler) Handle(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"ok":        true,
		"backend":   h.store.Backend(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
