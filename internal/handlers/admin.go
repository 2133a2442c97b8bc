package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"facewatch/internal/database"
	"facewatch/internal/services"
)

// AdminHandler handles the development-only admin surface
type AdminHandler struct {
	store database.Store
	stats *services.StatsService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(store database.Store, stats *services.StatsService) *AdminHandler {
	return &AdminHandler{store: store, stats: stats}
}

// Clear unconditionally wipes all collections. Development use only: no
// confirmation, no audit trail, not production-safe. On the managed backend
// collections are cleared independently, so a failure can leave a partial
// wipe; that is reported, not hidden.
// POST /_admin/clear
func (h *AdminHandler) Clear(c *fiber.Ctx) error {
	if err := h.store.ClearAll(c.Context()); err != nil {
		log.Printf("❌ Admin clear incomplete: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Clear incomplete, some collections may remain",
		})
	}

	if h.stats != nil {
		h.stats.Invalidate()
	}
	log.Printf("🗑️  Admin clear: all collections wiped (%s backend)", h.store.Backend())
	return c.JSON(fiber.Map{"ok": true})
}
