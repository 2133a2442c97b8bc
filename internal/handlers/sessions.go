package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"facewatch/internal/database"
	"facewatch/internal/models"
	"facewatch/internal/services"
)

// SessionHandler handles session creation and listing
type SessionHandler struct {
	store database.Store
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(store database.Store) *SessionHandler {
	return &SessionHandler{store: store}
}

// Create creates a session grouping tag. Name and meta are both optional.
// POST /sessions
func (h *SessionHandler) Create(c *fiber.Ctx) error {
	var req models.CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	id, err := h.store.AddSession(c.Context(), req.Name, req.Meta)
	if err != nil {
		log.Printf("❌ Failed to create session: %v", err)
		if m := services.GetMetrics(); m != nil {
			m.StorageWriteFailures.WithLabelValues(h.store.Backend(), "add_session").Inc()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	return c.JSON(fiber.Map{"ok": true, "id": id})
}

// List returns all sessions, newest-first
// GET /sessions
func (h *SessionHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.store.GetSessions(c.Context()))
}
