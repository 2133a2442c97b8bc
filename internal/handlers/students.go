package handlers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"facewatch/internal/database"
	"facewatch/internal/models"
	"facewatch/internal/services"
)

// StudentHandler handles student history get/set
type StudentHandler struct {
	store database.Store
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(store database.Store) *StudentHandler {
	return &StudentHandler{store: store}
}

// Get returns the history record for an email, or 404 when absent.
// GET /students/:email/history
func (h *StudentHandler) Get(c *fiber.Ctx) error {
	email := c.Params("email")
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email is required",
		})
	}

	rec, err := h.store.GetStudentHistory(c.Context(), email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Student history not found",
			})
		}
		log.Printf("❌ Failed to get student history for %s: %v", email, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to get student history",
		})
	}

	return c.JSON(rec)
}

// Set upserts the history record for an email: replace when present,
// create otherwise.
// POST /students/:email/history
func (h *StudentHandler) Set(c *fiber.Ctx) error {
	email := c.Params("email")
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "email is required",
		})
	}

	var req models.SetHistoryRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	name := ""
	if req.Name != nil {
		name = *req.Name
	}

	if err := h.store.SetStudentHistory(c.Context(), email, name, req.History); err != nil {
		log.Printf("❌ Failed to upsert student history for %s: %v", email, err)
		if m := services.GetMetrics(); m != nil {
			m.StorageWriteFailures.WithLabelValues(h.store.Backend(), "set_student_history").Inc()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save student history",
		})
	}

	return c.JSON(fiber.Map{"ok": true})
}
