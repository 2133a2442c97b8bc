package handlers

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"facewatch/internal/database"
	"facewatch/internal/models"
	"facewatch/internal/services"
)

// FaceHandler handles face enrollment and listing
type FaceHandler struct {
	store database.Store
}

// NewFaceHandler creates a new face handler
func NewFaceHandler(store database.Store) *FaceHandler {
	return &FaceHandler{store: store}
}

// List returns all enrolled face records, newest-first
// GET /faces
func (h *FaceHandler) List(c *fiber.Ctx) error {
	return c.JSON(h.store.GetFaces(c.Context()))
}

// Enroll creates a new face record. Unlike event ingestion, enrollment is
// strict: a missing label or descriptor is rejected with no side effect.
// POST /faces
func (h *FaceHandler) Enroll(c *fiber.Ctx) error {
	var req models.EnrollFaceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Label == "" || len(req.Descriptor) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "label and descriptor are required",
		})
	}

	id, err := h.store.AddFace(c.Context(), req.Label, req.Descriptor)
	if err != nil {
		log.Printf("❌ Failed to enroll face %q: %v", req.Label, err)
		if m := services.GetMetrics(); m != nil {
			m.StorageWriteFailures.WithLabelValues(h.store.Backend(), "add_face").Inc()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to enroll face",
		})
	}

	if m := services.GetMetrics(); m != nil {
		m.FacesEnrolled.Inc()
	}
	log.Printf("✅ Enrolled face %q (id %d, %d-dim descriptor)", req.Label, id, len(req.Descriptor))
	return c.JSON(fiber.Map{"ok": true, "id": id})
}
