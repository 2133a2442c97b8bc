package handlers

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"facewatch/internal/database"
	"facewatch/internal/models"
	"facewatch/internal/services"
)

// maxEventListLimit caps how many records a single list call can return.
const maxEventListLimit = 1000

// EventHandler handles telemetry event ingestion and queries
type EventHandler struct {
	store database.Store
}

// NewEventHandler creates a new event handler
func NewEventHandler(store database.Store) *EventHandler {
	return &EventHandler{store: store}
}

// Ingest accepts one telemetry event. Every field is optional: absent fields
// are defaulted (null label/emotion, zero confidence/delta, current time)
// rather than rejected, so the producer is never blocked by validation.
// POST /events
func (h *EventHandler) Ingest(c *fiber.Ctx) error {
	var req models.PostEventRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}
	}

	ev := models.Event{
		FaceLabel: req.FaceLabel,
		Emotion:   req.Emotion,
		SessionID: req.SessionID,
	}
	if req.Confidence != nil {
		ev.Confidence = *req.Confidence
	}
	if req.Delta != nil {
		ev.Delta = *req.Delta
	}
	if req.Timestamp != nil && *req.Timestamp != "" {
		ev.Timestamp = *req.Timestamp
	}

	start := time.Now()
	id, err := h.store.InsertEvent(c.Context(), ev)
	if err != nil {
		log.Printf("❌ Failed to insert event: %v", err)
		if m := services.GetMetrics(); m != nil {
			m.StorageWriteFailures.WithLabelValues(h.store.Backend(), "insert_event").Inc()
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to store event",
		})
	}

	if m := services.GetMetrics(); m != nil {
		emotion := "none"
		if ev.Emotion != nil && *ev.Emotion != "" {
			emotion = *ev.Emotion
		}
		m.EventsIngested.WithLabelValues(emotion).Inc()
		m.EventInsertLatency.Observe(time.Since(start).Seconds())
	}
	return c.JSON(fiber.Map{"ok": true, "id": id})
}

// List returns up to 1000 events newest-first, optionally filtered by
// exact face_label and/or session_id match (logical AND).
// GET /events?face_label=&session_id=&limit=
func (h *EventHandler) List(c *fiber.Ctx) error {
	filter := database.EventFilter{Limit: maxEventListLimit}

	if label := c.Query("face_label"); label != "" {
		filter.FaceLabel = &label
	}
	if raw := c.Query("session_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.SessionID = &id
		}
	}
	if limit := c.QueryInt("limit", maxEventListLimit); limit > 0 && limit < maxEventListLimit {
		filter.Limit = limit
	}

	return c.JSON(h.store.GetEvents(c.Context(), filter))
}
