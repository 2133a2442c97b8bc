package models

// Face is one enrolled face sample. Labels are not unique: enrolling the same
// person several times produces several records sharing a label.
type Face struct {
	ID         int64     `json:"id" bson:"id"`
	Label      string    `json:"label" bson:"label"`
	Descriptor []float64 `json:"descriptor" bson:"descriptor"`
	CreatedAt  string    `json:"created_at" bson:"createdAt"`
}

// Event is one accepted classification event. Append-only; the stored
// timestamp (not arrival order) is the source of truth for ordering.
type Event struct {
	ID         int64   `json:"id" bson:"id"`
	FaceLabel  *string `json:"face_label" bson:"faceLabel"`
	Emotion    *string `json:"emotion" bson:"emotion"`
	Confidence float64 `json:"confidence" bson:"confidence"`
	Delta      int     `json:"delta" bson:"delta"`
	SessionID  *int64  `json:"session_id" bson:"sessionId"`
	Timestamp  string  `json:"timestamp" bson:"timestamp"`
}

// Session is a logical grouping tag for events, used only as a query filter.
type Session struct {
	ID        int64          `json:"id" bson:"id"`
	Name      *string        `json:"name" bson:"name"`
	Meta      map[string]any `json:"meta" bson:"meta"`
	CreatedAt string         `json:"created_at" bson:"createdAt"`
}

// StudentRecord is keyed by email and replaced wholesale on write.
type StudentRecord struct {
	Email   string         `json:"email" bson:"email"`
	Name    string         `json:"name" bson:"name"`
	History map[string]any `json:"history" bson:"history"`
}

// EnrollFaceRequest is the POST /faces payload. Both fields are required.
type EnrollFaceRequest struct {
	Label      string    `json:"label"`
	Descriptor []float64 `json:"descriptor"`
}

// PostEventRequest is the POST /events payload. Every field is optional:
// the event producer must never be blocked by server-side validation, so
// absent fields are defaulted rather than rejected.
type PostEventRequest struct {
	FaceLabel  *string  `json:"face_label"`
	Emotion    *string  `json:"emotion"`
	Confidence *float64 `json:"confidence"`
	Delta      *int     `json:"delta"`
	SessionID  *int64   `json:"session_id"`
	Timestamp  *string  `json:"timestamp"`
}

// CreateSessionRequest is the POST /sessions payload.
type CreateSessionRequest struct {
	Name *string        `json:"name"`
	Meta map[string]any `json:"meta"`
}

// SetHistoryRequest is the POST /students/:email/history payload.
type SetHistoryRequest struct {
	Name    *string        `json:"name"`
	History map[string]any `json:"history"`
}

// LabelStats is a per-identity aggregate derived from the event log.
type LabelStats struct {
	Label      string         `json:"label"`
	Score      int            `json:"score"`
	Detections int            `json:"detections"`
	Emotions   map[string]int `json:"emotions"`
	LastSeen   string         `json:"last_seen"`
}
