package database

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"

	"facewatch/internal/models"
)

// ErrNotFound is returned by lookups when no record matches the key.
var ErrNotFound = errors.New("record not found")

// EventFilter narrows GetEvents results. Nil fields are ignored; provided
// fields are combined with logical AND and matched exactly.
type EventFilter struct {
	FaceLabel *string
	SessionID *int64
	Limit     int // default 500 when <= 0
}

// Store is the uniform persistence surface over the four collections.
// Callers never know which backend is active. All read operations degrade
// to an empty result on storage error so ingestion stays available even
// when a particular read transiently fails.
type Store interface {
	GetFaces(ctx context.Context) []models.Face
	AddFace(ctx context.Context, label string, descriptor []float64) (int64, error)

	InsertEvent(ctx context.Context, ev models.Event) (int64, error)
	GetEvents(ctx context.Context, filter EventFilter) []models.Event

	GetStudentHistory(ctx context.Context, email string) (*models.StudentRecord, error)
	SetStudentHistory(ctx context.Context, email, name string, history map[string]any) error

	AddSession(ctx context.Context, name *string, meta map[string]any) (int64, error)
	GetSessions(ctx context.Context) []models.Session

	// ClearAll destructively resets all four collections. Dev-only.
	ClearAll(ctx context.Context) error

	Ping(ctx context.Context) error
	Backend() string
	Close(ctx context.Context) error
}

// Open selects the storage backend exactly once at process start. A valid
// managed-store credential selects MongoDB; anything else (absent credential,
// unreadable credential file, unreachable server) falls back to the local
// JSON file store. Backend selection failures are never fatal.
func Open(credential, dataFile string) Store {
	if uri := resolveCredential(credential); uri != "" {
		store, err := NewMongoStore(uri)
		if err != nil {
			log.Printf("⚠️  MongoDB unavailable, falling back to local file store: %v", err)
		} else {
			log.Printf("✅ Storage backend: mongodb")
			return store
		}
	}
	log.Printf("✅ Storage backend: local file (%s)", dataFile)
	return NewFileStore(dataFile)
}

// resolveCredential turns the MONGODB_URI value into a connection URI.
// An inline mongodb:// or mongodb+srv:// value wins; any other non-empty
// value is treated as a path to a file containing the URI. Malformed
// content disables the managed backend instead of crashing.
func resolveCredential(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "mongodb://") || strings.HasPrefix(value, "mongodb+srv://") {
		return value
	}

	data, err := os.ReadFile(value)
	if err != nil {
		log.Printf("⚠️  Storage credential file %q unreadable: %v (using local file store)", value, err)
		return ""
	}
	uri := strings.TrimSpace(string(data))
	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		log.Printf("⚠️  Storage credential file %q does not contain a MongoDB URI (using local file store)", value)
		return ""
	}
	return uri
}
