package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"facewatch/internal/models"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "telemetry-data.json"))
}

func strPtr(s string) *string { return &s }
func i64Ptr(v int64) *int64   { return &v }

func TestAddFace_MonotonicIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		id, err := store.AddFace(ctx, "Me", []float64{1, 2, 3})
		if err != nil {
			t.Fatalf("AddFace failed: %v", err)
		}
		if id <= last {
			t.Fatalf("Expected strictly increasing ids, got %d after %d", id, last)
		}
		last = id
	}
}

func TestIDs_IndependentPerCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	faceID, err := store.AddFace(ctx, "a", []float64{1})
	if err != nil {
		t.Fatalf("AddFace failed: %v", err)
	}
	eventID, err := store.InsertEvent(ctx, models.Event{})
	if err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	sessionID, err := store.AddSession(ctx, nil, nil)
	if err != nil {
		t.Fatalf("AddSession failed: %v", err)
	}

	if faceID != 1 || eventID != 1 || sessionID != 1 {
		t.Fatalf("Expected each counter to start at 1, got face=%d event=%d session=%d",
			faceID, eventID, sessionID)
	}
}

func TestAddFace_DuplicateLabelsAllowed(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	desc1 := make([]float64, 128)
	desc2 := make([]float64, 128)
	desc2[0] = 1

	if _, err := store.AddFace(ctx, "Me", desc1); err != nil {
		t.Fatalf("AddFace failed: %v", err)
	}
	faces := store.GetFaces(ctx)
	if len(faces) != 1 || faces[0].Label != "Me" {
		t.Fatalf("Expected one face labeled Me, got %+v", faces)
	}

	if _, err := store.AddFace(ctx, "Me", desc2); err != nil {
		t.Fatalf("Second AddFace failed: %v", err)
	}
	faces = store.GetFaces(ctx)
	if len(faces) != 2 {
		t.Fatalf("Expected two face records, got %d", len(faces))
	}
	for _, f := range faces {
		if f.Label != "Me" {
			t.Fatalf("Expected both records labeled Me, got %q", f.Label)
		}
	}
}

func TestGetFaces_NewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddFace(ctx, "first", []float64{1})
	store.AddFace(ctx, "second", []float64{2})

	faces := store.GetFaces(ctx)
	if len(faces) != 2 {
		t.Fatalf("Expected 2 faces, got %d", len(faces))
	}
	if faces[0].Label != "second" || faces[1].Label != "first" {
		t.Fatalf("Expected newest-first ordering, got %q then %q", faces[0].Label, faces[1].Label)
	}
}

func TestInsertEvent_DefaultsTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.InsertEvent(ctx, models.Event{}); err != nil {
		t.Fatalf("InsertEvent failed: %v", err)
	}
	events := store.GetEvents(ctx, EventFilter{})
	if len(events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(events))
	}
	if events[0].Timestamp == "" {
		t.Fatal("Expected timestamp to be defaulted")
	}
}

func TestGetEvents_ExactMatchFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.InsertEvent(ctx, models.Event{FaceLabel: strPtr("alice"), SessionID: i64Ptr(1)})
	store.InsertEvent(ctx, models.Event{FaceLabel: strPtr("alice"), SessionID: i64Ptr(2)})
	store.InsertEvent(ctx, models.Event{FaceLabel: strPtr("Alice"), SessionID: i64Ptr(1)})
	store.InsertEvent(ctx, models.Event{FaceLabel: strPtr("alicette"), SessionID: i64Ptr(1)})
	store.InsertEvent(ctx, models.Event{SessionID: i64Ptr(1)})

	// Exact match only: no case folding, no prefix matching, nil excluded
	got := store.GetEvents(ctx, EventFilter{FaceLabel: strPtr("alice")})
	if len(got) != 2 {
		t.Fatalf("Expected 2 events for alice, got %d", len(got))
	}

	// AND of both filters
	got = store.GetEvents(ctx, EventFilter{FaceLabel: strPtr("alice"), SessionID: i64Ptr(1)})
	if len(got) != 1 {
		t.Fatalf("Expected 1 event for alice+session 1, got %d", len(got))
	}
}

func TestGetEvents_LimitAndOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// Insert out of chronological order; stored timestamp decides ordering
	store.InsertEvent(ctx, models.Event{Timestamp: "2026-08-30T10:00:02Z"})
	store.InsertEvent(ctx, models.Event{Timestamp: "2026-08-30T10:00:00Z"})
	store.InsertEvent(ctx, models.Event{Timestamp: "2026-08-30T10:00:01Z"})

	events := store.GetEvents(ctx, EventFilter{})
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i-1].Timestamp < events[i].Timestamp {
			t.Fatalf("Expected newest-first ordering, got %s before %s",
				events[i-1].Timestamp, events[i].Timestamp)
		}
	}

	limited := store.GetEvents(ctx, EventFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("Expected limit cap of 2, got %d", len(limited))
	}
	if limited[0].Timestamp != "2026-08-30T10:00:02Z" {
		t.Fatalf("Expected newest event first, got %s", limited[0].Timestamp)
	}
}

func TestSetStudentHistory_Upsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SetStudentHistory(ctx, "a@b.c", "Alice", map[string]any{"scores": []any{70.0}}); err != nil {
		t.Fatalf("SetStudentHistory failed: %v", err)
	}
	if err := store.SetStudentHistory(ctx, "a@b.c", "Alice B", map[string]any{"scores": []any{90.0}}); err != nil {
		t.Fatalf("Second SetStudentHistory failed: %v", err)
	}

	rec, err := store.GetStudentHistory(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("GetStudentHistory failed: %v", err)
	}
	if rec.Name != "Alice B" {
		t.Fatalf("Expected replaced record, got name %q", rec.Name)
	}

	// Exactly one record must exist after the upsert
	doc := store.load()
	if len(doc.Students) != 1 {
		t.Fatalf("Expected exactly 1 student record, got %d", len(doc.Students))
	}
}

func TestGetStudentHistory_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetStudentHistory(context.Background(), "nobody@example.com")
	if err != ErrNotFound {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestClearAll_EmptiesEveryCollection(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	store.AddFace(ctx, "Me", []float64{1})
	store.InsertEvent(ctx, models.Event{FaceLabel: strPtr("Me")})
	store.AddSession(ctx, strPtr("lecture"), nil)
	store.SetStudentHistory(ctx, "a@b.c", "Alice", nil)

	if err := store.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll failed: %v", err)
	}

	if got := store.GetFaces(ctx); len(got) != 0 {
		t.Errorf("Expected no faces after clear, got %d", len(got))
	}
	if got := store.GetEvents(ctx, EventFilter{}); len(got) != 0 {
		t.Errorf("Expected no events after clear, got %d", len(got))
	}
	if got := store.GetSessions(ctx); len(got) != 0 {
		t.Errorf("Expected no sessions after clear, got %d", len(got))
	}
	if _, err := store.GetStudentHistory(ctx, "a@b.c"); err != ErrNotFound {
		t.Errorf("Expected student record gone after clear, got err=%v", err)
	}
}

func TestLoad_UnparsableFileRecreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry-data.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write corrupt file: %v", err)
	}
	store := NewFileStore(path)
	ctx := context.Background()

	// Reads degrade to empty rather than erroring
	if got := store.GetFaces(ctx); len(got) != 0 {
		t.Fatalf("Expected empty faces from corrupt file, got %d", len(got))
	}

	// Writes recreate the default structure
	id, err := store.AddFace(ctx, "Me", []float64{1})
	if err != nil {
		t.Fatalf("AddFace on corrupt file failed: %v", err)
	}
	if id != 1 {
		t.Fatalf("Expected counters reset with recreated document, got id %d", id)
	}
}

func TestSave_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry-data.json")
	ctx := context.Background()

	first := NewFileStore(path)
	if _, err := first.AddFace(ctx, "Me", []float64{1}); err != nil {
		t.Fatalf("AddFace failed: %v", err)
	}

	second := NewFileStore(path)
	faces := second.GetFaces(ctx)
	if len(faces) != 1 || faces[0].Label != "Me" {
		t.Fatalf("Expected persisted face visible to new instance, got %+v", faces)
	}

	// Counters continue from the persisted value, never repeat
	id, err := second.AddFace(ctx, "You", []float64{2})
	if err != nil {
		t.Fatalf("AddFace failed: %v", err)
	}
	if id != 2 {
		t.Fatalf("Expected counter to continue at 2, got %d", id)
	}
}
