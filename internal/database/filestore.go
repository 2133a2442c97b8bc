package database

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"facewatch/internal/models"
)

// counters are backend-local. They never regress or repeat within one
// process lifetime; they are not comparable to MongoDB-assigned ids.
type counters struct {
	Faces    int64 `json:"faces"`
	Events   int64 `json:"events"`
	Sessions int64 `json:"sessions"`
}

// document is the complete on-disk shape. The whole document is rewritten
// on every mutation.
type document struct {
	Counters counters               `json:"_counters"`
	Faces    []models.Face          `json:"faces"`
	Events   []models.Event         `json:"events"`
	Students []models.StudentRecord `json:"students"`
	Sessions []models.Session       `json:"sessions"`
}

func defaultDocument() *document {
	return &document{
		Faces:    []models.Face{},
		Events:   []models.Event{},
		Students: []models.StudentRecord{},
		Sessions: []models.Session{},
	}
}

// FileStore persists all collections in a single JSON document. Every write
// is a whole-document read-modify-write; the mutex serializes operations
// within this process (cross-process writers are out of scope).
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file store at path. The file is created lazily on
// first write; an absent or unparsable file is recreated with the default
// shape in memory.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) load() *document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return defaultDocument()
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		log.Printf("⚠️  Data file %s unparsable, recreating default structure: %v", s.path, err)
		return defaultDocument()
	}
	if doc.Faces == nil {
		doc.Faces = []models.Face{}
	}
	if doc.Events == nil {
		doc.Events = []models.Event{}
	}
	if doc.Students == nil {
		doc.Students = []models.StudentRecord{}
	}
	if doc.Sessions == nil {
		doc.Sessions = []models.Session{}
	}
	return &doc
}

// save writes the complete serialized document in one operation: marshal,
// write to a temp file in the same directory, then rename over the target
// so a crash mid-write never leaves a partially-written file.
func (s *FileStore) save(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".telemetry-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// GetFaces returns all enrolled face records, newest-first. Never errors.
func (s *FileStore) GetFaces(ctx context.Context) []models.Face {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	out := make([]models.Face, 0, len(doc.Faces))
	for i := len(doc.Faces) - 1; i >= 0; i-- {
		out = append(out, doc.Faces[i])
	}
	return out
}

// AddFace assigns the next face id, appends the record and persists.
func (s *FileStore) AddFace(ctx context.Context, label string, descriptor []float64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	doc.Counters.Faces++
	face := models.Face{
		ID:         doc.Counters.Faces,
		Label:      label,
		Descriptor: descriptor,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	doc.Faces = append(doc.Faces, face)
	if err := s.save(doc); err != nil {
		return 0, err
	}
	return face.ID, nil
}

// InsertEvent assigns the next event id, appends and persists. A zero
// timestamp is defaulted to the current time.
func (s *FileStore) InsertEvent(ctx context.Context, ev models.Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	doc.Counters.Events++
	ev.ID = doc.Counters.Events
	if ev.Timestamp == "" {
		ev.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	doc.Events = append(doc.Events, ev)
	if err := s.save(doc); err != nil {
		return 0, err
	}
	return ev.ID, nil
}

// GetEvents returns matching events newest-first by timestamp. Shipped
// events can arrive out of chronological order, so the stored timestamp
// (not insertion order) decides ordering; id breaks ties.
func (s *FileStore) GetEvents(ctx context.Context, filter EventFilter) []models.Event {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	limit := filter.Limit
	if limit <= 0 {
		limit = 500
	}

	matched := make([]models.Event, 0, len(doc.Events))
	for _, ev := range doc.Events {
		if !matchEvent(ev, filter) {
			continue
		}
		matched = append(matched, ev)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].Timestamp != matched[j].Timestamp {
			return matched[i].Timestamp > matched[j].Timestamp
		}
		return matched[i].ID > matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func matchEvent(ev models.Event, filter EventFilter) bool {
	if filter.FaceLabel != nil {
		if ev.FaceLabel == nil || *ev.FaceLabel != *filter.FaceLabel {
			return false
		}
	}
	if filter.SessionID != nil {
		if ev.SessionID == nil || *ev.SessionID != *filter.SessionID {
			return false
		}
	}
	return true
}

// GetStudentHistory returns the record for email or ErrNotFound.
func (s *FileStore) GetStudentHistory(ctx context.Context, email string) (*models.StudentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	for i := range doc.Students {
		if doc.Students[i].Email == email {
			rec := doc.Students[i]
			return &rec, nil
		}
	}
	return nil, ErrNotFound
}

// SetStudentHistory upserts: replaces the record when the email exists,
// appends otherwise.
func (s *FileStore) SetStudentHistory(ctx context.Context, email, name string, history map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	rec := models.StudentRecord{Email: email, Name: name, History: history}
	replaced := false
	for i := range doc.Students {
		if doc.Students[i].Email == email {
			doc.Students[i] = rec
			replaced = true
			break
		}
	}
	if !replaced {
		doc.Students = append(doc.Students, rec)
	}
	return s.save(doc)
}

// AddSession assigns the next session id, appends and persists.
func (s *FileStore) AddSession(ctx context.Context, name *string, meta map[string]any) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	doc.Counters.Sessions++
	sess := models.Session{
		ID:        doc.Counters.Sessions,
		Name:      name,
		Meta:      meta,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	doc.Sessions = append(doc.Sessions, sess)
	if err := s.save(doc); err != nil {
		return 0, err
	}
	return sess.ID, nil
}

// GetSessions returns all sessions, newest-first. Never errors.
func (s *FileStore) GetSessions(ctx context.Context) []models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.load()
	out := make([]models.Session, 0, len(doc.Sessions))
	for i := len(doc.Sessions) - 1; i >= 0; i-- {
		out = append(out, doc.Sessions[i])
	}
	return out
}

// ClearAll overwrites the file with the default empty document in a single
// atomic write. Counters reset with it: the monotonic-id guarantee holds
// within one backend lifetime, and a clear ends that lifetime.
func (s *FileStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(defaultDocument())
}

// Ping verifies the backing directory is writable.
func (s *FileStore) Ping(ctx context.Context) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".telemetry-ping-*")
	if err != nil {
		return err
	}
	tmp.Close()
	return os.Remove(tmp.Name())
}

func (s *FileStore) Backend() string { return "file" }

func (s *FileStore) Close(ctx context.Context) error { return nil }
