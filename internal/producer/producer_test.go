package producer

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"facewatch/internal/models"
)

// stubClassifier returns a fixed script of results, one entry per Detect call.
type stubClassifier struct {
	mu      sync.Mutex
	script  [][]Detection
	errs    []error
	calls   int
	single  *Detection
	singleE error
}

func (s *stubClassifier) Detect(ctx context.Context) ([]Detection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	if i < len(s.script) {
		return s.script[i], nil
	}
	return nil, nil
}

func (s *stubClassifier) DetectSingle(ctx context.Context) (*Detection, error) {
	return s.single, s.singleE
}

// collectServer records shipped events.
type collectServer struct {
	mu     sync.Mutex
	events []models.PostEventRequest
	srv    *httptest.Server
}

func newCollectServer() *collectServer {
	c := &collectServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var ev models.PostEventRequest
		json.Unmarshal(body, &ev)
		c.mu.Lock()
		c.events = append(c.events, ev)
		c.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"id":1}`))
	})
	mux.HandleFunc("/faces", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok":true,"id":1}`))
	})
	c.srv = httptest.NewServer(mux)
	return c
}

func (c *collectServer) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *collectServer) waitFor(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.count() >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("Expected %d shipped events, got %d", n, c.count())
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestTick_ShipsCountedDetections(t *testing.T) {
	server := newCollectServer()
	defer server.srv.Close()

	classifier := &stubClassifier{script: [][]Detection{
		{{Label: "alice", Emotion: "happy", Confidence: 100}},
	}}
	tracker := NewTracker(nil)
	p := New(classifier, NewShipper(server.srv.URL), tracker, Config{Logger: quietLogger()})

	p.tick(context.Background())
	server.waitFor(t, 1)

	server.mu.Lock()
	ev := server.events[0]
	server.mu.Unlock()
	if ev.FaceLabel == nil || *ev.FaceLabel != "alice" {
		t.Errorf("Expected face_label alice, got %+v", ev.FaceLabel)
	}
	if ev.Emotion == nil || *ev.Emotion != "happy" {
		t.Errorf("Expected emotion happy, got %+v", ev.Emotion)
	}
	if ev.Delta == nil || *ev.Delta != 2 {
		t.Errorf("Expected delta 2 for happy@100, got %+v", ev.Delta)
	}
	if ev.Timestamp == nil || *ev.Timestamp == "" {
		t.Error("Expected timestamp attached")
	}
}

func TestTick_ThrottledSamplesDoNotShip(t *testing.T) {
	server := newCollectServer()
	defer server.srv.Close()

	classifier := &stubClassifier{script: [][]Detection{
		{{Label: "alice", Emotion: "happy", Confidence: 100}},
		{{Label: "alice", Emotion: "happy", Confidence: 90}},
	}}
	tracker := NewTracker(nil)
	clock := &fakeClock{t: time.Now()}
	tracker.now = clock.now

	p := New(classifier, NewShipper(server.srv.URL), tracker, Config{Logger: quietLogger()})

	p.tick(context.Background())
	clock.advance(300 * time.Millisecond)
	p.tick(context.Background())

	server.waitFor(t, 1)
	// Give any stray second ship a moment to land before asserting absence
	time.Sleep(100 * time.Millisecond)
	if server.count() != 1 {
		t.Fatalf("Expected exactly 1 shipped event (second sample throttled), got %d", server.count())
	}
}

func TestTick_ClassifierFailureSkipsTick(t *testing.T) {
	server := newCollectServer()
	defer server.srv.Close()

	classifier := &stubClassifier{
		errs:   []error{errors.New("camera busy"), nil},
		script: [][]Detection{nil, {{Label: "alice", Emotion: "happy", Confidence: 100}}},
	}
	tracker := NewTracker(nil)
	p := New(classifier, NewShipper(server.srv.URL), tracker, Config{Logger: quietLogger()})

	p.tick(context.Background()) // fails, skipped
	p.tick(context.Background()) // succeeds
	server.waitFor(t, 1)
}

func TestShip_ServerDownIsSwallowed(t *testing.T) {
	classifier := &stubClassifier{script: [][]Detection{
		{{Label: "alice", Emotion: "happy", Confidence: 100}},
	}}
	tracker := NewTracker(nil)
	// Port 1 refuses connections immediately
	p := New(classifier, NewShipper("http://127.0.0.1:1"), tracker, Config{Logger: quietLogger()})

	p.tick(context.Background())
	time.Sleep(100 * time.Millisecond)

	// Local aggregates update regardless of network outcome
	stats := statsFor(t, tracker, "alice")
	if stats.Score != 2 || stats.Detections != 1 {
		t.Fatalf("Expected local aggregate updated despite ship failure, got %+v", stats)
	}
}

func TestProducer_StartStop(t *testing.T) {
	server := newCollectServer()
	defer server.srv.Close()

	classifier := &stubClassifier{}
	tracker := NewTracker(nil)
	p := New(classifier, NewShipper(server.srv.URL), tracker, Config{
		Interval: 10 * time.Millisecond,
		Logger:   quietLogger(),
	})

	p.Start()
	time.Sleep(60 * time.Millisecond)
	p.Stop()

	classifier.mu.Lock()
	calls := classifier.calls
	classifier.mu.Unlock()
	if calls == 0 {
		t.Fatal("Expected sampling ticks while running")
	}

	// No ticks after Stop returns
	time.Sleep(30 * time.Millisecond)
	classifier.mu.Lock()
	after := classifier.calls
	classifier.mu.Unlock()
	if after != calls {
		t.Fatalf("Expected no ticks after Stop, got %d -> %d", calls, after)
	}
}

func TestProducer_SessionIDAttached(t *testing.T) {
	server := newCollectServer()
	defer server.srv.Close()

	sessionID := int64(7)
	classifier := &stubClassifier{script: [][]Detection{
		{{Label: "alice", Emotion: "happy", Confidence: 100}},
	}}
	p := New(classifier, NewShipper(server.srv.URL), NewTracker(nil), Config{
		SessionID: &sessionID,
		Logger:    quietLogger(),
	})

	p.tick(context.Background())
	server.waitFor(t, 1)

	server.mu.Lock()
	ev := server.events[0]
	server.mu.Unlock()
	if ev.SessionID == nil || *ev.SessionID != 7 {
		t.Fatalf("Expected session_id 7 attached, got %+v", ev.SessionID)
	}
}
