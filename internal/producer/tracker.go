package producer

import (
	"sort"
	"sync"
	"time"
)

// ThrottleWindow is the minimum interval between counted updates for one
// identity when its emotion label has not changed. A steady 300ms sample
// stream of the same face and expression would otherwise inflate counts and
// duplicate network traffic.
const ThrottleWindow = 800 * time.Millisecond

// Detection is one classification result from a sampling tick.
type Detection struct {
	Label      string // identity label, "" or "unknown" for unrecognized
	Emotion    string
	Confidence float64 // 0-100
	Area       float64 // detection box area, used by enrollment fallback
	Descriptor []float64
}

// IdentityStats is a snapshot of one identity's running aggregate.
type IdentityStats struct {
	Label          string         `json:"label"`
	Score          int            `json:"score"`
	LastEmotion    string         `json:"last_emotion"`
	LastConfidence float64        `json:"last_confidence"`
	Detections     int            `json:"detections"`
	Emotions       map[string]int `json:"emotions"`
}

type identityState struct {
	score          int
	lastEmotion    string
	lastConfidence float64
	detections     int
	emotions       map[string]int
	lastCounted    time.Time
}

// Update reports how Observe handled one detection.
type Update struct {
	// Counted is true when the throttle rule admitted the sample as a
	// distinct detection (emotion changed, or the window elapsed).
	Counted bool
	Delta   int
}

// Tracker holds per-identity aggregates for one tracking session. It is
// scoped to the session, not process-global, so concurrent sessions (and
// tests) do not interfere. Safe for concurrent use.
type Tracker struct {
	mu         sync.Mutex
	table      ScoreTable
	identities map[string]*identityState
	now        func() time.Time
}

// NewTracker creates a tracker using table, or the default point values
// when table is nil.
func NewTracker(table ScoreTable) *Tracker {
	if table == nil {
		table = DefaultScoreTable()
	}
	return &Tracker{
		table:      table,
		identities: make(map[string]*identityState),
		now:        time.Now,
	}
}

// Observe applies one detection to the aggregate. When the throttle rule
// rejects the sample only the last-seen confidence is refreshed; score,
// detection count and histogram stay untouched and nothing should ship.
func (t *Tracker) Observe(d Detection) Update {
	label := d.Label
	if label == "" {
		label = "unknown"
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.identities[label]
	if !ok {
		state = &identityState{emotions: make(map[string]int)}
		t.identities[label] = state
	}

	now := t.now()
	counted := d.Emotion != state.lastEmotion || now.Sub(state.lastCounted) >= ThrottleWindow

	state.lastConfidence = d.Confidence
	if !counted {
		return Update{}
	}

	delta := t.table.Delta(d.Emotion, d.Confidence)
	state.score += delta
	state.lastEmotion = d.Emotion
	state.lastCounted = now
	state.detections++
	state.emotions[d.Emotion]++

	return Update{Counted: true, Delta: delta}
}

// Snapshot returns a copy of all per-identity aggregates, sorted by label.
func (t *Tracker) Snapshot() []IdentityStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]IdentityStats, 0, len(t.identities))
	for label, state := range t.identities {
		emotions := make(map[string]int, len(state.emotions))
		for emotion, count := range state.emotions {
			emotions[emotion] = count
		}
		out = append(out, IdentityStats{
			Label:          label,
			Score:          state.score,
			LastEmotion:    state.lastEmotion,
			LastConfidence: state.lastConfidence,
			Detections:     state.detections,
			Emotions:       emotions,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out
}
