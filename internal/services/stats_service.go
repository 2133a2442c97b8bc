package services

import (
	"context"
	"sort"
	"time"

	cache "github.com/patrickmn/go-cache"

	"facewatch/internal/database"
	"facewatch/internal/models"
)

const statsCacheKey = "summary"

// StatsService derives per-identity aggregates from the event log for
// dashboard polling. Results are cached briefly so a polling dashboard does
// not re-scan the event log on every request.
type StatsService struct {
	store database.Store
	cache *cache.Cache
}

// NewStatsService creates a stats service with a 5 second result cache.
func NewStatsService(store database.Store) *StatsService {
	return &StatsService{
		store: store,
		cache: cache.New(5*time.Second, 30*time.Second),
	}
}

// Summary aggregates the most recent events (up to the 1000-record read cap)
// into per-label score, detection count and emotion histogram, sorted by
// score descending. The local producer aggregates remain authoritative for a
// live session; this is the server-side view of what actually persisted.
func (s *StatsService) Summary(ctx context.Context) []models.LabelStats {
	if cached, found := s.cache.Get(statsCacheKey); found {
		return cached.([]models.LabelStats)
	}

	events := s.store.GetEvents(ctx, database.EventFilter{Limit: 1000})

	byLabel := make(map[string]*models.LabelStats)
	for _, ev := range events {
		label := "unknown"
		if ev.FaceLabel != nil && *ev.FaceLabel != "" {
			label = *ev.FaceLabel
		}
		entry, ok := byLabel[label]
		if !ok {
			entry = &models.LabelStats{
				Label:    label,
				Emotions: make(map[string]int),
			}
			byLabel[label] = entry
		}
		entry.Score += ev.Delta
		entry.Detections++
		if ev.Emotion != nil && *ev.Emotion != "" {
			entry.Emotions[*ev.Emotion]++
		}
		// Events arrive newest-first; the first timestamp seen wins.
		if entry.LastSeen == "" {
			entry.LastSeen = ev.Timestamp
		}
	}

	summary := make([]models.LabelStats, 0, len(byLabel))
	for _, entry := range byLabel {
		summary = append(summary, *entry)
	}
	sort.Slice(summary, func(i, j int) bool {
		if summary[i].Score != summary[j].Score {
			return summary[i].Score > summary[j].Score
		}
		return summary[i].Label < summary[j].Label
	})

	s.cache.Set(statsCacheKey, summary, cache.DefaultExpiration)
	return summary
}

// Invalidate drops the cached summary. Called after admin clear so the
// dashboard does not keep showing wiped data for the cache TTL.
func (s *StatsService) Invalidate() {
	s.cache.Delete(statsCacheKey)
}
