package producer

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPointValues is the fixed signed score weight per emotion label.
// Labels outside the table score zero.
var DefaultPointValues = map[string]int{
	"happy":     2,
	"neutral":   1,
	"surprised": 1,
	"sad":       -2,
	"angry":     -3,
	"fearful":   -1,
	"disgusted": -2,
	"dull":      0,
}

// ScoreTable maps emotion labels to signed point values.
type ScoreTable map[string]int

// DefaultScoreTable returns a copy of the built-in point values.
func DefaultScoreTable() ScoreTable {
	table := make(ScoreTable, len(DefaultPointValues))
	for emotion, points := range DefaultPointValues {
		table[emotion] = points
	}
	return table
}

// LoadScoreTable reads a YAML emotion->points mapping and merges it over the
// defaults, so a partial file only overrides the labels it names.
func LoadScoreTable(path string) (ScoreTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scoring file: %w", err)
	}

	overrides := map[string]int{}
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("failed to parse scoring file: %w", err)
	}

	table := DefaultScoreTable()
	for emotion, points := range overrides {
		table[emotion] = points
	}
	return table, nil
}

// Delta computes the signed score contribution of one detection:
// points * confidence/100, rounded half away from zero (math.Round).
// That one rounding rule is applied everywhere deltas are computed.
func (t ScoreTable) Delta(emotion string, confidence float64) int {
	points := t[emotion]
	return int(math.Round(float64(points) * confidence / 100))
}
