package producer

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDelta_KnownValues(t *testing.T) {
	table := DefaultScoreTable()

	cases := []struct {
		emotion    string
		confidence float64
		want       int
	}{
		{"happy", 100, 2},
		{"happy", 50, 1},
		{"angry", 100, -3},
		// round half away from zero: -3 * 0.5 = -1.5 -> -2
		{"angry", 50, -2},
		{"sad", 75, -2}, // -1.5 -> -2
		{"neutral", 100, 1},
		{"neutral", 49, 0},
		{"neutral", 50, 1}, // 0.5 -> 1
		{"dull", 100, 0},
		{"fearful", 100, -1},
		{"disgusted", 100, -2},
		{"surprised", 100, 1},
		{"", 100, 0},
		{"bored", 100, 0}, // unknown label scores zero
	}
	for _, tc := range cases {
		if got := table.Delta(tc.emotion, tc.confidence); got != tc.want {
			t.Errorf("Delta(%q, %v) = %d, want %d", tc.emotion, tc.confidence, got, tc.want)
		}
	}
}

func TestLoadScoreTable_MergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scoring.yaml")
	if err := os.WriteFile(path, []byte("happy: 5\nbored: -1\n"), 0o644); err != nil {
		t.Fatalf("Failed to write scoring file: %v", err)
	}

	table, err := LoadScoreTable(path)
	if err != nil {
		t.Fatalf("LoadScoreTable failed: %v", err)
	}
	if table["happy"] != 5 {
		t.Errorf("Expected happy overridden to 5, got %d", table["happy"])
	}
	if table["bored"] != -1 {
		t.Errorf("Expected new label bored=-1, got %d", table["bored"])
	}
	if table["angry"] != -3 {
		t.Errorf("Expected untouched default angry=-3, got %d", table["angry"])
	}
}

func TestLoadScoreTable_Errors(t *testing.T) {
	if _, err := LoadScoreTable(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("happy: [not an int"), 0o644)
	if _, err := LoadScoreTable(path); err == nil {
		t.Error("Expected error for malformed yaml")
	}
}
