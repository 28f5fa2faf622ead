package service

import (
	"testing"
	"time"

	"vocaroom/internal/models"
)

func TestBuildLeaderboard(t *testing.T) {
	now := time.Now()
	students := []models.Student{
		{Name: "Bob", TotalTime: 125, SessionStart: &now},
		{Name: "Alice", TotalTime: 60},
		{Name: "Carol", TotalTime: 0},
	}

	entries := buildLeaderboard(students)

	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Name != "Bob" || entries[0].Rank != 1 {
		t.Errorf("first entry = %s rank %d, want Bob rank 1", entries[0].Name, entries[0].Rank)
	}
	if entries[0].TotalMinutes != 2 || entries[0].TotalSeconds != 5 {
		t.Errorf("Bob split = %dm%ds, want 2m5s", entries[0].TotalMinutes, entries[0].TotalSeconds)
	}
	if !entries[0].IsActive {
		t.Error("Bob has a running session and should be active")
	}
	if entries[2].Rank != 3 {
		t.Errorf("last rank = %d, want 3", entries[2].Rank)
	}
}

func TestMasteryPercent(t *testing.T) {
	tests := []struct {
		name  string
		stats map[string]*models.WordStat
		want  int
	}{
		{"no stats", nil, 0},
		{"no attempts", map[string]*models.WordStat{"cat": {}}, 0},
		{
			"all mastered",
			map[string]*models.WordStat{
				"cat": {Correct: 4, Wrong: 1},
				"dog": {Correct: 10},
			},
			100,
		},
		{
			"half mastered",
			map[string]*models.WordStat{
				"cat": {Correct: 4, Wrong: 1}, // 80%, mastered
				"dog": {Correct: 1, Wrong: 3}, // 25%
			},
			50,
		},
		{
			"below threshold",
			map[string]*models.WordStat{
				"cat": {Correct: 3, Wrong: 1}, // 75%
			},
			0,
		},
	}

	for _, tt := range tests {
		if got := masteryPercent(tt.stats); got != tt.want {
			t.Errorf("%s: masteryPercent() = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestStudyDays(t *testing.T) {
	day := func(s string) time.Time {
		ts, _ := time.Parse("2006-01-02 15:04", s)
		return ts
	}

	sessions := []models.Session{
		{StartTime: day("2026-03-01 09:00")},
		{StartTime: day("2026-03-01 17:30")},
		{StartTime: day("2026-03-02 10:00")},
	}

	if got := studyDays(sessions); got != 2 {
		t.Errorf("studyDays() = %d, want 2", got)
	}
	if got := studyDays(nil); got != 0 {
		t.Errorf("studyDays(nil) = %d, want 0", got)
	}
}
