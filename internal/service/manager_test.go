package service

import (
	"errors"
	"testing"
	"time"

	"vocaroom/internal/auth"
	"vocaroom/internal/models"
	"vocaroom/internal/store"
)

// A nil durable service forces everything through the memory store,
// which is exactly the anonymous path.
func newMemoryOnlyManager() *Manager {
	return NewManager(store.NewMemoryStore(24*time.Hour, 3), nil)
}

func TestManagerAnonymousCreateUsesMemory(t *testing.T) {
	m := newMemoryOnlyManager()

	room, err := m.CreateClassroom("Unit1", []string{"cat", "dog"}, nil)
	if err != nil {
		t.Fatalf("CreateClassroom() error: %v", err)
	}
	if room.Source != models.SourceMemory {
		t.Errorf("source = %q, want %q", room.Source, models.SourceMemory)
	}
	if room.ExpiresAt == nil {
		t.Error("memory classroom must expire")
	}
}

func TestManagerSignedInWithoutDurableFallsBack(t *testing.T) {
	m := newMemoryOnlyManager()
	user := &auth.User{UID: "user-1", Email: "t@example.com"}

	room, err := m.CreateClassroom("Unit1", []string{"cat"}, user)
	if err != nil {
		t.Fatalf("CreateClassroom() error: %v", err)
	}
	if room.Source != models.SourceMemory {
		t.Errorf("source = %q, want %q", room.Source, models.SourceMemory)
	}
}

func TestManagerOperationsRouteToMemory(t *testing.T) {
	m := newMemoryOnlyManager()
	room, _ := m.CreateClassroom("Unit1", []string{"cat", "dog", "fish"}, nil)

	if _, err := m.JoinClassroom(room.Code, "Alice", nil); err != nil {
		t.Fatalf("JoinClassroom() error: %v", err)
	}
	if _, err := m.JoinClassroom(room.Code, "Bob", nil); err != nil {
		t.Fatalf("JoinClassroom() error: %v", err)
	}

	if err := m.StartSession(room.Code, "Alice", nil); err != nil {
		t.Fatalf("StartSession() error: %v", err)
	}
	if _, err := m.EndSession(room.Code, "Alice", nil); err != nil {
		t.Fatalf("EndSession() error: %v", err)
	}

	if err := m.SwapWords(room.Code, "Alice", "cat", "Bob", "fish", nil); err != nil {
		t.Fatalf("SwapWords() error: %v", err)
	}

	stat, err := m.RecordPractice(room.Code, "Alice", "dog", true, nil)
	if err != nil {
		t.Fatalf("RecordPractice() error: %v", err)
	}
	if stat.Correct != 1 {
		t.Errorf("correct = %d, want 1", stat.Correct)
	}

	board, err := m.Leaderboard(room.Code, nil)
	if err != nil {
		t.Fatalf("Leaderboard() error: %v", err)
	}
	if len(board) != 2 {
		t.Errorf("leaderboard size = %d, want 2", len(board))
	}

	status, err := m.StudentStatus(room.Code, "Alice", nil)
	if err != nil {
		t.Fatalf("StudentStatus() error: %v", err)
	}
	if status.Rank != 1 {
		t.Errorf("rank = %d, want 1", status.Rank)
	}
}

func TestManagerUnknownCode(t *testing.T) {
	m := newMemoryOnlyManager()

	if _, err := m.GetClassroom("ZZZZ", nil); !errors.Is(err, models.ErrClassroomNotFound) {
		t.Errorf("GetClassroom() err = %v, want ErrClassroomNotFound", err)
	}
	if _, err := m.JoinClassroom("ZZZZ", "Alice", nil); !errors.Is(err, models.ErrClassroomNotFound) {
		t.Errorf("JoinClassroom() err = %v, want ErrClassroomNotFound", err)
	}
	if _, err := m.Leaderboard("ZZZZ", nil); !errors.Is(err, models.ErrClassroomNotFound) {
		t.Errorf("Leaderboard() err = %v, want ErrClassroomNotFound", err)
	}
}
