package service

import (
	"log"

	"vocaroom/internal/auth"
	"vocaroom/internal/models"
	"vocaroom/internal/store"
)

// Manager routes classroom operations to the right backend: anonymous
// requests use the expiring in-memory store, authenticated ones the durable
// SQL store. When a durable create fails the classroom is still created in
// memory, so a teacher never loses an upload to a database outage.
type Manager struct {
	memory  *store.MemoryStore
	durable *ClassroomService
}

// NewManager creates a manager. durable may be nil, in which case every
// classroom lives in memory.
func NewManager(memory *store.MemoryStore, durable *ClassroomService) *Manager {
	return &Manager{memory: memory, durable: durable}
}

// CreateClassroom creates a classroom in the durable store for signed-in
// users and in memory otherwise. Durable failures fall back to memory.
func (m *Manager) CreateClassroom(name string, words []string, user *auth.User) (*models.Classroom, error) {
	if user != nil && m.durable != nil {
		room, err := m.durable.CreateClassroom(name, words, user.UID, user.Email, true)
		if err == nil {
			return room, nil
		}
		log.Printf("durable classroom create failed, falling back to memory: %v", err)
	}
	return m.memory.CreateClassroom(name, words)
}

// GetClassroom resolves a code against the durable store first, then
// memory. Private durable classrooms are only visible to their owner and
// resolve to not-found for everyone else.
func (m *Manager) GetClassroom(code string, user *auth.User) (*models.Classroom, error) {
	if m.durable != nil {
		room, err := m.durable.GetClassroomByCode(code)
		if err != nil {
			log.Printf("durable classroom lookup failed for %s: %v", code, err)
		} else if room != nil {
			if room.IsPublic || (user != nil && room.OwnerID == user.UID) {
				return room, nil
			}
			return nil, models.ErrClassroomNotFound
		}
	}

	if room := m.memory.GetClassroom(code); room != nil {
		return room, nil
	}
	return nil, models.ErrClassroomNotFound
}

// JoinClassroom adds a student to whichever backend holds the classroom
func (m *Manager) JoinClassroom(code, studentName string, user *auth.User) (*models.Student, error) {
	room, err := m.GetClassroom(code, user)
	if err != nil {
		return nil, err
	}

	if room.Source == models.SourceDatabase {
		userID, email := userIdentity(user)
		return m.durable.JoinClassroom(code, studentName, userID, email)
	}
	return m.memory.AddStudent(code, studentName)
}

// StartSession starts a learning session for a student
func (m *Manager) StartSession(code, studentName string, user *auth.User) error {
	room, err := m.GetClassroom(code, user)
	if err != nil {
		return err
	}

	if room.Source == models.SourceDatabase {
		return m.durable.StartSession(code, studentName)
	}
	return m.memory.StartSession(code, studentName)
}

// EndSession ends a running session and returns its duration in seconds
func (m *Manager) EndSession(code, studentName string, user *auth.User) (int, error) {
	room, err := m.GetClassroom(code, user)
	if err != nil {
		return 0, err
	}

	if room.Source == models.SourceDatabase {
		return m.durable.EndSession(code, studentName)
	}
	return m.memory.EndSession(code, studentName)
}

// Leaderboard returns the ranked students of a classroom
func (m *Manager) Leaderboard(code string, user *auth.User) ([]models.LeaderboardEntry, error) {
	room, err := m.GetClassroom(code, user)
	if err != nil {
		return nil, err
	}

	if room.Source == models.SourceDatabase {
		return m.durable.Leaderboard(code)
	}
	return m.memory.Leaderboard(code)
}

// StudentStatus returns one student's standing in a classroom
func (m *Manager) StudentStatus(code, studentName string, user *auth.User) (*models.StudentStatus, error) {
	room, err := m.GetClassroom(code, user)
	if err != nil {
		return nil, err
	}

	if room.Source == models.SourceDatabase {
		return m.durable.StudentStatus(code, studentName)
	}
	return m.memory.StudentStatus(code, studentName)
}

// SwapWords trades one word between two students
func (m *Manager) SwapWords(code, studentA, wordA, studentB, wordB string, user *auth.User) error {
	room, err := m.GetClassroom(code, user)
	if err != nil {
		return err
	}

	if room.Source == models.SourceDatabase {
		return m.durable.SwapWords(code, studentA, wordA, studentB, wordB)
	}
	return m.memory.SwapWords(code, studentA, wordA, studentB, wordB)
}

// RecordPractice counts one practice attempt for a student's word
func (m *Manager) RecordPractice(code, studentName, word string, correct bool, user *auth.User) (*models.WordStat, error) {
	room, err := m.GetClassroom(code, user)
	if err != nil {
		return nil, err
	}

	if room.Source == models.SourceDatabase {
		return m.durable.RecordPractice(code, studentName, word, correct)
	}
	return m.memory.RecordPractice(code, studentName, word, correct)
}

func userIdentity(user *auth.User) (string, string) {
	if user == nil {
		return "", ""
	}
	return user.UID, user.Email
}
