package service

import (
	"errors"
	"fmt"
	"time"

	"vocaroom/internal/credentials"
	"vocaroom/internal/database"
	"vocaroom/internal/models"
	"vocaroom/internal/repository"
)

// masteryThreshold is the accuracy above which an attempted word counts
// as mastered
const masteryThreshold = 0.8

// ClassroomService implements durable classroom storage on top of the
// SQL repository. Multi-step operations run in a transaction so a swap or
// session end is never half-applied.
type ClassroomService struct {
	db           *database.DB
	codeAttempts int
}

// NewClassroomService creates a new classroom service
func NewClassroomService(db *database.DB, codeAttempts int) *ClassroomService {
	return &ClassroomService{db: db, codeAttempts: codeAttempts}
}

// withTx runs fn with a repository bound to a transaction, committing on
// success and rolling back on error
func (s *ClassroomService) withTx(fn func(repo *repository.ClassroomRepository) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(repository.NewClassroomRepository(tx)); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// CreateClassroom creates a durable classroom owned by a signed-in teacher.
// Code generation retries a bounded number of times on collision.
func (s *ClassroomService) CreateClassroom(name string, words []string, ownerID, ownerEmail string, isPublic bool) (*models.Classroom, error) {
	repo := repository.NewClassroomRepository(s.db)

	for attempt := 0; attempt < s.codeAttempts; attempt++ {
		code, err := credentials.GenerateClassroomCode()
		if err != nil {
			return nil, err
		}
		exists, err := repo.CodeExists(code)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}
		return repo.CreateClassroom(code, name, words, ownerID, ownerEmail, isPublic)
	}

	return nil, errors.New("could not generate a unique classroom code")
}

// GetClassroomByCode returns the classroom, or nil if the code is unknown
func (s *ClassroomService) GetClassroomByCode(code string) (*models.Classroom, error) {
	return repository.NewClassroomRepository(s.db).GetClassroomByCode(code)
}

// GetClassroomByID returns the classroom, or nil if it does not exist
func (s *ClassroomService) GetClassroomByID(id int64) (*models.Classroom, error) {
	return repository.NewClassroomRepository(s.db).GetClassroomByID(id)
}

// JoinClassroom adds a student to a classroom, copying the classroom words
// into a personal deck. Joining again under the same name returns the
// existing student untouched.
func (s *ClassroomService) JoinClassroom(code, name, userID, email string) (*models.Student, error) {
	var student *models.Student
	err := s.withTx(func(repo *repository.ClassroomRepository) error {
		room, err := repo.GetClassroomByCode(code)
		if err != nil {
			return err
		}
		if room == nil {
			return models.ErrClassroomNotFound
		}

		existing, err := repo.FindStudent(room.ID, name)
		if err != nil {
			return err
		}
		if existing != nil {
			student = existing
			return nil
		}

		student, err = repo.CreateStudent(room.ID, name, userID, email, room.Words)
		return err
	})
	return student, err
}

// StartSession marks the student as actively learning. A second start
// replaces the running session; its partial time is never credited.
func (s *ClassroomService) StartSession(code, name string) error {
	return s.withTx(func(repo *repository.ClassroomRepository) error {
		student, err := s.findStudent(repo, code, name)
		if err != nil {
			return err
		}
		now := time.Now()
		return repo.UpdateSessionStart(student.ID, &now)
	})
}

// EndSession closes the running session, credits its duration and records
// an immutable session row with a snapshot of the studied deck
func (s *ClassroomService) EndSession(code, name string) (int, error) {
	var duration int
	err := s.withTx(func(repo *repository.ClassroomRepository) error {
		room, err := repo.GetClassroomByCode(code)
		if err != nil {
			return err
		}
		if room == nil {
			return models.ErrClassroomNotFound
		}
		student, err := repo.FindStudentForUpdate(room.ID, name)
		if err != nil {
			return err
		}
		if student == nil {
			return models.ErrStudentNotFound
		}
		if student.SessionStart == nil {
			return models.ErrNoActiveSession
		}

		now := time.Now()
		duration = int(now.Sub(*student.SessionStart).Seconds())
		if duration < 0 {
			duration = 0
		}

		if err := repo.AddTotalTime(student.ID, duration); err != nil {
			return err
		}
		return repo.CreateSession(student.ID, room.ID, *student.SessionStart, now, duration, student.Words)
	})
	return duration, err
}

// Leaderboard returns the classroom's students ranked by accumulated time
func (s *ClassroomService) Leaderboard(code string) ([]models.LeaderboardEntry, error) {
	repo := repository.NewClassroomRepository(s.db)
	room, err := repo.GetClassroomByCode(code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}
	students, err := repo.ListStudents(room.ID)
	if err != nil {
		return nil, err
	}
	return buildLeaderboard(students), nil
}

// StudentStatus returns one student's accumulated time, activity and rank
func (s *ClassroomService) StudentStatus(code, name string) (*models.StudentStatus, error) {
	repo := repository.NewClassroomRepository(s.db)
	room, err := repo.GetClassroomByCode(code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}
	students, err := repo.ListStudents(room.ID)
	if err != nil {
		return nil, err
	}

	entries := buildLeaderboard(students)
	for _, e := range entries {
		if e.Name == name {
			return &models.StudentStatus{
				Name:          e.Name,
				TotalTime:     e.TotalTime,
				IsActive:      e.IsActive,
				Rank:          e.Rank,
				TotalStudents: len(entries),
			}, nil
		}
	}
	return nil, models.ErrStudentNotFound
}

// SwapWords trades one word between two students' decks atomically
func (s *ClassroomService) SwapWords(code, studentA, wordA, studentB, wordB string) error {
	return s.withTx(func(repo *repository.ClassroomRepository) error {
		room, err := repo.GetClassroomByCode(code)
		if err != nil {
			return err
		}
		if room == nil {
			return models.ErrClassroomNotFound
		}

		// Lock the two rows in name order so concurrent opposite-direction
		// swaps cannot deadlock
		first, second := studentA, studentB
		if second < first {
			first, second = second, first
		}
		locked := make(map[string]*models.Student, 2)
		for _, name := range []string{first, second} {
			student, err := repo.FindStudentForUpdate(room.ID, name)
			if err != nil {
				return err
			}
			locked[name] = student
		}
		a, b := locked[studentA], locked[studentB]
		if a == nil || b == nil {
			return errors.New("one or both students not found")
		}

		if !models.ContainsWord(a.Words, wordA) {
			return fmt.Errorf("%s does not own the word %q", studentA, wordA)
		}
		if !models.ContainsWord(b.Words, wordB) {
			return fmt.Errorf("%s does not own the word %q", studentB, wordB)
		}

		newA, newB := models.SwapDecks(a.Words, b.Words, wordA, wordB)
		if err := repo.UpdateStudentWords(a.ID, newA); err != nil {
			return err
		}
		return repo.UpdateStudentWords(b.ID, newB)
	})
}

// RecordPractice counts one practice attempt against a word the student holds
func (s *ClassroomService) RecordPractice(code, name, word string, correct bool) (*models.WordStat, error) {
	var stat *models.WordStat
	err := s.withTx(func(repo *repository.ClassroomRepository) error {
		student, err := s.findStudent(repo, code, name)
		if err != nil {
			return err
		}
		if !models.ContainsWord(student.Words, word) {
			return fmt.Errorf("%s does not have the word %q", name, word)
		}

		ws := student.WordStats[word]
		if ws == nil {
			ws = &models.WordStat{}
			student.WordStats[word] = ws
		}
		if correct {
			ws.Correct++
		} else {
			ws.Wrong++
		}
		stat = &models.WordStat{Correct: ws.Correct, Wrong: ws.Wrong}

		return repo.UpdateStudentStats(student.ID, student.WordStats)
	})
	return stat, err
}

// MyClassrooms lists the classrooms a teacher owns. A student counts as
// active when they were last seen within 24 hours.
func (s *ClassroomService) MyClassrooms(ownerID string) ([]models.ClassroomSummary, error) {
	cutoff := time.Now().Add(-24 * time.Hour)
	return repository.NewClassroomRepository(s.db).GetOwnedClassrooms(ownerID, cutoff)
}

// MyParticipations lists the classrooms a user has joined, each annotated
// with the user's current rank
func (s *ClassroomService) MyParticipations(userID string) ([]models.Participation, error) {
	repo := repository.NewClassroomRepository(s.db)
	parts, err := repo.GetParticipations(userID)
	if err != nil {
		return nil, err
	}

	for i := range parts {
		students, err := repo.ListStudents(parts[i].ClassroomID)
		if err != nil {
			return nil, err
		}
		entries := buildLeaderboard(students)
		parts[i].TotalStudents = len(entries)
		for _, e := range entries {
			if e.Name == parts[i].StudentName {
				parts[i].Rank = e.Rank
				break
			}
		}
	}
	return parts, nil
}

// StudentProgress builds a progress report for the signed-in user's own
// student record in a classroom
func (s *ClassroomService) StudentProgress(classroomID int64, userID string) (*models.StudentProgress, error) {
	repo := repository.NewClassroomRepository(s.db)
	room, err := repo.GetClassroomByID(classroomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}

	students, err := repo.ListStudents(room.ID)
	if err != nil {
		return nil, err
	}

	var student *models.Student
	entries := buildLeaderboard(students)
	rank := 0
	for i := range students {
		if students[i].UserID == userID {
			student = &students[i]
			rank = entries[i].Rank
			break
		}
	}
	if student == nil {
		return nil, models.ErrStudentNotFound
	}

	sessions, err := repo.GetStudentSessions(student.ID)
	if err != nil {
		return nil, err
	}

	return &models.StudentProgress{
		Classroom: models.ProgressClassroom{
			ID:        room.ID,
			Code:      room.Code,
			Name:      room.Name,
			WordCount: room.WordCount,
		},
		Student: models.ProgressStudent{
			Name:          student.Name,
			TotalTime:     student.TotalTime,
			Rank:          rank,
			TotalStudents: len(students),
			Mastery:       masteryPercent(student.WordStats),
			StudyDays:     studyDays(sessions),
			JoinedAt:      student.JoinedAt,
		},
		WordStats: student.WordStats,
		Sessions:  sessions,
	}, nil
}

// findStudent resolves a classroom code and student name to the student
// row, locked for the caller's transaction
func (s *ClassroomService) findStudent(repo *repository.ClassroomRepository, code, name string) (*models.Student, error) {
	room, err := repo.GetClassroomByCode(code)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}
	student, err := repo.FindStudentForUpdate(room.ID, name)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, models.ErrStudentNotFound
	}
	return student, nil
}

// buildLeaderboard annotates an already-ordered student list with ranks.
// Students must arrive sorted by total time descending, join time ascending.
func buildLeaderboard(students []models.Student) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, 0, len(students))
	for i, st := range students {
		entries = append(entries, models.LeaderboardEntry{
			Rank:         i + 1,
			Name:         st.Name,
			TotalTime:    st.TotalTime,
			TotalMinutes: st.TotalTime / 60,
			TotalSeconds: st.TotalTime % 60,
			IsActive:     st.SessionStart != nil,
			LastActive:   st.LastActive,
		})
	}
	return entries
}

// masteryPercent is the share of attempted words answered correctly at
// least 80% of the time, as a whole percentage. No attempts means zero.
func masteryPercent(stats map[string]*models.WordStat) int {
	attempted := 0
	mastered := 0
	for _, ws := range stats {
		total := ws.Correct + ws.Wrong
		if total == 0 {
			continue
		}
		attempted++
		if float64(ws.Correct)/float64(total) >= masteryThreshold {
			mastered++
		}
	}
	if attempted == 0 {
		return 0
	}
	return mastered * 100 / attempted
}

// studyDays counts the distinct calendar days on which sessions started
func studyDays(sessions []models.Session) int {
	days := make(map[string]bool)
	for _, s := range sessions {
		days[s.StartTime.Format("2006-01-02")] = true
	}
	return len(days)
}
