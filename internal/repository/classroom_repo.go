package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"vocaroom/internal/database"
	"vocaroom/internal/models"
)

// ClassroomRepository handles database operations for classrooms, students
// and sessions. It runs over any DBTX, so the same methods work standalone
// or inside a transaction.
type ClassroomRepository struct {
	db database.DBTX
}

// NewClassroomRepository creates a new classroom repository
func NewClassroomRepository(db database.DBTX) *ClassroomRepository {
	return &ClassroomRepository{db: db}
}

// CreateClassroom inserts a new classroom and returns it with its ID set
func (r *ClassroomRepository) CreateClassroom(code, name string, words []string, ownerID, ownerEmail string, isPublic bool) (*models.Classroom, error) {
	wordsJSON, err := marshalWords(words)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `INSERT INTO classrooms (code, name, words, word_count, owner_id, owner_email, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := r.db.ExecReturningID(query, code, name, wordsJSON, len(words), ownerID, ownerEmail, isPublic, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create classroom: %w", err)
	}

	return &models.Classroom{
		ID:         id,
		Code:       code,
		Name:       name,
		Words:      words,
		WordCount:  len(words),
		OwnerID:    ownerID,
		OwnerEmail: ownerEmail,
		IsPublic:   isPublic,
		Source:     models.SourceDatabase,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// CodeExists reports whether a classroom already uses the given code
func (r *ClassroomRepository) CodeExists(code string) (bool, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM classrooms WHERE code = ?", code).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check code: %w", err)
	}
	return count > 0, nil
}

// GetClassroomByCode retrieves a classroom by its join code.
// Returns nil if no classroom uses the code.
func (r *ClassroomRepository) GetClassroomByCode(code string) (*models.Classroom, error) {
	query := `SELECT id, code, name, words, word_count, owner_id, owner_email, is_public, created_at, updated_at
		FROM classrooms WHERE code = ?`
	return r.scanClassroom(r.db.QueryRow(query, code))
}

// GetClassroomByID retrieves a classroom by primary key.
// Returns nil if it does not exist.
func (r *ClassroomRepository) GetClassroomByID(id int64) (*models.Classroom, error) {
	query := `SELECT id, code, name, words, word_count, owner_id, owner_email, is_public, created_at, updated_at
		FROM classrooms WHERE id = ?`
	return r.scanClassroom(r.db.QueryRow(query, id))
}

func (r *ClassroomRepository) scanClassroom(row *sql.Row) (*models.Classroom, error) {
	var room models.Classroom
	var wordsJSON string
	err := row.Scan(
		&room.ID,
		&room.Code,
		&room.Name,
		&wordsJSON,
		&room.WordCount,
		&room.OwnerID,
		&room.OwnerEmail,
		&room.IsPublic,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get classroom: %w", err)
	}

	if room.Words, err = unmarshalWords(wordsJSON); err != nil {
		return nil, err
	}
	room.Source = models.SourceDatabase
	return &room, nil
}

// GetOwnedClassrooms lists a teacher's classrooms with student counts,
// newest first. Students active since activeCutoff count as active.
func (r *ClassroomRepository) GetOwnedClassrooms(ownerID string, activeCutoff time.Time) ([]models.ClassroomSummary, error) {
	query := `
		SELECT c.id, c.code, c.name, c.word_count, c.created_at, c.updated_at,
			COUNT(s.id),
			COALESCE(SUM(CASE WHEN s.last_active > ? THEN 1 ELSE 0 END), 0)
		FROM classrooms c
		LEFT JOIN students s ON s.classroom_id = c.id
		WHERE c.owner_id = ?
		GROUP BY c.id, c.code, c.name, c.word_count, c.created_at, c.updated_at
		ORDER BY c.created_at DESC
	`
	rows, err := r.db.Query(query, activeCutoff, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query classrooms: %w", err)
	}
	defer rows.Close()

	var summaries []models.ClassroomSummary
	for rows.Next() {
		var s models.ClassroomSummary
		if err := rows.Scan(
			&s.ID,
			&s.Code,
			&s.Name,
			&s.WordCount,
			&s.CreatedAt,
			&s.UpdatedAt,
			&s.StudentCount,
			&s.ActiveStudentCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan classroom summary: %w", err)
		}
		summaries = append(summaries, s)
	}

	return summaries, rows.Err()
}

// FindStudent retrieves a student by classroom and display name.
// Returns nil if the student has not joined.
func (r *ClassroomRepository) FindStudent(classroomID int64, name string) (*models.Student, error) {
	query := studentColumns + " WHERE classroom_id = ? AND name = ?"
	return r.scanStudent(r.db.QueryRow(query, classroomID, name))
}

// FindStudentForUpdate is FindStudent with the row locked until the
// surrounding transaction ends, so concurrent deck or session updates on
// the same student serialize instead of losing writes. Only meaningful
// inside a transaction; the lock clause is a no-op on SQLite.
func (r *ClassroomRepository) FindStudentForUpdate(classroomID int64, name string) (*models.Student, error) {
	query := studentColumns + " WHERE classroom_id = ? AND name = ?" + r.db.GetDialect().RowLockClause()
	return r.scanStudent(r.db.QueryRow(query, classroomID, name))
}

const studentColumns = `SELECT id, name, user_id, email, words, word_stats, total_time, session_start, last_active, joined_at
	FROM students`

func (r *ClassroomRepository) scanStudent(row *sql.Row) (*models.Student, error) {
	var student models.Student
	var wordsJSON, statsJSON string
	var sessionStart sql.NullTime
	err := row.Scan(
		&student.ID,
		&student.Name,
		&student.UserID,
		&student.Email,
		&wordsJSON,
		&statsJSON,
		&student.TotalTime,
		&sessionStart,
		&student.LastActive,
		&student.JoinedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	if student.Words, err = unmarshalWords(wordsJSON); err != nil {
		return nil, err
	}
	if student.WordStats, err = unmarshalStats(statsJSON); err != nil {
		return nil, err
	}
	if sessionStart.Valid {
		t := sessionStart.Time
		student.SessionStart = &t
	}
	return &student, nil
}

// CreateStudent inserts a student with a personal copy of the classroom words
func (r *ClassroomRepository) CreateStudent(classroomID int64, name, userID, email string, words []string) (*models.Student, error) {
	wordsJSON, err := marshalWords(words)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	query := `INSERT INTO students (classroom_id, name, user_id, email, words, word_stats, total_time, last_active, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)`
	id, err := r.db.ExecReturningID(query, classroomID, name, userID, email, wordsJSON, "{}", now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create student: %w", err)
	}

	return &models.Student{
		ID:         id,
		Name:       name,
		UserID:     userID,
		Email:      email,
		Words:      words,
		WordStats:  make(map[string]*models.WordStat),
		LastActive: now,
		JoinedAt:   now,
	}, nil
}

// ListStudents returns every student in a classroom ordered for the
// leaderboard: most accumulated time first, earlier joiners winning ties
func (r *ClassroomRepository) ListStudents(classroomID int64) ([]models.Student, error) {
	query := studentColumns + ` WHERE classroom_id = ?
		ORDER BY total_time DESC, joined_at ASC`
	rows, err := r.db.Query(query, classroomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query students: %w", err)
	}
	defer rows.Close()

	var students []models.Student
	for rows.Next() {
		var student models.Student
		var wordsJSON, statsJSON string
		var sessionStart sql.NullTime
		if err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.UserID,
			&student.Email,
			&wordsJSON,
			&statsJSON,
			&student.TotalTime,
			&sessionStart,
			&student.LastActive,
			&student.JoinedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan student: %w", err)
		}
		if student.Words, err = unmarshalWords(wordsJSON); err != nil {
			return nil, err
		}
		if student.WordStats, err = unmarshalStats(statsJSON); err != nil {
			return nil, err
		}
		if sessionStart.Valid {
			t := sessionStart.Time
			student.SessionStart = &t
		}
		students = append(students, student)
	}

	return students, rows.Err()
}

// UpdateSessionStart sets or clears the student's running-session marker
func (r *ClassroomRepository) UpdateSessionStart(studentID int64, start *time.Time) error {
	var value interface{}
	if start != nil {
		value = *start
	}
	_, err := r.db.Exec("UPDATE students SET session_start = ?, last_active = ? WHERE id = ?",
		value, time.Now(), studentID)
	if err != nil {
		return fmt.Errorf("failed to update session start: %w", err)
	}
	return nil
}

// AddTotalTime credits completed seconds and clears the session marker
func (r *ClassroomRepository) AddTotalTime(studentID int64, seconds int) error {
	_, err := r.db.Exec(`UPDATE students SET total_time = total_time + ?, session_start = NULL, last_active = ? WHERE id = ?`,
		seconds, time.Now(), studentID)
	if err != nil {
		return fmt.Errorf("failed to add total time: %w", err)
	}
	return nil
}

// UpdateStudentWords replaces the student's personal deck
func (r *ClassroomRepository) UpdateStudentWords(studentID int64, words []string) error {
	wordsJSON, err := marshalWords(words)
	if err != nil {
		return err
	}
	_, err = r.db.Exec("UPDATE students SET words = ?, last_active = ? WHERE id = ?",
		wordsJSON, time.Now(), studentID)
	if err != nil {
		return fmt.Errorf("failed to update words: %w", err)
	}
	return nil
}

// UpdateStudentStats replaces the student's per-word practice counters
func (r *ClassroomRepository) UpdateStudentStats(studentID int64, stats map[string]*models.WordStat) error {
	statsJSON, err := marshalStats(stats)
	if err != nil {
		return err
	}
	_, err = r.db.Exec("UPDATE students SET word_stats = ?, last_active = ? WHERE id = ?",
		statsJSON, time.Now(), studentID)
	if err != nil {
		return fmt.Errorf("failed to update word stats: %w", err)
	}
	return nil
}

// CreateSession records one completed learning session
func (r *ClassroomRepository) CreateSession(studentID, classroomID int64, start, end time.Time, duration int, wordsStudied []string) error {
	wordsJSON, err := marshalWords(wordsStudied)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`INSERT INTO sessions (student_id, classroom_id, start_time, end_time, duration, words_studied)
		VALUES (?, ?, ?, ?, ?, ?)`,
		studentID, classroomID, start, end, duration, wordsJSON)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetStudentSessions returns a student's completed sessions, newest first
func (r *ClassroomRepository) GetStudentSessions(studentID int64) ([]models.Session, error) {
	query := `SELECT id, start_time, end_time, duration, words_studied
		FROM sessions WHERE student_id = ?
		ORDER BY start_time DESC`
	rows, err := r.db.Query(query, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		var wordsJSON string
		if err := rows.Scan(&s.ID, &s.StartTime, &s.EndTime, &s.Duration, &wordsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		if s.WordsStudied, err = unmarshalWords(wordsJSON); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	return sessions, rows.Err()
}

// GetParticipations lists every classroom a user has joined as a student
func (r *ClassroomRepository) GetParticipations(userID string) ([]models.Participation, error) {
	query := `
		SELECT c.id, c.code, c.name, s.name, s.total_time, s.joined_at, s.last_active
		FROM students s
		JOIN classrooms c ON c.id = s.classroom_id
		WHERE s.user_id = ?
		ORDER BY s.last_active DESC
	`
	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participations: %w", err)
	}
	defer rows.Close()

	var parts []models.Participation
	for rows.Next() {
		var p models.Participation
		if err := rows.Scan(
			&p.ClassroomID,
			&p.ClassroomCode,
			&p.ClassroomName,
			&p.StudentName,
			&p.TotalTime,
			&p.JoinedAt,
			&p.LastActive,
		); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		parts = append(parts, p)
	}

	return parts, rows.Err()
}

func marshalWords(words []string) (string, error) {
	if words == nil {
		words = []string{}
	}
	b, err := json.Marshal(words)
	if err != nil {
		return "", fmt.Errorf("failed to marshal words: %w", err)
	}
	return string(b), nil
}

func unmarshalWords(data string) ([]string, error) {
	if data == "" {
		return []string{}, nil
	}
	var words []string
	if err := json.Unmarshal([]byte(data), &words); err != nil {
		return nil, fmt.Errorf("failed to unmarshal words: %w", err)
	}
	return words, nil
}

func marshalStats(stats map[string]*models.WordStat) (string, error) {
	if stats == nil {
		stats = map[string]*models.WordStat{}
	}
	b, err := json.Marshal(stats)
	if err != nil {
		return "", fmt.Errorf("failed to marshal word stats: %w", err)
	}
	return string(b), nil
}

func unmarshalStats(data string) (map[string]*models.WordStat, error) {
	if data == "" {
		return map[string]*models.WordStat{}, nil
	}
	var stats map[string]*models.WordStat
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal word stats: %w", err)
	}
	if stats == nil {
		stats = map[string]*models.WordStat{}
	}
	return stats, nil
}
