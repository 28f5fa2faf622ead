package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"vocaroom/internal/database"
)

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string            `json:"version"`
	ExportedAt time.Time         `json:"exported_at"`
	Classrooms []ClassroomBackup `json:"classrooms"`
	Students   []StudentBackup   `json:"students"`
	Sessions   []SessionBackup   `json:"sessions"`
}

// ClassroomBackup represents a classroom record for backup. Word lists and
// stats travel as the raw JSON text stored in the database.
type ClassroomBackup struct {
	ID         int64     `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Words      string    `json:"words"`
	WordCount  int       `json:"word_count"`
	OwnerID    string    `json:"owner_id"`
	OwnerEmail string    `json:"owner_email"`
	IsPublic   bool      `json:"is_public"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StudentBackup represents a student record for backup
type StudentBackup struct {
	ID           int64      `json:"id"`
	ClassroomID  int64      `json:"classroom_id"`
	Name         string     `json:"name"`
	UserID       string     `json:"user_id"`
	Email        string     `json:"email"`
	Words        string     `json:"words"`
	WordStats    string     `json:"word_stats"`
	TotalTime    int        `json:"total_time"`
	SessionStart *time.Time `json:"session_start"`
	LastActive   time.Time  `json:"last_active"`
	JoinedAt     time.Time  `json:"joined_at"`
}

// SessionBackup represents a completed session record for backup
type SessionBackup struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	ClassroomID  int64     `json:"classroom_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Duration     int       `json:"duration"`
	WordsStudied string    `json:"words_studied"`
}

// BackupService handles database backup and restore operations
type BackupService struct {
	db *database.DB
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB) *BackupService {
	return &BackupService{db: db}
}

// Export creates a complete backup of the database to a file
func (s *BackupService) Export(outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	return s.ExportToWriter(file)
}

// ExportToWriter writes a complete backup as indented JSON
func (s *BackupService) ExportToWriter(w io.Writer) error {
	log.Println("Starting database export...")

	backup := &BackupData{
		Version:    "1.0",
		ExportedAt: time.Now(),
	}

	if err := s.exportClassrooms(backup); err != nil {
		return fmt.Errorf("failed to export classrooms: %w", err)
	}
	if err := s.exportStudents(backup); err != nil {
		return fmt.Errorf("failed to export students: %w", err)
	}
	if err := s.exportSessions(backup); err != nil {
		return fmt.Errorf("failed to export sessions: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}

	log.Printf("Exported: %d classrooms, %d students, %d sessions",
		len(backup.Classrooms), len(backup.Students), len(backup.Sessions))
	return nil
}

// Import restores a database from a backup file
func (s *BackupService) Import(inputPath string, clear bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	return s.ImportFromReader(file, clear)
}

// ImportFromReader restores a database from a backup stream. With clear set
// the existing tables are emptied first.
func (s *BackupService) ImportFromReader(reader io.Reader, clear bool) error {
	var backup BackupData
	if err := json.NewDecoder(reader).Decode(&backup); err != nil {
		return fmt.Errorf("failed to decode backup: %w", err)
	}

	log.Printf("Backup version: %s, exported at: %s", backup.Version, backup.ExportedAt)

	if clear {
		if err := s.clearTables(); err != nil {
			return fmt.Errorf("failed to clear tables: %w", err)
		}
	}

	// Import parents before children so foreign keys resolve
	if err := s.importClassrooms(backup.Classrooms); err != nil {
		return fmt.Errorf("failed to import classrooms: %w", err)
	}
	if err := s.importStudents(backup.Students); err != nil {
		return fmt.Errorf("failed to import students: %w", err)
	}
	if err := s.importSessions(backup.Sessions); err != nil {
		return fmt.Errorf("failed to import sessions: %w", err)
	}

	log.Println("Database import completed successfully")
	return nil
}

func (s *BackupService) exportClassrooms(backup *BackupData) error {
	query := `SELECT id, code, name, words, word_count, owner_id, owner_email, is_public, created_at, updated_at
		FROM classrooms ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var c ClassroomBackup
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Words, &c.WordCount,
			&c.OwnerID, &c.OwnerEmail, &c.IsPublic, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return err
		}
		backup.Classrooms = append(backup.Classrooms, c)
	}
	return rows.Err()
}

func (s *BackupService) exportStudents(backup *BackupData) error {
	query := `SELECT id, classroom_id, name, user_id, email, words, word_stats, total_time, session_start, last_active, joined_at
		FROM students ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var st StudentBackup
		var sessionStart sql.NullTime
		if err := rows.Scan(&st.ID, &st.ClassroomID, &st.Name, &st.UserID, &st.Email,
			&st.Words, &st.WordStats, &st.TotalTime, &sessionStart, &st.LastActive, &st.JoinedAt); err != nil {
			return err
		}
		if sessionStart.Valid {
			t := sessionStart.Time
			st.SessionStart = &t
		}
		backup.Students = append(backup.Students, st)
	}
	return rows.Err()
}

func (s *BackupService) exportSessions(backup *BackupData) error {
	query := `SELECT id, student_id, classroom_id, start_time, end_time, duration, words_studied
		FROM sessions ORDER BY id`
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var sess SessionBackup
		if err := rows.Scan(&sess.ID, &sess.StudentID, &sess.ClassroomID,
			&sess.StartTime, &sess.EndTime, &sess.Duration, &sess.WordsStudied); err != nil {
			return err
		}
		backup.Sessions = append(backup.Sessions, sess)
	}
	return rows.Err()
}

func (s *BackupService) clearTables() error {
	// Children first
	for _, table := range []string{"sessions", "students", "classrooms"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return err
		}
	}
	return nil
}

func (s *BackupService) importClassrooms(classrooms []ClassroomBackup) error {
	query := `INSERT INTO classrooms (id, code, name, words, word_count, owner_id, owner_email, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, c := range classrooms {
		if _, err := s.db.Exec(query, c.ID, c.Code, c.Name, c.Words, c.WordCount,
			c.OwnerID, c.OwnerEmail, c.IsPublic, c.CreatedAt, c.UpdatedAt); err != nil {
			return fmt.Errorf("classroom %s: %w", c.Code, err)
		}
	}
	return nil
}

func (s *BackupService) importStudents(students []StudentBackup) error {
	query := `INSERT INTO students (id, classroom_id, name, user_id, email, words, word_stats, total_time, session_start, last_active, joined_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for _, st := range students {
		var sessionStart interface{}
		if st.SessionStart != nil {
			sessionStart = *st.SessionStart
		}
		if _, err := s.db.Exec(query, st.ID, st.ClassroomID, st.Name, st.UserID, st.Email,
			st.Words, st.WordStats, st.TotalTime, sessionStart, st.LastActive, st.JoinedAt); err != nil {
			return fmt.Errorf("student %s: %w", st.Name, err)
		}
	}
	return nil
}

func (s *BackupService) importSessions(sessions []SessionBackup) error {
	query := `INSERT INTO sessions (id, student_id, classroom_id, start_time, end_time, duration, words_studied)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	for _, sess := range sessions {
		if _, err := s.db.Exec(query, sess.ID, sess.StudentID, sess.ClassroomID,
			sess.StartTime, sess.EndTime, sess.Duration, sess.WordsStudied); err != nil {
			return fmt.Errorf("session %d: %w", sess.ID, err)
		}
	}
	return nil
}
