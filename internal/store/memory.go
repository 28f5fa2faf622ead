package store

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocaroom/internal/credentials"
	"vocaroom/internal/models"
)

// maxCodeAttempts bounds the rejection-sampling loop for join codes
const maxCodeAttempts = 100

// MemoryStore holds anonymous classrooms in process memory. Everything here
// is lost on restart; classrooms expire after the configured TTL and are
// never visible past their expiry. All mutating operations take the store
// lock so swaps and votes are atomic under concurrent requests.
type MemoryStore struct {
	mu         sync.Mutex
	classrooms map[string]*memClassroom
	ttl        time.Duration
	voteQuota  int
	now        func() time.Time
}

type memClassroom struct {
	info     models.Classroom
	students []*models.Student
	requests []*models.RemoveRequest
}

// NewMemoryStore creates an empty store. ttl is how long a classroom lives;
// voteQuota is the number of unique votes that approves a remove request.
func NewMemoryStore(ttl time.Duration, voteQuota int) *MemoryStore {
	return &MemoryStore{
		classrooms: make(map[string]*memClassroom),
		ttl:        ttl,
		voteQuota:  voteQuota,
		now:        time.Now,
	}
}

// CreateClassroom creates an anonymous classroom with a fresh unique code
func (s *MemoryStore) CreateClassroom(name string, words []string) (*models.Classroom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, err := s.uniqueCodeLocked()
	if err != nil {
		return nil, err
	}

	now := s.now()
	expires := now.Add(s.ttl)
	room := &memClassroom{
		info: models.Classroom{
			Code:      code,
			Name:      name,
			Words:     append([]string(nil), words...),
			WordCount: len(words),
			IsPublic:  true,
			Source:    models.SourceMemory,
			CreatedAt: now,
			UpdatedAt: now,
			ExpiresAt: &expires,
		},
	}
	s.classrooms[code] = room

	return cloneClassroom(&room.info), nil
}

// GetClassroom returns a snapshot of the classroom, or nil if it does not
// exist or has expired
func (s *MemoryStore) GetClassroom(code string) *models.Classroom {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil
	}
	return cloneClassroom(&room.info)
}

// AddStudent joins a student to a classroom. Joining twice with the same
// name returns the existing student unchanged.
func (s *MemoryStore) AddStudent(code, name string) (*models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}

	if existing := room.findStudent(name); existing != nil {
		return cloneStudent(existing), nil
	}

	now := s.now()
	student := &models.Student{
		Name:       name,
		Words:      append([]string(nil), room.info.Words...),
		WordStats:  make(map[string]*models.WordStat),
		LastActive: now,
		JoinedAt:   now,
	}
	room.students = append(room.students, student)

	return cloneStudent(student), nil
}

// StartSession marks the student as actively learning. Starting while a
// session is already running restarts the timer; the abandoned partial
// interval is discarded.
func (s *MemoryStore) StartSession(code, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.findStudentLocked(code, name)
	if err != nil {
		return err
	}

	now := s.now()
	student.SessionStart = &now
	student.LastActive = now
	return nil
}

// EndSession closes the student's running session and returns its duration
// in seconds. Without a running session it is a no-op returning
// models.ErrNoActiveSession; totalTime is never altered in that case.
func (s *MemoryStore) EndSession(code, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.findStudentLocked(code, name)
	if err != nil {
		return 0, err
	}

	if student.SessionStart == nil {
		return 0, models.ErrNoActiveSession
	}

	now := s.now()
	duration := int(now.Sub(*student.SessionStart).Seconds())
	if duration < 0 {
		duration = 0
	}

	student.TotalTime += duration
	student.SessionStart = nil
	student.LastActive = now

	return duration, nil
}

// Leaderboard returns students ranked by accumulated time, descending.
// Ties keep join order, so the longer-standing student takes the lower rank.
func (s *MemoryStore) Leaderboard(code string) ([]models.LeaderboardEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}
	return room.leaderboard(), nil
}

// StudentStatus returns the student's accumulated time, activity flag and
// current rank within the classroom
func (s *MemoryStore) StudentStatus(code, name string) (*models.StudentStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}

	student := room.findStudent(name)
	if student == nil {
		return nil, models.ErrStudentNotFound
	}

	entries := room.leaderboard()
	status := &models.StudentStatus{
		Name:          student.Name,
		TotalTime:     student.TotalTime,
		IsActive:      student.SessionStart != nil,
		TotalStudents: len(entries),
	}
	for _, e := range entries {
		if e.Name == student.Name {
			status.Rank = e.Rank
			break
		}
	}
	return status, nil
}

// SwapWords trades wordA from studentA for wordB from studentB. Both
// students must currently own the word they offer; on any failure neither
// deck is touched.
func (s *MemoryStore) SwapWords(code, studentA, wordA, studentB, wordB string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return models.ErrClassroomNotFound
	}

	a := room.findStudent(studentA)
	b := room.findStudent(studentB)
	if a == nil || b == nil {
		return errors.New("one or both students not found")
	}

	if !models.ContainsWord(a.Words, wordA) {
		return fmt.Errorf("%s does not own the word %q", studentA, wordA)
	}
	if !models.ContainsWord(b.Words, wordB) {
		return fmt.Errorf("%s does not own the word %q", studentB, wordB)
	}

	a.Words, b.Words = models.SwapDecks(a.Words, b.Words, wordA, wordB)
	now := s.now()
	a.LastActive = now
	b.LastActive = now
	return nil
}

// RecordPractice counts one practice attempt for a word the student holds.
// Practicing an unassigned word is rejected so stats stay honest.
func (s *MemoryStore) RecordPractice(code, name, word string, correct bool) (*models.WordStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	student, err := s.findStudentLocked(code, name)
	if err != nil {
		return nil, err
	}

	if !models.ContainsWord(student.Words, word) {
		return nil, fmt.Errorf("%s does not have the word %q", name, word)
	}

	stat := student.WordStats[word]
	if stat == nil {
		stat = &models.WordStat{}
		student.WordStats[word] = stat
	}
	if correct {
		stat.Correct++
	} else {
		stat.Wrong++
	}
	student.LastActive = s.now()

	return &models.WordStat{Correct: stat.Correct, Wrong: stat.Wrong}, nil
}

// RequestRemoveWord opens a pending vote to delete a word from the target
// student's deck
func (s *MemoryStore) RequestRemoveWord(code, targetStudent, word, requestedBy string) (*models.RemoveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}

	target := room.findStudent(targetStudent)
	if target == nil {
		return nil, models.ErrStudentNotFound
	}
	if !models.ContainsWord(target.Words, word) {
		return nil, fmt.Errorf("%s does not have the word %q", targetStudent, word)
	}

	req := &models.RemoveRequest{
		ID:            uuid.New().String(),
		TargetStudent: targetStudent,
		Word:          word,
		RequestedBy:   requestedBy,
		Votes:         []string{},
		Status:        models.RequestPending,
		CreatedAt:     s.now(),
	}
	room.requests = append(room.requests, req)

	return cloneRequest(req), nil
}

// VoteRemoveRequest adds one approval vote. Votes from a name already
// counted are ignored, and resolved requests no longer change. Reaching the
// quota approves the request and deletes the word from the target's deck.
func (s *MemoryStore) VoteRemoveRequest(code, requestID, voterName string) (*models.RemoveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}

	req := room.findRequest(requestID)
	if req == nil {
		return nil, models.ErrRequestNotFound
	}

	if req.Status != models.RequestPending || req.HasVoted(voterName) {
		return cloneRequest(req), nil
	}

	req.Votes = append(req.Votes, voterName)

	if len(req.Votes) >= s.voteQuota {
		req.Status = models.RequestApproved
		if target := room.findStudent(req.TargetStudent); target != nil {
			var removed bool
			target.Words, removed = models.RemoveWord(target.Words, req.Word)
			if !removed {
				// Word already gone, usually through a swap that raced the vote
				log.Printf("remove request %s approved but %s no longer holds %q", req.ID, req.TargetStudent, req.Word)
			}
		}
	}

	return cloneRequest(req), nil
}

// GetRemoveRequest returns the request by ID, resolved or not
func (s *MemoryStore) GetRemoveRequest(code, requestID string) (*models.RemoveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}

	req := room.findRequest(requestID)
	if req == nil {
		return nil, models.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

// GetAllRemoveRequests lists every remove request in the classroom,
// including resolved ones, oldest first
func (s *MemoryStore) GetAllRemoveRequests(code string) ([]models.RemoveRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}

	out := make([]models.RemoveRequest, 0, len(room.requests))
	for _, req := range room.requests {
		out = append(out, *cloneRequest(req))
	}
	return out, nil
}

// Sweep drops expired classrooms and returns how many were removed.
// Expiry is also enforced lazily on every lookup, so the sweep only
// reclaims memory.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for code, room := range s.classrooms {
		if room.info.ExpiresAt != nil && now.After(*room.info.ExpiresAt) {
			delete(s.classrooms, code)
			removed++
		}
	}
	return removed
}

// Len returns the number of live classrooms
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	now := s.now()
	for _, room := range s.classrooms {
		if room.info.ExpiresAt == nil || !now.After(*room.info.ExpiresAt) {
			n++
		}
	}
	return n
}

// liveClassroomLocked returns the classroom if present and unexpired,
// purging it when past its expiry. Callers must hold s.mu.
func (s *MemoryStore) liveClassroomLocked(code string) *memClassroom {
	room, ok := s.classrooms[code]
	if !ok {
		return nil
	}
	if room.info.ExpiresAt != nil && s.now().After(*room.info.ExpiresAt) {
		delete(s.classrooms, code)
		return nil
	}
	return room
}

func (s *MemoryStore) findStudentLocked(code, name string) (*models.Student, error) {
	room := s.liveClassroomLocked(code)
	if room == nil {
		return nil, models.ErrClassroomNotFound
	}
	student := room.findStudent(name)
	if student == nil {
		return nil, models.ErrStudentNotFound
	}
	return student, nil
}

func (s *MemoryStore) uniqueCodeLocked() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := credentials.GenerateClassroomCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.classrooms[code]; !taken {
			return code, nil
		}
	}
	return "", errors.New("failed to generate a unique classroom code")
}

func (c *memClassroom) findStudent(name string) *models.Student {
	for _, s := range c.students {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (c *memClassroom) findRequest(id string) *models.RemoveRequest {
	for _, r := range c.requests {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// leaderboard ranks students by totalTime descending. sort.SliceStable
// keeps join order for equal times.
func (c *memClassroom) leaderboard() []models.LeaderboardEntry {
	students := append([]*models.Student(nil), c.students...)
	sortStudentsByTime(students)

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

func sortStudentsByTime(students []*models.Student) {
	sort.SliceStable(students, func(i, j int) bool {
		return students[i].TotalTime > students[j].TotalTime
	})
}

func cloneClassroom(c *models.Classroom) *models.Classroom {
	out := *c
	out.Words = append([]string(nil), c.Words...)
	if c.ExpiresAt != nil {
		t := *c.ExpiresAt
		out.ExpiresAt = &t
	}
	return &out
}

func cloneStudent(s *models.Student) *models.Student {
	out := *s
	out.Words = append([]string(nil), s.Words...)
	out.WordStats = make(map[string]*models.WordStat, len(s.WordStats))
	for w, stat := range s.WordStats {
		copied := *stat
		out.WordStats[w] = &copied
	}
	if s.SessionStart != nil {
		t := *s.SessionStart
		out.SessionStart = &t
	}
	return &out
}

func cloneRequest(r *models.RemoveRequest) *models.RemoveRequest {
	out := *r
	out.Votes = append([]string(nil), r.Votes...)
	return &out
}
