package models

import "time"

// Storage backends a classroom can live in. The source tag is carried on
// every classroom returned by the manager so callers can report the
// persistence mode to the end user.
const (
	SourceMemory   = "memory"
	SourceDatabase = "database"
)

// Remove request states
const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

// Classroom is a named, coded collection of vocabulary words and joined students
type Classroom struct {
	ID         int64      `json:"id,omitempty"` // database mode only
	Code       string     `json:"code"`
	Name       string     `json:"name"`
	Words      []string   `json:"words"`
	WordCount  int        `json:"wordCount"`
	OwnerID    string     `json:"ownerId,omitempty"`
	OwnerEmail string     `json:"ownerEmail,omitempty"`
	IsPublic   bool       `json:"isPublic"`
	Source     string     `json:"source,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"` // memory mode only
}

// WordStat counts practice outcomes for a single word
type WordStat struct {
	Correct int `json:"correct"`
	Wrong   int `json:"wrong"`
}

// Student is a member of a classroom. Words is the student's personal deck,
// copied from the classroom at join time and independently mutable.
type Student struct {
	ID           int64                `json:"-"`
	Name         string               `json:"name"`
	UserID       string               `json:"userId,omitempty"`
	Email        string               `json:"email,omitempty"`
	Words        []string             `json:"words"`
	WordStats    map[string]*WordStat `json:"wordStats"`
	TotalTime    int                  `json:"totalTime"` // accumulated seconds
	SessionStart *time.Time           `json:"sessionStart,omitempty"`
	LastActive   time.Time            `json:"lastActive"`
	JoinedAt     time.Time            `json:"joinedAt"`
}

// Session is an immutable record of one completed learning session
// (database mode only; memory mode reports durations without history)
type Session struct {
	ID           int64     `json:"id"`
	StartTime    time.Time `json:"startTime"`
	EndTime      time.Time `json:"endTime"`
	Duration     int       `json:"duration"` // seconds
	WordsStudied []string  `json:"wordsStudied"`
}

// RemoveRequest is a community-voted proposal to delete a word from a
// student's deck. Retained after resolution for status display.
type RemoveRequest struct {
	ID            string    `json:"requestId"`
	TargetStudent string    `json:"targetStudent"`
	Word          string    `json:"word"`
	RequestedBy   string    `json:"requestedBy"`
	Votes         []string  `json:"votes"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

// HasVoted reports whether the named student already voted on the request
func (r *RemoveRequest) HasVoted(name string) bool {
	for _, v := range r.Votes {
		if v == name {
			return true
		}
	}
	return false
}

// LeaderboardEntry is one ranked row of a classroom leaderboard
type LeaderboardEntry struct {
	Rank         int       `json:"rank"`
	Name         string    `json:"name"`
	TotalTime    int       `json:"totalTime"`
	TotalMinutes int       `json:"totalMinutes"`
	TotalSeconds int       `json:"totalSeconds"`
	IsActive     bool      `json:"isActive"`
	LastActive   time.Time `json:"lastActive"`
}

// StudentStatus summarises a single student's standing in a classroom
type StudentStatus struct {
	Name          string `json:"name"`
	TotalTime     int    `json:"totalTime"`
	IsActive      bool   `json:"isActive"`
	Rank          int    `json:"rank"`
	TotalStudents int    `json:"totalStudents"`
}

// ClassroomSummary is an owner-facing listing entry with aggregate counts
type ClassroomSummary struct {
	ID                 int64     `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	WordCount          int       `json:"wordCount"`
	StudentCount       int       `json:"studentCount"`
	ActiveStudentCount int       `json:"activeStudentCount"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// Participation is one classroom a user has joined as a student
type Participation struct {
	ClassroomID   int64     `json:"classroomId"`
	ClassroomCode string    `json:"classroomCode"`
	ClassroomName string    `json:"classroomName"`
	StudentName   string    `json:"studentName"`
	TotalTime     int       `json:"totalTime"`
	Rank          int       `json:"rank"`
	TotalStudents int       `json:"totalStudents"`
	JoinedAt      time.Time `json:"joinedAt"`
	LastActive    time.Time `json:"lastActive"`
}

// StudentProgress aggregates everything known about one student's learning
type StudentProgress struct {
	Classroom ProgressClassroom    `json:"classroom"`
	Student   ProgressStudent      `json:"student"`
	WordStats map[string]*WordStat `json:"wordStats"`
	Sessions  []Session            `json:"sessions"`
}

// ProgressClassroom is the classroom header of a progress report
type ProgressClassroom struct {
	ID        int64  `json:"id"`
	Code      string `json:"code"`
	Name      string `json:"name"`
	WordCount int    `json:"wordCount"`
}

// ProgressStudent is the student summary of a progress report
type ProgressStudent struct {
	Name          string    `json:"name"`
	TotalTime     int       `json:"totalTime"`
	Rank          int       `json:"rank"`
	TotalStudents int       `json:"totalStudents"`
	Mastery       int       `json:"mastery"`   // percent of attempted words at >=80% accuracy
	StudyDays     int       `json:"studyDays"` // distinct calendar days with a session
	JoinedAt      time.Time `json:"joinedAt"`
}

// ContainsWord reports whether a deck holds the given word
func ContainsWord(words []string, word string) bool {
	for _, w := range words {
		if w == word {
			return true
		}
	}
	return false
}

// RemoveWord returns the deck without the first occurrence of word,
// preserving the order of the remaining elements.
func RemoveWord(words []string, word string) ([]string, bool) {
	for i, w := range words {
		if w == word {
			out := make([]string, 0, len(words)-1)
			out = append(out, words[:i]...)
			out = append(out, words[i+1:]...)
			return out, true
		}
	}
	return words, false
}

// SwapDecks applies a word swap to two decks: each deck loses the word it
// offered and gains the word it received, appended at the end. A deck never
// ends up holding the same word twice; an older occurrence of the received
// word is dropped in favour of the appended one. Callers must have verified
// ownership of the offered words beforehand.
func SwapDecks(wordsA, wordsB []string, wordA, wordB string) ([]string, []string) {
	newA, _ := RemoveWord(wordsA, wordA)
	newA, _ = RemoveWord(newA, wordB)
	newA = append(newA, wordB)

	newB, _ := RemoveWord(wordsB, wordB)
	newB, _ = RemoveWord(newB, wordA)
	newB = append(newB, wordA)

	return newA, newB
}
