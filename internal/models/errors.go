package models

import "errors"

// Lookup and state failures shared by both storage backends. The manager
// converts these into failed results; they never escape as panics or raw
// driver errors.
var (
	ErrClassroomNotFound = errors.New("classroom not found")
	ErrStudentNotFound   = errors.New("student not found")
	ErrRequestNotFound   = errors.New("request not found")
	ErrNoActiveSession   = errors.New("no active session")
)
