package utils

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateEmail checks if an email address is valid
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ValidationError{Field: "email", Message: "email is required"}
	}
	if !emailRegex.MatchString(email) {
		return ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateClassroomName checks a classroom name
func ValidateClassroomName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "classroomName", Message: "classroom name is required"}
	}
	if len(name) > 100 {
		return ValidationError{Field: "classroomName", Message: "classroom name must be at most 100 characters"}
	}
	return nil
}

// ValidateStudentName checks a student display name
func ValidateStudentName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ValidationError{Field: "studentName", Message: "student name is required"}
	}
	if len(name) > 50 {
		return ValidationError{Field: "studentName", Message: "student name must be at most 50 characters"}
	}
	return nil
}
