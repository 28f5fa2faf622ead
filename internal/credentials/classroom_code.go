package credentials

import (
	"crypto/rand"
	"math/big"
)

// CodeLength is the length of every classroom join code
const CodeLength = 4

// codeAlphabet deliberately excludes lowercase so codes survive being
// read aloud or written on a whiteboard
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateClassroomCode generates a random 4-character code using uppercase
// letters and digits
func GenerateClassroomCode() (string, error) {
	code := make([]byte, CodeLength)

	for i := 0; i < CodeLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = codeAlphabet[num.Int64()]
	}

	return string(code), nil
}

// IsValidCode reports whether a string has the shape of a classroom code
func IsValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		c := code[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
