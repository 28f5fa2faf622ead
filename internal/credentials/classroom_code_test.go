package credentials

import "testing"

func TestGenerateClassroomCode(t *testing.T) {
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := GenerateClassroomCode()
		if err != nil {
			t.Fatalf("GenerateClassroomCode() error: %v", err)
		}
		if len(code) != CodeLength {
			t.Fatalf("code %q has length %d, want %d", code, len(code), CodeLength)
		}
		if !IsValidCode(code) {
			t.Fatalf("generated code %q is not valid", code)
		}
		seen[code] = true
	}

	// 100 draws from a 36^4 space should not all collide
	if len(seen) < 2 {
		t.Error("expected some variety in generated codes")
	}
}

func TestIsValidCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"AB12", true},
		{"ZZZZ", true},
		{"0000", true},
		{"ab12", false},
		{"ABC", false},
		{"ABCDE", false},
		{"AB-1", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsValidCode(tt.code); got != tt.valid {
			t.Errorf("IsValidCode(%q) = %v, want %v", tt.code, got, tt.valid)
		}
	}
}
