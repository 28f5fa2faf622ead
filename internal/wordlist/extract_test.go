package wordlist

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"simple list",
			"cat dog fish",
			[]string{"cat", "dog", "fish"},
		},
		{
			"case folded and deduplicated",
			"Cat CAT cat Dog",
			[]string{"cat", "dog"},
		},
		{
			"punctuation and digits stripped",
			"1. apple, 2. banana; 3... cherry!",
			[]string{"apple", "banana", "cherry"},
		},
		{
			"apostrophes and hyphens kept",
			"don't ice-cream",
			[]string{"don't", "ice-cream"},
		},
		{
			"newlines and csv separators",
			"alpha,beta\ngamma\r\ndelta",
			[]string{"alpha", "beta", "gamma", "delta"},
		},
		{
			"empty input",
			"  \n\t ",
			[]string{},
		},
	}

	for _, tt := range tests {
		if got := Tokenize(tt.text); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: Tokenize() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTokenizeCap(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < MaxWords+50; i++ {
		sb.WriteString("w")
		sb.WriteString(strings.Repeat("a", i%20+1))
		// vary the suffix so words stay unique
		sb.WriteString(string(rune('a' + i%26)))
		sb.WriteString(" ")
	}

	got := Tokenize(sb.String())
	if len(got) > MaxWords {
		t.Errorf("Tokenize() returned %d words, cap is %d", len(got), MaxWords)
	}
}

func TestExtractTextFile(t *testing.T) {
	r := strings.NewReader("cat, dog\nfish")

	words, err := Extract("words.txt", r)
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if !reflect.DeepEqual(words, []string{"cat", "dog", "fish"}) {
		t.Errorf("Extract() = %v, want [cat dog fish]", words)
	}
}

func TestExtractRejectsUnknownTypes(t *testing.T) {
	if _, err := Extract("words.pdf", strings.NewReader("cat")); err == nil {
		t.Error("Extract() accepted an unsupported file type")
	}
	if _, err := Extract("noext", strings.NewReader("cat")); err == nil {
		t.Error("Extract() accepted a file without an extension")
	}
}
