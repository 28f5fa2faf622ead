package models

import (
	"reflect"
	"testing"
)

func TestRemoveWord(t *testing.T) {
	tests := []struct {
		name     string
		words    []string
		word     string
		expected []string
		found    bool
	}{
		{
			name:     "removes first occurrence and preserves order",
			words:    []string{"cat", "dog", "fish"},
			word:     "dog",
			expected: []string{"cat", "fish"},
			found:    true,
		},
		{
			name:     "missing word leaves deck unchanged",
			words:    []string{"cat", "dog"},
			word:     "bird",
			expected: []string{"cat", "dog"},
			found:    false,
		},
		{
			name:     "empty deck",
			words:    []string{},
			word:     "cat",
			expected: []string{},
			found:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := RemoveWord(tt.words, tt.word)
			if found != tt.found {
				t.Errorf("RemoveWord() found = %v, want %v", found, tt.found)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("RemoveWord() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSwapDecks(t *testing.T) {
	aliceBefore := []string{"cat", "dog", "fish"}
	bobBefore := []string{"cat", "dog", "fish"}

	// Alice gives "cat" for Bob's "fish"
	alice, bob := SwapDecks(aliceBefore, bobBefore, "cat", "fish")

	if !reflect.DeepEqual(alice, []string{"dog", "fish"}) {
		t.Errorf("alice deck = %v, want [dog fish]", alice)
	}
	if !reflect.DeepEqual(bob, []string{"dog", "cat"}) {
		t.Errorf("bob deck = %v, want [dog cat]", bob)
	}
}

func TestSwapDecksRoundTrip(t *testing.T) {
	alice := []string{"apple", "banana"}
	bob := []string{"cherry", "date"}

	a1, b1 := SwapDecks(alice, bob, "apple", "cherry")
	a2, b2 := SwapDecks(a1, b1, "cherry", "apple")

	if !sameContents(a2, alice) {
		t.Errorf("swap back did not restore alice's deck: %v", a2)
	}
	if !sameContents(b2, bob) {
		t.Errorf("swap back did not restore bob's deck: %v", b2)
	}
}

func TestHasVoted(t *testing.T) {
	req := &RemoveRequest{Votes: []string{"Alice", "Bob"}}

	if !req.HasVoted("Alice") {
		t.Error("expected Alice to have voted")
	}
	if req.HasVoted("Carol") {
		t.Error("Carol has not voted")
	}
}

func sameContents(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int)
	for _, w := range a {
		counts[w]++
	}
	for _, w := range b {
		counts[w]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
