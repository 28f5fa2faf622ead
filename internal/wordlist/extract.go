package wordlist

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxWords caps how many words a single upload can contribute
const MaxWords = 500

// wordPattern matches vocabulary words: letters, optionally joined by a
// single apostrophe or hyphen (don't, ice-cream)
var wordPattern = regexp.MustCompile(`[a-zA-Z]+(?:['-][a-zA-Z]+)*`)

// textExtensions are the plain-text upload formats
var textExtensions = map[string]bool{
	".txt": true,
	".csv": true,
	".md":  true,
}

// Extract reads an uploaded vocabulary file and returns its words,
// lower-cased and de-duplicated in order of first appearance
func Extract(filename string, r io.Reader) ([]string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case textExtensions[ext]:
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read file: %w", err)
		}
		return Tokenize(string(data)), nil
	case ext == ".xlsx":
		return extractXLSX(r)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
}

// extractXLSX tokenizes every cell of the workbook's first sheet
func extractXLSX(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	var sb strings.Builder
	for _, row := range rows {
		for _, cell := range row {
			sb.WriteString(cell)
			sb.WriteString(" ")
		}
	}
	return Tokenize(sb.String()), nil
}

// Tokenize splits free text into unique lower-case vocabulary words,
// preserving first-appearance order and capping at MaxWords
func Tokenize(text string) []string {
	matches := wordPattern.FindAllString(text, -1)

	words := make([]string, 0, len(matches))
	seen := make(map[string]bool)
	for _, m := range matches {
		w := strings.ToLower(m)
		if seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
		if len(words) == MaxWords {
			break
		}
	}
	return words
}
