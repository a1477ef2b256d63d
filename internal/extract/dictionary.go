package extract

import (
	_ "embed"
	"os"
	"strings"
	"unicode"
)

//go:embed words.txt
var embeddedWords string

// sensibleRatio is the minimum share of tokens that must be dictionary words
// for a segment to pass the second-pass check.
const sensibleRatio = 0.4

// Dictionary backs the optional second-pass token check.
type Dictionary struct {
	words map[string]struct{}
}

// DefaultDictionary returns the embedded common-words list.
func DefaultDictionary() *Dictionary {
	return newDictionary(embeddedWords)
}

// LoadDictionary reads a newline-delimited word list from disk, for
// deployments with a fuller corpus than the embedded one.
func LoadDictionary(path string) (*Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return newDictionary(string(data)), nil
}

func newDictionary(raw string) *Dictionary {
	words := make(map[string]struct{})
	for _, line := range strings.Split(raw, "\n") {
		w := strings.ToLower(strings.TrimSpace(line))
		if w != "" {
			words[w] = struct{}{}
		}
	}
	return &Dictionary{words: words}
}

// Sensible reports whether at least sensibleRatio of the segment's tokens
// are recognized words. A segment with no tokens is not sensible.
func (d *Dictionary) Sensible(segment string) bool {
	tokens := tokenize(segment)
	if len(tokens) == 0 {
		return false
	}
	known := 0
	for _, t := range tokens {
		if _, ok := d.words[t]; ok {
			known++
		}
	}
	return float64(known)/float64(len(tokens)) >= sensibleRatio
}

// tokenize lowercases and splits on anything that is not a letter.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
