package extract

import (
	"strings"
	"sync"
	"unicode"
)

// GibberishClassifier is the default plausibility classifier: a cheap
// character-composition heuristic. Real text has a vowel share somewhere in
// the middle of the distribution and no pathological consonant runs; OCR
// noise usually fails one of the two.
type GibberishClassifier struct{}

const (
	minVowelRatio        = 0.15
	maxVowelRatio        = 0.80
	maxConsonantRun      = 6
	minLettersForVerdict = 3
)

func (GibberishClassifier) Plausible(segment string) bool {
	letters, vowels, maxRun := 0, 0, 0
	run := 0
	for _, r := range strings.ToLower(segment) {
		if !unicode.IsLetter(r) {
			run = 0
			continue
		}
		letters++
		if isVowel(r) {
			vowels++
			run = 0
			continue
		}
		run++
		if run > maxRun {
			maxRun = run
		}
	}
	if letters < minLettersForVerdict {
		return false
	}
	ratio := float64(vowels) / float64(letters)
	return ratio >= minVowelRatio && ratio <= maxVowelRatio && maxRun <= maxConsonantRun
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

// CachedClassifier memoizes classifier verdicts for the process lifetime.
// The wrapped classifier is deterministic, so a cached verdict is always the
// verdict.
type CachedClassifier struct {
	inner Classifier

	mu   sync.Mutex
	seen map[string]bool
}

func NewCachedClassifier(inner Classifier) *CachedClassifier {
	return &CachedClassifier{inner: inner, seen: make(map[string]bool)}
}

func (c *CachedClassifier) Plausible(segment string) bool {
	c.mu.Lock()
	verdict, ok := c.seen[segment]
	c.mu.Unlock()
	if ok {
		return verdict
	}
	verdict = c.inner.Plausible(segment)
	c.mu.Lock()
	c.seen[segment] = verdict
	c.mu.Unlock()
	return verdict
}
