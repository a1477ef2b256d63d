package extract

import (
	"strings"
	"unicode"
)

// Symbol class stripped from every segment before filtering. Digits are
// stripped alongside it.
const strippedSymbols = "@#$&€=°:(){}|+~/`‘\\><™©®[]¥*»%¢"

const (
	// minClassifyLen is the shortest segment handed to the classifier
	// without padding.
	minClassifyLen = 7
	// paddedLen is the length short segments are right-padded to, so the
	// classifier's own minimum-length assumptions never apply.
	paddedLen = 8
	// padFiller is the padding character.
	padFiller = 'a'
)

// SplitSegments breaks raw extracted text into paragraph-like segments:
// blank lines separate segments, single newlines inside a segment become
// spaces. Whitespace-only segments are dropped.
func SplitSegments(raw string) []string {
	var out []string
	for _, block := range strings.Split(raw, "\n\n") {
		seg := strings.TrimSpace(strings.ReplaceAll(block, "\n", " "))
		if seg != "" {
			out = append(out, seg)
		}
	}
	return out
}

// StripNoise removes the fixed symbol class and all digit characters.
func StripNoise(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsDigit(r) || strings.ContainsRune(strippedSymbols, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// PadForClassifier right-pads segments shorter than minClassifyLen to
// paddedLen so the classifier sees a uniform minimum length. Longer segments
// pass through unchanged.
func PadForClassifier(s string) string {
	n := len([]rune(s))
	if n >= minClassifyLen {
		return s
	}
	return s + strings.Repeat(string(padFiller), paddedLen-n)
}
