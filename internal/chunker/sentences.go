package chunker

import "strings"

// SplitSentences splits a text block into ordered, trimmed, non-empty
// sentence units. Internal newlines are collapsed to single spaces
// first; a boundary is any '.', '!' or '?' followed by whitespace.
// This is a heuristic, not a linguistic sentence-boundary detector: it
// does not special-case abbreviations, decimal numbers, or inline math
// delimiters. Downstream stages carry whatever pieces result verbatim.
func SplitSentences(block string) []string {
	flat := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(block)

	var sentences []string
	var current strings.Builder
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(flat)
	for i, r := range runes {
		current.WriteRune(r)
		if sentenceEnd(r) && i+1 < len(runes) && blank(runes[i+1]) {
			flush()
		}
	}
	flush()

	return sentences
}

func sentenceEnd(r rune) bool { return r == '.' || r == '!' || r == '?' }

func blank(r rune) bool { return r == ' ' || r == '\t' }
