package chunker

import (
	"strings"

	"github.com/dgallion1/docslice/internal/document"
)

// Classify derives structural feature counts and a chunk type from
// chunk text. It is a pure function: same text, same answer.
func Classify(text string) (document.ChunkType, document.ContentFeatures) {
	var f document.ContentFeatures
	for _, line := range strings.Split(text, "\n") {
		s := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(s, "#"):
			f.HeadingCount++
		case isListItem(s):
			f.ListCount++
		}
		if strings.Count(s, "|") >= 2 {
			f.TableCount++
		}
	}
	f.EquationCount = countEquations(text)

	switch {
	case f.TableCount > 0 && f.EquationCount > 0:
		return document.TypeMixed, f
	case f.TableCount > 0:
		return document.TypeTable, f
	case f.EquationCount > 0:
		return document.TypeEquation, f
	default:
		return document.TypeText, f
	}
}

// isListItem reports whether a trimmed line looks like a markdown list
// entry, bulleted or numbered.
func isListItem(s string) bool {
	if len(s) >= 2 && (s[0] == '-' || s[0] == '*' || s[0] == '+') && s[1] == ' ' {
		return true
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' '
}

// countEquations counts paired math delimiters: $$...$$ display blocks
// plus leftover $...$ inline spans.
func countEquations(text string) int {
	doubles := strings.Count(text, "$$")
	singles := strings.Count(text, "$") - 2*doubles
	return doubles/2 + singles/2
}
