package chunker

import (
	"strings"

	"github.com/dgallion1/docslice/internal/document"
)

// preambleSection names text that appears before the first heading.
const preambleSection = "Document"

// maxPathDepth caps how many heading levels a section path records.
// Headings deeper than this clamp to the last slot.
const maxPathDepth = 3

// SplitSections splits normalized markdown into ordered sections. A
// heading is any line whose first non-space characters are one or more
// '#'; a section body runs up to (excluding) the next heading of any
// level. Adjacent headings yield empty bodies, which are still emitted
// to keep structural traceability.
func SplitSections(text string) []document.Section {
	var (
		sections []document.Section
		path     []string // current heading stack, one title per level
		levels   []int    // heading level backing each path entry
		body     []string
	)
	seenHeading := false

	flush := func() {
		bodyText := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if !seenHeading {
			// Preamble: a real section only when there is text.
			if bodyText != "" {
				sections = append(sections, document.Section{
					Path: []string{preambleSection},
					Body: bodyText,
				})
			}
			return
		}
		sections = append(sections, document.Section{
			Path: append([]string(nil), path...),
			Body: bodyText,
		})
	}

	for _, line := range strings.Split(text, "\n") {
		level, title, ok := parseHeading(line)
		if !ok {
			body = append(body, line)
			continue
		}
		flush()
		seenHeading = true
		if level > maxPathDepth {
			level = maxPathDepth
		}
		for len(levels) > 0 && levels[len(levels)-1] >= level {
			levels = levels[:len(levels)-1]
			path = path[:len(path)-1]
		}
		levels = append(levels, level)
		path = append(path, title)
	}
	flush()

	return sections
}

// parseHeading reports whether line is a markdown heading, returning
// its level and title text.
func parseHeading(line string) (level int, title string, ok bool) {
	s := strings.TrimLeft(line, " ")
	if !strings.HasPrefix(s, "#") {
		return 0, "", false
	}
	for level < len(s) && s[level] == '#' {
		level++
	}
	return level, strings.TrimSpace(s[level:]), true
}
