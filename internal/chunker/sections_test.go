package chunker

import (
	"strings"
	"testing"
)

func pathString(p []string) string { return strings.Join(p, " > ") }

func TestSplitSectionsPreamble(t *testing.T) {
	secs := SplitSections("Intro text before any heading.\n\n# First\nBody.")
	if len(secs) != 2 {
		t.Fatalf("got %d sections, want 2", len(secs))
	}
	if pathString(secs[0].Path) != "Document" {
		t.Errorf("preamble path = %v", secs[0].Path)
	}
	if secs[0].Body != "Intro text before any heading." {
		t.Errorf("preamble body = %q", secs[0].Body)
	}
	if pathString(secs[1].Path) != "First" {
		t.Errorf("section path = %v", secs[1].Path)
	}
}

func TestSplitSectionsNoPreambleWhenEmpty(t *testing.T) {
	secs := SplitSections("\n\n  \n# First\nBody.")
	if len(secs) != 1 {
		t.Fatalf("got %d sections, want 1", len(secs))
	}
	if pathString(secs[0].Path) != "First" {
		t.Errorf("path = %v", secs[0].Path)
	}
}

func TestSplitSectionsNesting(t *testing.T) {
	text := strings.Join([]string{
		"# A",
		"a body",
		"## B",
		"b body",
		"### C",
		"c body",
		"## D",
		"d body",
		"# E",
		"e body",
	}, "\n")

	secs := SplitSections(text)
	want := []string{
		"A",
		"A > B",
		"A > B > C",
		"A > D",
		"E",
	}
	if len(secs) != len(want) {
		t.Fatalf("got %d sections, want %d", len(secs), len(want))
	}
	for i, w := range want {
		if got := pathString(secs[i].Path); got != w {
			t.Errorf("section %d path = %q, want %q", i, got, w)
		}
	}
}

func TestSplitSectionsDepthClamp(t *testing.T) {
	text := strings.Join([]string{
		"# A",
		"## B",
		"#### Deep",
		"deep body",
		"### Back",
		"back body",
	}, "\n")

	secs := SplitSections(text)
	// Level-4 clamps to 3; the following level-3 heading replaces it.
	var deep, back []string
	for _, s := range secs {
		switch s.Body {
		case "deep body":
			deep = s.Path
		case "back body":
			back = s.Path
		}
	}
	if pathString(deep) != "A > B > Deep" {
		t.Errorf("clamped path = %v", deep)
	}
	if pathString(back) != "A > B > Back" {
		t.Errorf("sibling path after clamp = %v", back)
	}
}

func TestSplitSectionsEmptyBodies(t *testing.T) {
	secs := SplitSections("# A\n## B\nonly body here")
	if len(secs) != 2 {
		t.Fatalf("got %d sections, want 2", len(secs))
	}
	if secs[0].Body != "" {
		t.Errorf("adjacent heading should yield an empty body, got %q", secs[0].Body)
	}
	if secs[1].Body != "only body here" {
		t.Errorf("body = %q", secs[1].Body)
	}
}

func TestSplitSectionsIndentedHeading(t *testing.T) {
	secs := SplitSections("  ## Indented\nbody")
	if len(secs) != 1 {
		t.Fatalf("got %d sections, want 1", len(secs))
	}
	if pathString(secs[0].Path) != "Indented" {
		t.Errorf("path = %v", secs[0].Path)
	}
}

func TestParseHeading(t *testing.T) {
	cases := []struct {
		line  string
		level int
		title string
		ok    bool
	}{
		{"# Title", 1, "Title", true},
		{"### Sub  Title  ", 3, "Sub  Title", true},
		{"#NoSpace", 1, "NoSpace", true},
		{"plain line", 0, "", false},
		{"", 0, "", false},
	}
	for _, c := range cases {
		level, title, ok := parseHeading(c.line)
		if level != c.level || title != c.title || ok != c.ok {
			t.Errorf("parseHeading(%q) = (%d, %q, %v), want (%d, %q, %v)",
				c.line, level, title, ok, c.level, c.title, c.ok)
		}
	}
}
