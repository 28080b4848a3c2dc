package source

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// SupportedExtensions lists upload types the service accepts. Binary
// formats (PDF, DOCX) are converted upstream; this service only sees
// text.
var SupportedExtensions = map[string]bool{
	".md":       true,
	".markdown": true,
	".txt":      true,
	".html":     true,
	".htm":      true,
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Normalize converts an uploaded file into normalized markdown.
// Markdown and plain text pass through with line endings and BOM
// cleaned up; HTML is converted to markdown headings and paragraph
// text.
func Normalize(data []byte, filename string) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown", ".txt":
		return cleanup(string(data)), nil
	case ".html", ".htm":
		md, err := HTMLToMarkdown(data)
		if err != nil {
			return "", fmt.Errorf("convert html: %w", err)
		}
		return md, nil
	default:
		return "", fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

func cleanup(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Title extracts a document title: the first heading in the markdown,
// else the filename without its extension.
func Title(markdown, filename string) string {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if h, ok := n.(*ast.Heading); ok {
			if t := strings.TrimSpace(string(h.Text(src))); t != "" {
				return t
			}
		}
	}
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
