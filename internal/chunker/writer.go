package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docslice/internal/document"
)

// finalize assigns chunk IDs, ordinals, overlap flags and content
// classification. It runs only after assembly completes for the whole
// document, because total_chunks is unknowable earlier. The returned
// slice is the single batch handed to persistence and embedding.
func (e *Engine) finalize(docID string, pending []pendingChunk) []document.Chunk {
	chunks := make([]document.Chunk, 0, len(pending))
	for i, p := range pending {
		content := joinSentences(p.sentences)
		typ, features := Classify(content)

		chunks = append(chunks, document.Chunk{
			ID:                 newChunkID(),
			DocumentID:         docID,
			Index:              i,
			TotalChunks:        len(pending),
			Content:            content,
			TokenCount:         p.tokens,
			CharacterCount:     utf8.RuneCountInString(content),
			Type:               typ,
			SectionPath:        sectionOf(p),
			HasOverlapPrevious: p.overlap > 0,
			HasOverlapNext:     i+1 < len(pending) && pending[i+1].overlap > 0,
			Features:           features,
		})
	}
	return chunks
}

// sectionOf attributes a chunk to the section its first fresh
// (non-overlap) sentence came from.
func sectionOf(p pendingChunk) []string {
	if len(p.sentences) == 0 {
		return nil
	}
	idx := p.overlap
	if idx >= len(p.sentences) {
		idx = len(p.sentences) - 1
	}
	return p.sentences[idx].section
}

func joinSentences(sents []sentence) string {
	parts := make([]string, len(sents))
	for i, s := range sents {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}
