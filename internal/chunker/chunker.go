package chunker

import (
	"log/slog"
	"math"

	"github.com/dgallion1/docslice/internal/document"
	"github.com/dgallion1/docslice/internal/tokenizer"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize    int     // Token budget per chunk.
	ChunkOverlap float64 // Fraction of ChunkSize carried into the next chunk, in [0,1).
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:    1024,
		ChunkOverlap: 0.1,
	}
}

// hugeSentenceChars is the sanity threshold beyond which a single
// sentence (almost certainly an upstream parsing artifact) skips the
// tokenizer and is costed at a fixed chars-per-token ratio.
const hugeSentenceChars = 20000

const approxCharsPerToken = 4

// Engine turns a document's text into an ordered, token-bounded,
// overlapping chunk sequence. It performs no I/O and produces
// bit-identical boundaries and token counts for a fixed
// (text, config, counter) triple.
type Engine struct {
	counter tokenizer.Counter
	cfg     Config
	log     *slog.Logger
}

// New builds an Engine. Out-of-range config values fall back to
// defaults.
func New(counter tokenizer.Counter, cfg Config, log *slog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = def.ChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= 1 {
		cfg.ChunkOverlap = def.ChunkOverlap
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{counter: counter, cfg: cfg, log: log}
}

// sentence is one splitter unit tagged with the section it came from.
type sentence struct {
	text    string
	tokens  int
	section []string
}

// pendingChunk is a closed buffer awaiting final metadata.
type pendingChunk struct {
	sentences []sentence
	tokens    int
	overlap   int // leading sentences repeated from the previous chunk
}

// ChunkDocument runs the full pass: sections, sentences, assembly,
// classification, final metadata. A document with no sentences yields
// zero chunks, not an error.
func (e *Engine) ChunkDocument(doc document.Document) []document.Chunk {
	return e.finalize(doc.ID, e.assemble(e.collect(doc.Text)))
}

// collect splits the document into section-tagged, token-costed
// sentences in document order.
func (e *Engine) collect(text string) []sentence {
	var out []sentence
	for _, sec := range SplitSections(text) {
		for _, s := range SplitSentences(sec.Body) {
			out = append(out, sentence{
				text:    s,
				tokens:  e.sentenceTokens(s),
				section: sec.Path,
			})
		}
	}
	return out
}

// sentenceTokens costs one sentence, bypassing the tokenizer for
// pathological lengths to bound latency.
func (e *Engine) sentenceTokens(s string) int {
	if len(s) > hugeSentenceChars {
		est := len(s) / approxCharsPerToken
		e.log.Warn("oversized sentence, estimating tokens by length",
			"chars", len(s), "estimated_tokens", est)
		return est
	}
	return e.counter.Count(s)
}

// assemble greedily packs sentences under the token budget. When a
// buffer closes, the new buffer is seeded with whole trailing
// sentences of the closed one, as many as fit the overlap budget, and
// the carry continues across section boundaries. A single sentence
// over the budget still gets its own chunk; the budget is a soft
// target violated only by such atomic sentences.
func (e *Engine) assemble(sents []sentence) []pendingChunk {
	overlapBudget := int(math.Floor(float64(e.cfg.ChunkSize) * e.cfg.ChunkOverlap))

	var chunks []pendingChunk
	var buf []sentence
	bufTokens := 0
	overlapLen := 0

	for _, s := range sents {
		if len(buf) > 0 && bufTokens+s.tokens > e.cfg.ChunkSize {
			chunks = append(chunks, pendingChunk{sentences: buf, tokens: bufTokens, overlap: overlapLen})

			carry := overlapTail(buf, overlapBudget)
			buf = make([]sentence, len(carry), len(carry)+1)
			copy(buf, carry)
			overlapLen = len(carry)
			bufTokens = 0
			for _, o := range carry {
				bufTokens += o.tokens
			}
		}
		buf = append(buf, s)
		bufTokens += s.tokens
	}
	if len(buf) > 0 {
		// The final chunk goes out as-is, however short.
		chunks = append(chunks, pendingChunk{sentences: buf, tokens: bufTokens, overlap: overlapLen})
	}

	return chunks
}

// overlapTail collects whole sentences from the end of buf whose
// cumulative token count stays within budget. Sentences are never
// split to fit: when the last sentence alone exceeds the budget the
// overlap comes back empty.
func overlapTail(buf []sentence, budget int) []sentence {
	if budget <= 0 {
		return nil
	}
	total := 0
	i := len(buf)
	for i > 0 && total+buf[i-1].tokens <= budget {
		total += buf[i-1].tokens
		i--
	}
	return buf[i:]
}
