package tokenizer

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// batchChars bounds how much text is handed to the BPE encoder in one
// call. Longer inputs are counted in independent batches and the
// per-batch counts summed; a token spanning a seam may be counted as
// two, a small accepted bias that keeps multi-hundred-KB inputs
// bounded in memory and time.
const batchChars = 10000

// Counter counts the tokens the target tokenizer would produce for a
// span of text, with no special tokens added. Implementations never
// fail; they degrade instead.
type Counter interface {
	Count(text string) int
	Name() string
}

// Words approximates token counts as whitespace-delimited word counts.
// It serves both as the fallback when no BPE encoding can be loaded
// and as the per-call escape hatch for the exact counter.
type Words struct{}

func (Words) Count(text string) int { return len(strings.Fields(text)) }

func (Words) Name() string { return "words" }

// BPE counts tokens with a tiktoken encoding. The encoding is loaded
// once and is safe to share read-only across goroutines.
type BPE struct {
	enc  *tiktoken.Tiktoken
	name string
	log  *slog.Logger
}

// NewBPE loads a tiktoken encoding by encoding name, falling back to
// model-name lookup. A "tiktoken/" prefix is accepted and stripped.
func NewBPE(id string, log *slog.Logger) (*BPE, error) {
	name := strings.TrimPrefix(strings.TrimSpace(id), "tiktoken/")
	if name == "" {
		return nil, fmt.Errorf("tokenizer id is required")
	}
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		enc, err = tiktoken.EncodingForModel(name)
		if err != nil {
			return nil, fmt.Errorf("load tokenizer %s: %w", id, err)
		}
	}
	return &BPE{enc: enc, name: name, log: log}, nil
}

func (b *BPE) Name() string { return b.name }

// Count tokenizes text, batching anything over batchChars characters.
func (b *BPE) Count(text string) int {
	if text == "" {
		return 0
	}
	total := 0
	for len(text) > 0 {
		batch, rest := cutBatch(text)
		n, ok := b.encode(batch)
		if !ok {
			// Per-call failure: degrade to the word approximation for
			// the remainder rather than failing the caller.
			return total + Words{}.Count(batch) + Words{}.Count(rest)
		}
		total += n
		text = rest
	}
	return total
}

// encode counts one batch, converting an encoder panic into a logged
// fallback signal.
func (b *BPE) encode(batch string) (n int, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			if b.log != nil {
				b.log.Warn("tokenizer call failed, using word count",
					"tokenizer", b.name, "panic", r)
			}
			n, ok = 0, false
		}
	}()
	return len(b.enc.Encode(batch, nil, nil)), true
}

// cutBatch splits text after batchChars characters, on a rune
// boundary.
func cutBatch(text string) (batch, rest string) {
	i, n := 0, 0
	for i < len(text) {
		if n == batchChars {
			return text[:i], text[i:]
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		n++
	}
	return text, ""
}

// New returns the exact counter for id, or the word approximation
// (with a logged event) when the encoding cannot be loaded.
func New(id string, log *slog.Logger) Counter {
	bpe, err := NewBPE(id, log)
	if err != nil {
		if log != nil {
			log.Warn("tokenizer unavailable, using word count", "tokenizer", id, "error", err)
		}
		return Words{}
	}
	return bpe
}
