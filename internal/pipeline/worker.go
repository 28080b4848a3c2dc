package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/docslice/internal/chunker"
	"github.com/dgallion1/docslice/internal/document"
	"github.com/dgallion1/docslice/internal/embedder"
	"github.com/dgallion1/docslice/internal/source"
	"github.com/dgallion1/docslice/internal/store"
	"github.com/dgallion1/docslice/internal/tokenizer"
)

// Worker processes a single document job. The token counter is shared
// read-only; everything else a document needs is job-local, so workers
// never contend with each other.
type Worker struct {
	store    *store.Store
	embed    *embedder.Client
	counter  tokenizer.Counter
	log      *slog.Logger
	chunkCfg chunker.Config

	maxConcurrentEmbed int
}

func NewWorker(st *store.Store, embed *embedder.Client, counter tokenizer.Counter, log *slog.Logger, chunkCfg chunker.Config, maxEmbed int) *Worker {
	if maxEmbed <= 0 {
		maxEmbed = 1
	}
	return &Worker{
		store:              st,
		embed:              embed,
		counter:            counter,
		log:                log,
		chunkCfg:           chunkCfg,
		maxConcurrentEmbed: maxEmbed,
	}
}

// Process runs the full ingest pipeline for a job. A failure here
// fails only this job; sibling documents keep flowing.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Normalize the upload into markdown.
	job.SetStatus(StatusNormalizing, "normalizing")
	text, err := source.Normalize(job.FileData(), job.Filename)
	if err != nil {
		log.Error("normalize failed", "error", err)
		job.AddError(fmt.Sprintf("normalize: %s", err))
		job.SetStatus(StatusFailed, "normalizing")
		return
	}

	title := job.Title
	if title == "" {
		title = source.Title(text, job.Filename)
	}
	job.SetContentHash(ContentHashHex([]byte(text)))

	// Phase 1.5: Dedup check against the catalog.
	if !job.Force() {
		existing, err := w.store.FindByContentHash(ctx, job.Hash())
		switch {
		case err == nil && existing != job.DocID:
			log.Info("duplicate document, skipping", "existing_doc_id", existing)
			job.SetStatus(StatusDupSkipped, "dedup")
			return
		case err != nil && !errors.Is(err, store.ErrNotFound):
			log.Warn("dedup check failed, proceeding", "error", err)
		}
	}

	// Phase 2: Chunk.
	job.SetStatus(StatusChunking, "chunking")
	cfg := w.chunkCfg
	if size, overlap, ok := job.ChunkOverrides(); ok {
		cfg.ChunkSize = size
		cfg.ChunkOverlap = overlap
	}
	engine := chunker.New(w.counter, cfg, w.log)
	chunks := engine.ChunkDocument(document.Document{ID: job.DocID, Text: text})
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks),
		"chunk_size", cfg.ChunkSize, "chunk_overlap", cfg.ChunkOverlap)

	// Phase 3: Persist the complete batch.
	job.SetStatus(StatusStoring, "storing")
	tokenTotal := 0
	for _, c := range chunks {
		tokenTotal += c.TokenCount
	}
	meta := store.DocumentMeta{
		DocID:       job.DocID,
		Title:       title,
		Filename:    job.Filename,
		ContentHash: job.Hash(),
		TotalChunks: len(chunks),
		TokenCount:  tokenTotal,
		CreatedAt:   job.CreatedAt,
	}
	if err := w.store.SaveDocument(ctx, meta, chunks); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "storing")
		return
	}

	if len(chunks) == 0 {
		// An empty document is not an error; there is nothing to embed.
		log.Info("document produced no chunks")
		job.SetStatus(StatusCompleted, "done")
		return
	}

	// Phase 4: Embed with bounded fan-out. Failures are recorded per
	// chunk; the rest of the batch keeps going.
	job.SetStatus(StatusEmbedding, "embedding")
	var failed atomic.Int64
	var g errgroup.Group
	g.SetLimit(w.maxConcurrentEmbed)

	for _, c := range chunks {
		c := c
		g.Go(func() error {
			var lastErr error
			for attempt := 0; attempt < MaxRetries; attempt++ {
				lastErr = w.embed.EmbedChunk(ctx, c.ID, c.Content)
				if lastErr == nil || !IsRetryable(lastErr) {
					break
				}
				log.Warn("retryable embed error", "chunk", c.Index, "attempt", attempt, "error", lastErr)
				select {
				case <-time.After(Backoff(attempt)):
				case <-ctx.Done():
					lastErr = ctx.Err()
				}
				if ctx.Err() != nil {
					break
				}
			}
			if lastErr != nil {
				failed.Add(1)
				job.AddError(fmt.Sprintf("embed chunk %d: %s", c.Index, lastErr))
				return nil
			}
			job.IncrChunksEmbedded()
			return nil
		})
	}
	_ = g.Wait()

	embedded := len(chunks) - int(failed.Load())
	log.Info("embedding complete", "embedded", embedded, "failed", failed.Load())

	switch {
	case failed.Load() == 0:
		job.SetStatus(StatusCompleted, "done")
	case embedded > 0:
		job.SetStatus(StatusPartial, "done")
	default:
		job.SetStatus(StatusFailed, "embedding")
	}
}
