package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/docslice/internal/document"
)

// ErrNotFound is returned when a requested record doesn't exist.
var ErrNotFound = errors.New("not found")

// DocumentMeta is the catalog record for one ingested document.
type DocumentMeta struct {
	DocID       string    `json:"doc_id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	TotalChunks int       `json:"total_chunks"`
	TokenCount  int       `json:"token_count"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists the document catalog and chunk sets in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens and migrates the database at path. ":memory:" works for
// tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// SaveDocument writes the catalog row and the document's complete
// chunk set in one transaction, replacing any previous set for the
// same doc_id. Reprocessing swaps the whole batch atomically.
func (s *Store) SaveDocument(ctx context.Context, meta DocumentMeta, chunks []document.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE doc_id = ?`, meta.DocID); err != nil {
		return fmt.Errorf("clear chunks: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO documents (doc_id, title, filename, content_hash, total_chunks, token_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			title        = excluded.title,
			filename     = excluded.filename,
			content_hash = excluded.content_hash,
			total_chunks = excluded.total_chunks,
			token_count  = excluded.token_count`,
		meta.DocID, meta.Title, meta.Filename, meta.ContentHash,
		meta.TotalChunks, meta.TokenCount, meta.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, doc_id, idx, total_chunks, content, token_count,
			character_count, chunk_type, section_path, has_overlap_previous,
			has_overlap_next, heading_count, list_count, table_count, equation_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		sp := c.SectionPath
		if sp == nil {
			sp = []string{}
		}
		path, err := json.Marshal(sp)
		if err != nil {
			return fmt.Errorf("marshal section path: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.Index, c.TotalChunks, c.Content, c.TokenCount,
			c.CharacterCount, string(c.Type), string(path),
			boolToInt(c.HasOverlapPrevious), boolToInt(c.HasOverlapNext),
			c.Features.HeadingCount, c.Features.ListCount,
			c.Features.TableCount, c.Features.EquationCount,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

// FindByContentHash returns the doc_id of an existing document with
// identical normalized content, or ErrNotFound.
func (s *Store) FindByContentHash(ctx context.Context, hash string) (string, error) {
	var docID string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc_id FROM documents WHERE content_hash = ? LIMIT 1`, hash).Scan(&docID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query content hash: %w", err)
	}
	return docID, nil
}

// GetDocument returns one catalog record.
func (s *Store) GetDocument(ctx context.Context, docID string) (*DocumentMeta, error) {
	var m DocumentMeta
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, title, filename, content_hash, total_chunks, token_count, created_at
		FROM documents WHERE doc_id = ?`, docID).
		Scan(&m.DocID, &m.Title, &m.Filename, &m.ContentHash, &m.TotalChunks, &m.TokenCount, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return &m, nil
}

// ListDocuments returns catalog records, newest first.
func (s *Store) ListDocuments(ctx context.Context, limit int) ([]DocumentMeta, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, filename, content_hash, total_chunks, token_count, created_at
		FROM documents ORDER BY created_at DESC, doc_id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []DocumentMeta
	for rows.Next() {
		var m DocumentMeta
		if err := rows.Scan(&m.DocID, &m.Title, &m.Filename, &m.ContentHash,
			&m.TotalChunks, &m.TokenCount, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, m)
	}
	return docs, rows.Err()
}

// GetChunks returns a document's chunks in index order.
func (s *Store) GetChunks(ctx context.Context, docID string) ([]document.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, doc_id, idx, total_chunks, content, token_count,
			character_count, chunk_type, section_path, has_overlap_previous,
			has_overlap_next, heading_count, list_count, table_count, equation_count
		FROM chunks WHERE doc_id = ? ORDER BY idx`, docID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []document.Chunk
	for rows.Next() {
		var (
			c           document.Chunk
			chunkType   string
			sectionPath string
			prevFlag    int
			nextFlag    int
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.TotalChunks, &c.Content,
			&c.TokenCount, &c.CharacterCount, &chunkType, &sectionPath, &prevFlag, &nextFlag,
			&c.Features.HeadingCount, &c.Features.ListCount,
			&c.Features.TableCount, &c.Features.EquationCount); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Type = document.ChunkType(chunkType)
		c.HasOverlapPrevious = prevFlag != 0
		c.HasOverlapNext = nextFlag != 0
		if err := json.Unmarshal([]byte(sectionPath), &c.SectionPath); err != nil {
			return nil, fmt.Errorf("unmarshal section path: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteDocument removes a document and its chunks.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE doc_id = ?`, docID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Counts returns catalog totals for the stats endpoint.
func (s *Store) Counts(ctx context.Context) (docs, chunks int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&docs); err != nil {
		return 0, 0, fmt.Errorf("count documents: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&chunks); err != nil {
		return 0, 0, fmt.Errorf("count chunks: %w", err)
	}
	return docs, chunks, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
