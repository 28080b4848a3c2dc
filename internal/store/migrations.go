package store

import (
	"context"
	"database/sql"
	"fmt"
)

// migrations are applied in order at startup; every statement is
// idempotent.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		doc_id       TEXT PRIMARY KEY,
		title        TEXT NOT NULL DEFAULT '',
		filename     TEXT NOT NULL DEFAULT '',
		content_hash TEXT NOT NULL,
		total_chunks INTEGER NOT NULL DEFAULT 0,
		token_count  INTEGER NOT NULL DEFAULT 0,
		created_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_hash ON documents(content_hash)`,
	`CREATE TABLE IF NOT EXISTS chunks (
		chunk_id             TEXT PRIMARY KEY,
		doc_id               TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
		idx                  INTEGER NOT NULL,
		total_chunks         INTEGER NOT NULL,
		content              TEXT NOT NULL,
		token_count          INTEGER NOT NULL,
		character_count      INTEGER NOT NULL,
		chunk_type           TEXT NOT NULL,
		section_path         TEXT NOT NULL DEFAULT '[]',
		has_overlap_previous INTEGER NOT NULL DEFAULT 0,
		has_overlap_next     INTEGER NOT NULL DEFAULT 0,
		heading_count        INTEGER NOT NULL DEFAULT 0,
		list_count           INTEGER NOT NULL DEFAULT 0,
		table_count          INTEGER NOT NULL DEFAULT 0,
		equation_count       INTEGER NOT NULL DEFAULT 0,
		UNIQUE(doc_id, idx)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id)`,
}

func applyMigrations(ctx context.Context, db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
