// Package postgres provides a PostgreSQL-backed implementation of
// [notes.Store] with pgvector-powered semantic search.
//
// The pgvector extension must be available in the target database; [Migrate]
// installs it automatically via CREATE EXTENSION IF NOT EXISTS.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn, 1536)
//	if err != nil { … }
//	defer store.Close()
//
//	err = store.Save(ctx, note, embedding)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ddlNotes returns the notes DDL with the embedding dimension substituted.
// The vector dimension is baked into the column type at schema creation
// time; changing it afterwards requires a manual migration.
func ddlNotes(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS notes (
    id            TEXT         PRIMARY KEY,
    title         TEXT         NOT NULL DEFAULT '',
    transcription TEXT         NOT NULL,
    summary       TEXT         NOT NULL DEFAULT '',
    tags          TEXT[]       NOT NULL DEFAULT '{}',
    diagram       TEXT         NOT NULL DEFAULT '',
    markdown      TEXT         NOT NULL,
    hallucinated  BOOLEAN      NOT NULL DEFAULT false,
    embedding     vector(%d),
    created_at    TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_notes_created_at
    ON notes (created_at DESC);

CREATE INDEX IF NOT EXISTS idx_notes_fts
    ON notes USING GIN (to_tsvector('english', transcription));

CREATE INDEX IF NOT EXISTS idx_notes_embedding
    ON notes USING hnsw (embedding vector_cosine_ops);
`, embeddingDimensions)
}

// Migrate creates the notes table, indexes, and the pgvector extension if
// they do not exist yet. It is idempotent and runs on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool, embeddingDimensions int) error {
	if embeddingDimensions <= 0 {
		return fmt.Errorf("postgres notes: embedding dimensions must be positive, got %d", embeddingDimensions)
	}
	if _, err := pool.Exec(ctx, ddlNotes(embeddingDimensions)); err != nil {
		return fmt.Errorf("postgres notes: apply schema: %w", err)
	}
	return nil
}
