package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/notewisp/notewisp/pkg/notes"
)

// defaultListLimit is used by List and Search for non-positive limits.
const defaultListLimit = 50

// Ensure Store implements the notes.Store interface.
var _ notes.Store = (*Store)(nil)

// Store is the PostgreSQL-backed note store. All operations are safe for
// concurrent use; the store holds a single [pgxpool.Pool].
type Store struct {
	pool *pgxpool.Pool
}

// NewStore establishes a connection pool to the database at dsn, registers
// pgvector types on every connection, and runs [Migrate].
//
// embeddingDimensions must match the output dimension of the configured
// embeddings model (e.g. 1536 for OpenAI text-embedding-3-small).
func NewStore(ctx context.Context, dsn string, embeddingDimensions int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres notes: parse dsn: %w", err)
	}

	// Register pgvector types on every new connection so the embedding
	// column can be scanned into and inserted from pgvector.Vector values.
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres notes: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres notes: ping: %w", err)
	}

	if err := Migrate(ctx, pool, embeddingDimensions); err != nil {
		pool.Close()
		return nil, err
	}

	return &Store{pool: pool}, nil
}

// Ping probes the underlying connection pool. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Save implements notes.Store. A note without an ID is assigned one; saving
// an existing ID replaces the row.
func (s *Store) Save(ctx context.Context, note notes.Note, embedding []float32) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}

	var vec any
	if embedding != nil {
		vec = pgvector.NewVector(embedding)
	}

	const q = `
		INSERT INTO notes
		    (id, title, transcription, summary, tags, diagram, markdown, hallucinated, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
		    title         = EXCLUDED.title,
		    transcription = EXCLUDED.transcription,
		    summary       = EXCLUDED.summary,
		    tags          = EXCLUDED.tags,
		    diagram       = EXCLUDED.diagram,
		    markdown      = EXCLUDED.markdown,
		    hallucinated  = EXCLUDED.hallucinated,
		    embedding     = EXCLUDED.embedding,
		    created_at    = EXCLUDED.created_at`

	_, err := s.pool.Exec(ctx, q,
		note.ID,
		note.Title,
		note.Transcription,
		note.Summary,
		note.Tags,
		note.Diagram,
		note.Markdown,
		note.Hallucinated,
		vec,
		note.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres notes: save: %w", err)
	}
	return nil
}

// Get implements notes.Store.
func (s *Store) Get(ctx context.Context, id string) (*notes.Note, error) {
	const q = `
		SELECT id, title, transcription, summary, tags, diagram, markdown, hallucinated, created_at
		FROM   notes
		WHERE  id = $1`

	row := s.pool.QueryRow(ctx, q, id)

	var n notes.Note
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Transcription,
		&n.Summary,
		&n.Tags,
		&n.Diagram,
		&n.Markdown,
		&n.Hallucinated,
		&n.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notes.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres notes: get: %w", err)
	}
	return &n, nil
}

// List implements notes.Store.
func (s *Store) List(ctx context.Context, limit int) ([]notes.Note, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	const q = `
		SELECT id, title, transcription, summary, tags, diagram, markdown, hallucinated, created_at
		FROM   notes
		ORDER  BY created_at DESC
		LIMIT  $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres notes: list: %w", err)
	}

	result, err := pgx.CollectRows(rows, scanNote)
	if err != nil {
		return nil, fmt.Errorf("postgres notes: scan rows: %w", err)
	}
	if result == nil {
		result = []notes.Note{}
	}
	return result, nil
}

// Search implements notes.Store. With an embedding it ranks notes by cosine
// distance; otherwise it falls back to case-insensitive substring matching
// against transcription, title, and summary.
func (s *Store) Search(ctx context.Context, embedding []float32, query string, topK int) ([]notes.SearchResult, error) {
	if topK <= 0 {
		topK = defaultListLimit
	}

	if embedding != nil {
		return s.searchVector(ctx, embedding, topK)
	}
	return s.searchSubstring(ctx, query, topK)
}

// searchVector finds the topK notes closest to the query embedding.
func (s *Store) searchVector(ctx context.Context, embedding []float32, topK int) ([]notes.SearchResult, error) {
	const q = `
		SELECT id, title, transcription, summary, tags, diagram, markdown, hallucinated, created_at,
		       embedding <=> $1 AS distance
		FROM   notes
		WHERE  embedding IS NOT NULL
		ORDER  BY distance
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("postgres notes: vector search: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (notes.SearchResult, error) {
		var sr notes.SearchResult
		err := row.Scan(
			&sr.Note.ID,
			&sr.Note.Title,
			&sr.Note.Transcription,
			&sr.Note.Summary,
			&sr.Note.Tags,
			&sr.Note.Diagram,
			&sr.Note.Markdown,
			&sr.Note.Hallucinated,
			&sr.Note.CreatedAt,
			&sr.Distance,
		)
		return sr, err
	})
	if err != nil {
		return nil, fmt.Errorf("postgres notes: scan rows: %w", err)
	}
	if results == nil {
		results = []notes.SearchResult{}
	}
	return results, nil
}

// searchSubstring is the no-embedder fallback.
func (s *Store) searchSubstring(ctx context.Context, query string, topK int) ([]notes.SearchResult, error) {
	const q = `
		SELECT id, title, transcription, summary, tags, diagram, markdown, hallucinated, created_at
		FROM   notes
		WHERE  transcription ILIKE '%' || $1 || '%'
		   OR  title         ILIKE '%' || $1 || '%'
		   OR  summary       ILIKE '%' || $1 || '%'
		ORDER  BY created_at DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, query, topK)
	if err != nil {
		return nil, fmt.Errorf("postgres notes: substring search: %w", err)
	}

	matched, err := pgx.CollectRows(rows, scanNote)
	if err != nil {
		return nil, fmt.Errorf("postgres notes: scan rows: %w", err)
	}

	results := make([]notes.SearchResult, len(matched))
	for i, n := range matched {
		results[i] = notes.SearchResult{Note: n}
	}
	return results, nil
}

// Close implements notes.Store.
func (s *Store) Close() {
	s.pool.Close()
}

// scanNote scans a full note row without a distance column.
func scanNote(row pgx.CollectableRow) (notes.Note, error) {
	var n notes.Note
	err := row.Scan(
		&n.ID,
		&n.Title,
		&n.Transcription,
		&n.Summary,
		&n.Tags,
		&n.Diagram,
		&n.Markdown,
		&n.Hallucinated,
		&n.CreatedAt,
	)
	return n, err
}
