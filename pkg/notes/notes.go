// Package notes defines the shared note model and the storage abstraction
// the rest of Notewisp builds on.
//
// A note is the finished product of the processing pipeline: the cleaned
// transcription plus whatever structure the language model produced, along
// with the rendered markdown document. Stores persist notes and answer
// semantic or substring searches over them.
package notes

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by [Store.Get] when no note has the requested ID.
var ErrNotFound = errors.New("notes: note not found")

// Note is a fully processed voice memo.
type Note struct {
	// ID is the store-assigned unique identifier.
	ID string

	// Title is the user-supplied or derived note title.
	Title string

	// Transcription is the cleaned transcript text.
	Transcription string

	// Summary is the model-written summary. Empty when the note was
	// processed in simple mode or the model produced none.
	Summary string

	// Tags are the normalised topic tags, at most five.
	Tags []string

	// Diagram is the mermaid diagram source, without fences. Empty when
	// none was produced.
	Diagram string

	// Markdown is the rendered note document.
	Markdown string

	// Hallucinated records whether the raw transcript tripped hallucination
	// detection before cleaning.
	Hallucinated bool

	// CreatedAt is when the note was processed.
	CreatedAt time.Time
}

// SearchResult pairs a note with its distance from the search query. Lower
// is more similar; substring fallback matches report distance 0.
type SearchResult struct {
	Note     Note
	Distance float64
}

// Store persists processed notes.
//
// Implementations must be safe for concurrent use.
type Store interface {
	// Save persists the note. embedding may be nil when no embedder is
	// configured; such notes are still listed and substring-searchable.
	Save(ctx context.Context, note Note, embedding []float32) error

	// Get returns the note with the given ID or [ErrNotFound].
	Get(ctx context.Context, id string) (*Note, error)

	// List returns up to limit notes, newest first. A non-positive limit
	// applies a store-chosen default.
	List(ctx context.Context, limit int) ([]Note, error)

	// Search finds up to topK notes similar to the query. When embedding is
	// non-nil the store ranks by vector distance; otherwise it falls back
	// to case-insensitive substring matching of query against note text.
	Search(ctx context.Context, embedding []float32, query string, topK int) ([]SearchResult, error)

	// Close releases any resources held by the store.
	Close()
}
