package notes

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// defaultListLimit is used by List when the caller passes a non-positive limit.
const defaultListLimit = 50

// Ensure MemStore implements the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is an in-memory Store for tests and database-less deployments.
// Notes are gone when the process exits.
type MemStore struct {
	mu      sync.RWMutex
	notes   map[string]Note
	vectors map[string][]float32
	order   []string // insertion order, oldest first
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		notes:   make(map[string]Note),
		vectors: make(map[string][]float32),
	}
}

// Save implements Store. A note without an ID is assigned one.
func (s *MemStore) Save(_ context.Context, note Note, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	if _, exists := s.notes[note.ID]; !exists {
		s.order = append(s.order, note.ID)
	}
	s.notes[note.ID] = note
	if embedding != nil {
		vec := make([]float32, len(embedding))
		copy(vec, embedding)
		s.vectors[note.ID] = vec
	}
	return nil
}

// Get implements Store.
func (s *MemStore) Get(_ context.Context, id string) (*Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &note, nil
}

// List implements Store.
func (s *MemStore) List(_ context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Note, 0, min(limit, len(s.order)))
	for i := len(s.order) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.notes[s.order[i]])
	}
	return out, nil
}

// Search implements Store. With an embedding it ranks by cosine distance,
// skipping notes stored without a vector; otherwise it substring-matches
// query against title, transcription, summary, and tags.
func (s *MemStore) Search(_ context.Context, embedding []float32, query string, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = defaultListLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []SearchResult

	if embedding != nil {
		for id, vec := range s.vectors {
			results = append(results, SearchResult{
				Note:     s.notes[id],
				Distance: cosineDistance(embedding, vec),
			})
		}
		sort.Slice(results, func(i, j int) bool { return results[i].Distance < results[j].Distance })
	} else {
		q := strings.ToLower(strings.TrimSpace(query))
		if q == "" {
			return []SearchResult{}, nil
		}
		for i := len(s.order) - 1; i >= 0; i-- {
			note := s.notes[s.order[i]]
			if noteMatches(note, q) {
				results = append(results, SearchResult{Note: note})
			}
		}
	}

	if len(results) > topK {
		results = results[:topK]
	}
	if results == nil {
		results = []SearchResult{}
	}
	return results, nil
}

// Close implements Store.
func (s *MemStore) Close() {}

// noteMatches reports whether any text field of note contains q (lowercase).
func noteMatches(note Note, q string) bool {
	if strings.Contains(strings.ToLower(note.Title), q) ||
		strings.Contains(strings.ToLower(note.Transcription), q) ||
		strings.Contains(strings.ToLower(note.Summary), q) {
		return true
	}
	for _, tag := range note.Tags {
		if strings.Contains(tag, q) {
			return true
		}
	}
	return false
}

// cosineDistance is 1 minus the cosine similarity of a and b. Mismatched or
// zero vectors yield the maximum distance of 1.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
