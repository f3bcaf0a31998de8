// Package server exposes the Notewisp HTTP API.
//
// Routes:
//
//	POST /v1/notes          upload a voice memo (multipart) and get the note
//	GET  /v1/notes          list recent notes
//	GET  /v1/notes/{id}     fetch one note
//	GET  /v1/notes/search   semantic or substring search
//	GET  /v1/watch          websocket stream of newly created notes
//	GET  /healthz, /readyz  probes
//	GET  /metrics           Prometheus scrape endpoint
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/notewisp/notewisp/internal/health"
	"github.com/notewisp/notewisp/internal/note"
	"github.com/notewisp/notewisp/internal/observe"
	"github.com/notewisp/notewisp/pkg/notes"
	"github.com/notewisp/notewisp/pkg/provider/embeddings"
)

// defaultMaxUploadBytes caps memo uploads at 50 MiB, roughly an hour of
// compressed speech.
const defaultMaxUploadBytes = 50 << 20

// Server holds the HTTP handlers and their dependencies. Construct with
// [New]; the zero value is not usable.
type Server struct {
	store    notes.Store
	composer *note.Composer
	embedder embeddings.Provider
	health   *health.Handler
	metrics  *observe.Metrics
	hub      *watchHub

	maxUploadBytes int64
}

// Option is a functional option for [New].
type Option func(*Server)

// WithEmbedder enables semantic search and note embeddings.
func WithEmbedder(e embeddings.Provider) Option {
	return func(s *Server) {
		s.embedder = e
	}
}

// WithHealth sets the health handler registered on the mux.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) {
		s.health = h
	}
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMaxUploadBytes overrides the memo upload size cap.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// New creates a Server around the given note store and composer.
func New(store notes.Store, composer *note.Composer, opts ...Option) *Server {
	s := &Server{
		store:          store,
		composer:       composer,
		hub:            newWatchHub(),
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.health == nil {
		s.health = health.New("")
	}
	return s
}

// Handler returns the fully wired HTTP handler, with observability middleware
// applied to every route.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/notes", s.handleCreateNote)
	mux.HandleFunc("GET /v1/notes", s.handleListNotes)
	mux.HandleFunc("GET /v1/notes/search", s.handleSearch)
	mux.HandleFunc("GET /v1/notes/{id}", s.handleGetNote)
	mux.HandleFunc("GET /v1/watch", s.handleWatch)

	s.health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	return observe.Middleware(s.metrics)(mux)
}

// noteResponse is the JSON wire form of a note.
type noteResponse struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Transcription string    `json:"transcription"`
	Summary       string    `json:"summary,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Diagram       string    `json:"diagram,omitempty"`
	Markdown      string    `json:"markdown"`
	Hallucinated  bool      `json:"hallucinated"`
	CreatedAt     time.Time `json:"created_at"`
}

// searchResponse is one search hit with its distance.
type searchResponse struct {
	noteResponse
	Distance float64 `json:"distance"`
}

func toNoteResponse(n notes.Note) noteResponse {
	return noteResponse{
		ID:            n.ID,
		Title:         n.Title,
		Transcription: n.Transcription,
		Summary:       n.Summary,
		Tags:          n.Tags,
		Diagram:       n.Diagram,
		Markdown:      n.Markdown,
		Hallucinated:  n.Hallucinated,
		CreatedAt:     n.CreatedAt,
	}
}

// handleCreateNote accepts a multipart memo upload, runs the note pipeline,
// persists the result, and notifies watchers.
//
// Form fields: "audio" (file, required), "title" and "language" (optional).
func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("parse multipart form: %v", err))
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		writeError(w, http.StatusBadRequest, `missing "audio" file field`)
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("read audio: %v", err))
		return
	}
	if len(audio) == 0 {
		writeError(w, http.StatusBadRequest, "audio file is empty")
		return
	}

	n, err := s.composer.Compose(ctx, note.Request{
		Audio:    audio,
		Filename: header.Filename,
		Language: r.FormValue("language"),
		Title:    r.FormValue("title"),
	})
	if err != nil {
		observe.Logger(ctx).Error("note composition failed", "file", header.Filename, "error", err)
		writeError(w, http.StatusBadGateway, "note processing failed")
		return
	}

	n.ID = uuid.NewString()

	// Embedding is best effort: a note without a vector is still listed and
	// substring-searchable.
	var vector []float32
	if s.embedder != nil {
		vector, err = s.embedder.Embed(ctx, embeddingText(*n))
		if err != nil {
			observe.Logger(ctx).Warn("embedding failed, saving note without vector", "error", err)
			vector = nil
		}
	}

	if err := s.store.Save(ctx, *n, vector); err != nil {
		observe.Logger(ctx).Error("note save failed", "id", n.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save note")
		return
	}

	resp := toNoteResponse(*n)
	s.hub.broadcast(watchEvent{Type: eventNoteCreated, Note: resp})

	writeJSON(w, http.StatusCreated, resp)
}

// handleListNotes returns recent notes, newest first. Query: limit.
func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)

	list, err := s.store.List(r.Context(), limit)
	if err != nil {
		observe.Logger(r.Context()).Error("note list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notes")
		return
	}

	out := make([]noteResponse, len(list))
	for i, n := range list {
		out[i] = toNoteResponse(n)
	}
	writeJSON(w, http.StatusOK, map[string]any{"notes": out})
}

// handleGetNote returns a single note by ID.
func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	n, err := s.store.Get(r.Context(), id)
	if errors.Is(err, notes.ErrNotFound) {
		writeError(w, http.StatusNotFound, "note not found")
		return
	}
	if err != nil {
		observe.Logger(r.Context()).Error("note get failed", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load note")
		return
	}

	writeJSON(w, http.StatusOK, toNoteResponse(*n))
}

// handleSearch runs a semantic search when an embedder is configured, falling
// back to substring matching otherwise. Query: q (required), k.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, `missing "q" query parameter`)
		return
	}
	topK := queryInt(r, "k", 0)

	var vector []float32
	if s.embedder != nil {
		var err error
		vector, err = s.embedder.Embed(ctx, query)
		if err != nil {
			observe.Logger(ctx).Warn("query embedding failed, falling back to substring search", "error", err)
			vector = nil
		}
	}

	results, err := s.store.Search(ctx, vector, query, topK)
	if err != nil {
		observe.Logger(ctx).Error("note search failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	out := make([]searchResponse, len(results))
	for i, sr := range results {
		out[i] = searchResponse{noteResponse: toNoteResponse(sr.Note), Distance: sr.Distance}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out})
}

// embeddingText builds the text embedded for a note. Title and summary carry
// the most searchable signal, the transcript the detail.
func embeddingText(n notes.Note) string {
	text := n.Title + "\n" + n.Transcription
	if n.Summary != "" {
		text += "\n" + n.Summary
	}
	return text
}

// queryInt parses an integer query parameter, returning def when absent or
// unparseable.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
