package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/notewisp/notewisp/internal/note"
	"github.com/notewisp/notewisp/pkg/notes"
	embmock "github.com/notewisp/notewisp/pkg/provider/embeddings/mock"
	"github.com/notewisp/notewisp/pkg/provider/transcribe"
	sttmock "github.com/notewisp/notewisp/pkg/provider/transcribe/mock"
)

// newTestServer wires a server around an in-memory store and a canned
// transcription result.
func newTestServer(t *testing.T, transcript string, opts ...Option) (*Server, *notes.MemStore) {
	t.Helper()

	store := notes.NewMemStore()
	t.Cleanup(store.Close)

	stt := &sttmock.Provider{TranscribeResponse: &transcribe.Result{Text: transcript}}
	composer := note.NewComposer(stt)

	return New(store, composer, opts...), store
}

// memoUpload builds a multipart request body with an "audio" file part.
func memoUpload(t *testing.T, filename string, audio []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fw, err := mw.CreateFormFile("audio", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fw.Write(audio); err != nil {
		t.Fatalf("write audio part: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %q: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestCreateNote(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t, "remember to water the plants tomorrow morning")
	handler := srv.Handler()

	body, contentType := memoUpload(t, "memo.wav", []byte("fake-audio"), map[string]string{"title": "Plants"})
	req := httptest.NewRequest("POST", "/v1/notes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusCreated, rec.Body)
	}

	var resp noteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID == "" {
		t.Error("response ID is empty")
	}
	if resp.Title != "Plants" {
		t.Errorf("title = %q, want %q", resp.Title, "Plants")
	}
	if resp.Transcription != "remember to water the plants tomorrow morning" {
		t.Errorf("transcription = %q", resp.Transcription)
	}
	if !strings.HasPrefix(resp.Markdown, "# Plants\n") {
		t.Errorf("markdown = %q", resp.Markdown)
	}

	saved, err := store.Get(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("note not persisted: %v", err)
	}
	if saved.Title != "Plants" {
		t.Errorf("persisted title = %q", saved.Title)
	}
}

func TestCreateNoteMissingAudioField(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "text")
	handler := srv.Handler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("title", "no file"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/v1/notes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateNoteEmptyAudio(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "text")
	handler := srv.Handler()

	body, contentType := memoUpload(t, "memo.wav", nil, nil)
	req := httptest.NewRequest("POST", "/v1/notes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCreateNoteTranscriberFailure(t *testing.T) {
	t.Parallel()

	store := notes.NewMemStore()
	t.Cleanup(store.Close)
	stt := &sttmock.Provider{TranscribeErr: context.DeadlineExceeded}
	srv := New(store, note.NewComposer(stt))
	handler := srv.Handler()

	body, contentType := memoUpload(t, "memo.wav", []byte("fake-audio"), nil)
	req := httptest.NewRequest("POST", "/v1/notes", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
	}
}

func TestGetNote(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t, "text")
	handler := srv.Handler()

	n := notes.Note{ID: "n1", Title: "Stored", Transcription: "stored text", CreatedAt: time.Now()}
	if err := store.Save(context.Background(), n, nil); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/notes/n1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp noteResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Title != "Stored" {
		t.Errorf("title = %q, want %q", resp.Title, "Stored")
	}
}

func TestGetNoteNotFound(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "text")
	handler := srv.Handler()

	req := httptest.NewRequest("GET", "/v1/notes/missing", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListNotes(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t, "text")
	handler := srv.Handler()

	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		if err := store.Save(ctx, notes.Note{ID: id, Title: id, CreatedAt: time.Now()}, nil); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/v1/notes?limit=2", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Notes []noteResponse `json:"notes"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Notes) != 2 {
		t.Errorf("len(notes) = %d, want 2", len(resp.Notes))
	}
}

func TestSearchSubstring(t *testing.T) {
	t.Parallel()

	srv, store := newTestServer(t, "text")
	handler := srv.Handler()

	ctx := context.Background()
	seed := []notes.Note{
		{ID: "a", Title: "Kafka migration", Transcription: "move the consumers to the new kafka cluster"},
		{ID: "b", Title: "Groceries", Transcription: "milk and eggs"},
	}
	for _, n := range seed {
		n.CreatedAt = time.Now()
		if err := store.Save(ctx, n, nil); err != nil {
			t.Fatalf("seed store: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/v1/notes/search?q=kafka", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var resp struct {
		Results []searchResponse `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "a" {
		t.Errorf("results = %+v, want only note a", resp.Results)
	}
}

func TestSearchSemantic(t *testing.T) {
	t.Parallel()

	embedder := &embmock.Provider{}
	srv, store := newTestServer(t, "text", WithEmbedder(embedder))
	handler := srv.Handler()

	ctx := context.Background()
	vec, err := embedder.Embed(ctx, "some note content")
	if err != nil {
		t.Fatalf("embed: %v", err)
	}
	if err := store.Save(ctx, notes.Note{ID: "a", Title: "With vector", CreatedAt: time.Now()}, vec); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	req := httptest.NewRequest("GET", "/v1/notes/search?q=anything", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body: %s", rec.Code, http.StatusOK, rec.Body)
	}
	var resp struct {
		Results []searchResponse `json:"results"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != "a" {
		t.Errorf("results = %+v, want note a", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "text")
	handler := srv.Handler()

	req := httptest.NewRequest("GET", "/v1/notes/search", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestHealthAndMetricsRoutes(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "text")
	handler := srv.Handler()

	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestWatchReceivesCreatedNotes(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t, "a freshly spoken memo about the weekend plans")
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/watch"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	defer conn.CloseNow()

	// Wait for the subscription to be registered before uploading.
	deadline := time.Now().Add(2 * time.Second)
	for srv.hub.subscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("watcher never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	body, contentType := memoUpload(t, "memo.wav", []byte("fake-audio"), nil)
	req, err := http.NewRequestWithContext(ctx, "POST", ts.URL+"/v1/notes", body)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("upload memo: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	var ev watchEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil {
		t.Fatalf("read watch event: %v", err)
	}
	if ev.Type != eventNoteCreated {
		t.Errorf("event type = %q, want %q", ev.Type, eventNoteCreated)
	}
	if ev.Note.Transcription != "a freshly spoken memo about the weekend plans" {
		t.Errorf("event transcription = %q", ev.Note.Transcription)
	}
}

func TestWatchHubDropsSlowSubscribers(t *testing.T) {
	t.Parallel()

	hub := newWatchHub()
	ch, unsubscribe := hub.subscribe()
	defer unsubscribe()

	// Overfill the queue; broadcast must never block.
	for i := 0; i < subscriberBuffer*2; i++ {
		hub.broadcast(watchEvent{Type: eventNoteCreated})
	}

	if got := len(ch); got != subscriberBuffer {
		t.Errorf("queued events = %d, want %d", got, subscriberBuffer)
	}
}
