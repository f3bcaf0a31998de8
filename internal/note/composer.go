// Package note assembles finished notes from raw voice-memo audio. The
// [Composer] runs the full pipeline: speech-to-text transcription, phonetic
// vocabulary correction, optional language-model structuring, repetition
// cleanup with hallucination detection, and markdown rendering.
//
// The language-model stage is best effort. When no structurer is configured,
// or the configured one fails, the pipeline degrades to a simple note that
// carries the transcript verbatim instead of failing the whole memo.
package note

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/notewisp/notewisp/internal/observe"
	"github.com/notewisp/notewisp/internal/response"
	"github.com/notewisp/notewisp/internal/transcript"
	"github.com/notewisp/notewisp/internal/transcript/vocab"
	"github.com/notewisp/notewisp/pkg/notes"
	"github.com/notewisp/notewisp/pkg/provider/llm"
	"github.com/notewisp/notewisp/pkg/provider/transcribe"
)

// structureTemperature keeps the structuring stage close to deterministic.
// The model reshapes text, it does not write it.
const structureTemperature = 0.2

// maxTitleWords bounds titles derived from note content.
const maxTitleWords = 8

// Request carries one voice memo through [Composer.Compose].
type Request struct {
	// Audio is the raw audio file content.
	Audio []byte

	// Filename is the uploaded file's name, used to derive the audio format.
	Filename string

	// Language is an optional ISO-639-1 hint for the transcriber.
	Language string

	// Title overrides the derived note title when non-empty.
	Title string
}

// Composer turns voice-memo audio into finished [notes.Note] values. It is
// safe for concurrent use; the cleaner and vocabulary may be swapped at
// runtime via [Composer.SetCleaner] and [Composer.SetVocabulary] (config hot
// reload).
type Composer struct {
	transcriber transcribe.Provider
	structurer  llm.Provider
	corrector   *vocab.Corrector
	metrics     *observe.Metrics

	mu         sync.RWMutex
	cleaner    *transcript.Cleaner
	vocabulary []string
}

// ComposerOption is a functional option for [NewComposer].
type ComposerOption func(*Composer)

// WithStructurer sets the language model used to structure transcripts into
// sections. Without one, every note is composed in simple mode.
func WithStructurer(p llm.Provider) ComposerOption {
	return func(c *Composer) {
		c.structurer = p
	}
}

// WithVocabulary sets the domain terms used for phonetic transcript
// correction.
func WithVocabulary(terms []string) ComposerOption {
	return func(c *Composer) {
		c.vocabulary = terms
	}
}

// WithCleaner replaces the default repetition cleaner.
func WithCleaner(cl *transcript.Cleaner) ComposerOption {
	return func(c *Composer) {
		c.cleaner = cl
	}
}

// WithCorrector replaces the default vocabulary corrector.
func WithCorrector(co *vocab.Corrector) ComposerOption {
	return func(c *Composer) {
		c.corrector = co
	}
}

// WithMetrics sets the metrics instance. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) ComposerOption {
	return func(c *Composer) {
		c.metrics = m
	}
}

// NewComposer creates a Composer around the given transcription provider.
func NewComposer(transcriber transcribe.Provider, opts ...ComposerOption) *Composer {
	c := &Composer{
		transcriber: transcriber,
		cleaner:     transcript.NewCleaner(),
		corrector:   vocab.New(),
	}
	for _, o := range opts {
		o(c)
	}
	if c.metrics == nil {
		c.metrics = observe.DefaultMetrics()
	}
	return c
}

// Compose runs the full memo pipeline and returns the finished note. The
// returned note has no ID; the store assigns one on save.
//
// Only transcription failures and empty transcripts are returned as errors.
// A failing structurer degrades the note to simple mode instead.
func (c *Composer) Compose(ctx context.Context, req Request) (*notes.Note, error) {
	log := observe.Logger(ctx)

	// ── 1. Transcribe ──
	start := time.Now()
	res, err := c.transcriber.Transcribe(ctx, transcribe.Request{
		Audio:    req.Audio,
		Filename: req.Filename,
		Language: req.Language,
	})
	if err != nil {
		c.metrics.RecordTranscribe(ctx, time.Since(start), "error")
		return nil, fmt.Errorf("note: transcribe: %w", err)
	}
	c.metrics.RecordTranscribe(ctx, time.Since(start), "ok")

	raw := strings.TrimSpace(res.Text)
	if raw == "" {
		return nil, fmt.Errorf("note: transcribe: empty transcript for %q", req.Filename)
	}

	c.mu.RLock()
	cleaner := c.cleaner
	vocabulary := c.vocabulary
	c.mu.RUnlock()

	// ── 2. Vocabulary correction ──
	if c.corrector != nil && len(vocabulary) > 0 {
		var corrections []vocab.Correction
		raw, corrections = c.corrector.Correct(raw, vocabulary)
		if n := len(corrections); n > 0 {
			c.metrics.VocabCorrections.Add(ctx, int64(n))
			log.Debug("applied vocabulary corrections", "count", n)
		}
	}

	// ── 3. Structure ──
	parsed, mode := c.structure(ctx, raw)

	// ── 4. Clean ──
	cleaned := cleaner.Clean(deref(parsed.Transcription))
	if cleaned.Hallucinated {
		c.metrics.HallucinationsDetected.Add(ctx, 1)
		log.Warn("hallucination detected in transcript", "file", req.Filename)
	}
	if n := strings.Count(cleaned.Text, transcript.TruncationMarker); n > 0 {
		c.metrics.TruncationsApplied.Add(ctx, int64(n))
	}

	// ── 5. Assemble and render ──
	n := notes.Note{
		Title:         req.Title,
		Transcription: cleaned.Text,
		Summary:       deref(parsed.Summary),
		Tags:          parsed.Tags,
		Diagram:       deref(parsed.Diagram),
		Hallucinated:  cleaned.Hallucinated,
		CreatedAt:     time.Now().UTC(),
	}
	if n.Title == "" {
		n.Title = DeriveTitle(n.Summary, n.Transcription)
	}
	n.Markdown = RenderMarkdown(n)

	c.metrics.RecordNoteProcessed(ctx, mode, "ok")
	log.Info("note composed", "mode", mode, "title", n.Title, "hallucinated", n.Hallucinated)

	return &n, nil
}

// SetVocabulary replaces the correction term list. Safe to call while
// Compose runs; in-flight memos finish with the old terms.
func (c *Composer) SetVocabulary(terms []string) {
	c.mu.Lock()
	c.vocabulary = terms
	c.mu.Unlock()
}

// SetCleaner replaces the repetition cleaner. Safe to call while Compose runs.
func (c *Composer) SetCleaner(cl *transcript.Cleaner) {
	if cl == nil {
		return
	}
	c.mu.Lock()
	c.cleaner = cl
	c.mu.Unlock()
}

// structure runs the language-model stage. It returns the parsed sections and
// the mode label ("structured" or "simple") for metrics.
func (c *Composer) structure(ctx context.Context, transcriptText string) (response.Parsed, string) {
	if c.structurer == nil {
		return response.Parse(transcriptText, true), "simple"
	}

	start := time.Now()
	resp, err := c.structurer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: structurePrompt,
		Messages: []llm.Message{
			{Role: "user", Content: transcriptText},
		},
		Temperature: structureTemperature,
	})
	if err != nil {
		c.metrics.RecordStructure(ctx, time.Since(start), "error")
		observe.Logger(ctx).Warn("structuring failed, falling back to simple note", "error", err)
		return response.Parse(transcriptText, true), "simple"
	}
	c.metrics.RecordStructure(ctx, time.Since(start), "ok")

	return response.Parse(resp.Content, false), "structured"
}

// DeriveTitle picks a title from the summary when one exists, otherwise from
// the opening words of the transcript.
func DeriveTitle(summary, transcription string) string {
	src := summary
	if src == "" {
		src = transcription
	}

	fields := strings.Fields(src)
	if len(fields) == 0 {
		return "Untitled memo"
	}
	if len(fields) > maxTitleWords {
		fields = fields[:maxTitleWords]
	}
	return strings.TrimRight(strings.Join(fields, " "), ".,;:!?")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
