// Package transcribe defines the Provider interface for speech-to-text
// backends that accept a complete recorded audio file and return its
// transcript in one call.
//
// Notewisp deals in finished voice memos, not live audio, so the interface is
// deliberately batch-shaped: one request, one result. Implementations must be
// safe for concurrent use.
package transcribe

import "context"

// Request is a single transcription job.
type Request struct {
	// Audio is the complete encoded audio file (wav, mp3, m4a, ogg, webm).
	Audio []byte

	// Filename is the original upload name. Backends use its extension to
	// determine the container format; when empty, implementations assume wav.
	Filename string

	// Language is an optional ISO-639-1 hint (e.g. "en", "de"). Empty lets
	// the backend auto-detect.
	Language string

	// Prompt is an optional vocabulary hint passed to the model. Listing
	// domain terms here measurably reduces mishearings.
	Prompt string
}

// Result is the transcript of one audio file.
type Result struct {
	// Text is the raw transcript as returned by the backend, unmodified.
	Text string
}

// Provider is the abstraction over any speech-to-text backend.
type Provider interface {
	// Transcribe converts req.Audio into text. It returns an error when the
	// backend rejects the audio, the request fails, or ctx is cancelled.
	Transcribe(ctx context.Context, req Request) (*Result, error)
}
