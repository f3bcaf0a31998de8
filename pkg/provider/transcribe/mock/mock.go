// Package mock provides a mock transcription provider for tests.
package mock

import (
	"context"
	"sync"

	"github.com/notewisp/notewisp/pkg/provider/transcribe"
)

// Ensure Provider implements the transcribe.Provider interface.
var _ transcribe.Provider = (*Provider)(nil)

// Provider is a configurable mock transcription backend. Set the response
// fields before use; every call is recorded and retrievable via [Calls].
type Provider struct {
	// TranscribeResponse is returned by Transcribe when TranscribeErr is nil.
	TranscribeResponse *transcribe.Result

	// TranscribeErr, when set, is returned by every Transcribe call.
	TranscribeErr error

	mu    sync.Mutex
	calls []transcribe.Request
}

// Transcribe implements transcribe.Provider.
func (p *Provider) Transcribe(_ context.Context, req transcribe.Request) (*transcribe.Result, error) {
	p.mu.Lock()
	p.calls = append(p.calls, req)
	p.mu.Unlock()

	if p.TranscribeErr != nil {
		return nil, p.TranscribeErr
	}
	if p.TranscribeResponse != nil {
		return p.TranscribeResponse, nil
	}
	return &transcribe.Result{}, nil
}

// Calls returns a copy of all recorded requests.
func (p *Provider) Calls() []transcribe.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]transcribe.Request, len(p.calls))
	copy(out, p.calls)
	return out
}
