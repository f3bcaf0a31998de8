// Package mock provides a test double for the embeddings.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/notewisp/notewisp/pkg/provider/embeddings"
)

// Ensure Provider implements the embeddings.Provider interface.
var _ embeddings.Provider = (*Provider)(nil)

// Provider is a mock embeddings backend. When EmbedFunc is nil, Embed
// returns a deterministic vector of Dims length derived from the input text,
// so equal texts embed equally.
type Provider struct {
	// Dims is the vector length reported and produced. Zero defaults to 8.
	Dims int

	// EmbedFunc, when set, fully overrides Embed.
	EmbedFunc func(ctx context.Context, text string) ([]float32, error)

	// EmbedErr, if non-nil, is returned from every Embed call.
	EmbedErr error

	mu    sync.Mutex
	calls []string
}

// Embed implements embeddings.Provider.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	p.calls = append(p.calls, text)
	p.mu.Unlock()

	if p.EmbedErr != nil {
		return nil, p.EmbedErr
	}
	if p.EmbedFunc != nil {
		return p.EmbedFunc(ctx, text)
	}

	vec := make([]float32, p.Dimensions())
	for i, r := range text {
		vec[i%len(vec)] += float32(r%13) / 13
	}
	return vec, nil
}

// Dimensions implements embeddings.Provider.
func (p *Provider) Dimensions() int {
	if p.Dims <= 0 {
		return 8
	}
	return p.Dims
}

// ModelID implements embeddings.Provider.
func (p *Provider) ModelID() string { return "mock" }

// Calls returns a copy of every text passed to Embed.
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.calls))
	copy(out, p.calls)
	return out
}
