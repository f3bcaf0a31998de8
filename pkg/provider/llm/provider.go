// Package llm defines the Provider interface for the language-model backends
// that turn a raw transcript into structured note sections.
//
// Structuring is a batch job on a finished transcript, so the interface
// exposes only blocking completion. Implementations must be safe for
// concurrent use.
package llm

import "context"

// Message is a single message in a completion conversation.
type Message struct {
	// Role is "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// CompletionRequest is the input to [Provider.Complete].
type CompletionRequest struct {
	// SystemPrompt, when non-empty, is prepended as a system message.
	SystemPrompt string

	// Messages is the conversation in order.
	Messages []Message

	// Temperature controls sampling randomness. Zero means the backend
	// default.
	Temperature float64

	// MaxTokens caps the response length. Zero means the backend default.
	MaxTokens int
}

// Usage reports token consumption for a single completion.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionResponse is the output of [Provider.Complete].
type CompletionResponse struct {
	// Content is the full response text.
	Content string

	// Usage is the token accounting, when the backend reports it.
	Usage Usage
}

// Provider is the abstraction over any completion-capable language model.
type Provider interface {
	// Complete performs a blocking completion and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
