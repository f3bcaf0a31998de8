// Package mcpserver exposes Notewisp's text engines as Model Context
// Protocol tools over stdio, so editor assistants and agent runtimes can
// clean transcripts and parse structured notes without going through the
// HTTP API.
//
// Tools:
//
//   - clean_transcript: truncates runaway repetitions and reports whether the
//     text looks like a transcription hallucination.
//   - parse_note: splits structured model output into note sections and
//     renders the markdown document.
package mcpserver

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/notewisp/notewisp/internal/note"
	"github.com/notewisp/notewisp/internal/response"
	"github.com/notewisp/notewisp/internal/transcript"
	"github.com/notewisp/notewisp/pkg/notes"
)

// CleanTranscriptInput are the arguments for the clean_transcript tool.
type CleanTranscriptInput struct {
	// Text is the transcript to clean.
	Text string `json:"text" jsonschema:"the transcript text to clean"`

	// MaxRepetitions caps how often a phrase may repeat. Zero uses the
	// default of 3.
	MaxRepetitions int `json:"max_repetitions,omitempty" jsonschema:"how often a phrase may repeat before truncation, default 3"`

	// HallucinationThreshold tunes detection sensitivity. Zero uses the
	// default of 0.3.
	HallucinationThreshold float64 `json:"hallucination_threshold,omitempty" jsonschema:"unique-word ratio below which text is flagged, default 0.3"`
}

// CleanTranscriptOutput is the result of the clean_transcript tool.
type CleanTranscriptOutput struct {
	CleanedText      string `json:"cleaned_text"`
	HadHallucination bool   `json:"had_hallucination"`
}

// ParseNoteInput are the arguments for the parse_note tool.
type ParseNoteInput struct {
	// Text is the model output (or raw transcript) to parse.
	Text string `json:"text" jsonschema:"the structured model output or raw transcript"`

	// Simple treats the whole input as the transcription without header
	// parsing.
	Simple bool `json:"simple,omitempty" jsonschema:"treat the whole input as the transcription"`

	// Title overrides the derived note title.
	Title string `json:"title,omitempty" jsonschema:"optional note title"`
}

// ParseNoteOutput is the result of the parse_note tool.
type ParseNoteOutput struct {
	Title         string   `json:"title"`
	Transcription string   `json:"transcription"`
	Summary       string   `json:"summary,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	Diagram       string   `json:"diagram,omitempty"`
	Markdown      string   `json:"markdown"`
}

// New builds the Notewisp MCP server with all tools registered.
func New(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "notewisp",
		Title:   "Notewisp note tools",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clean_transcript",
		Description: "Truncate runaway phrase repetitions in a transcript and report whether it looks like a speech-to-text hallucination.",
	}, cleanTranscript)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "parse_note",
		Description: "Parse TRANSCRIPTION/SUMMARY/TAGS/DIAGRAM sections out of model output and render the markdown note.",
	}, parseNote)

	return server
}

// Run serves the MCP server on stdin/stdout until ctx is cancelled or the
// client disconnects.
func Run(ctx context.Context, version string) error {
	if err := New(version).Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcpserver: %w", err)
	}
	return nil
}

func cleanTranscript(ctx context.Context, req *mcp.CallToolRequest, in CleanTranscriptInput) (*mcp.CallToolResult, CleanTranscriptOutput, error) {
	var opts []transcript.Option
	if in.MaxRepetitions > 0 {
		opts = append(opts, transcript.WithMaxRepetitions(in.MaxRepetitions))
	}
	if in.HallucinationThreshold > 0 {
		opts = append(opts, transcript.WithHallucinationThreshold(in.HallucinationThreshold))
	}

	res := transcript.NewCleaner(opts...).Clean(in.Text)

	return nil, CleanTranscriptOutput{
		CleanedText:      res.Text,
		HadHallucination: res.Hallucinated,
	}, nil
}

func parseNote(ctx context.Context, req *mcp.CallToolRequest, in ParseNoteInput) (*mcp.CallToolResult, ParseNoteOutput, error) {
	parsed := response.Parse(in.Text, in.Simple)

	n := notes.Note{
		Title:         in.Title,
		Transcription: deref(parsed.Transcription),
		Summary:       deref(parsed.Summary),
		Tags:          parsed.Tags,
		Diagram:       deref(parsed.Diagram),
	}
	if n.Title == "" {
		n.Title = note.DeriveTitle(n.Summary, n.Transcription)
	}
	n.Markdown = note.RenderMarkdown(n)

	return nil, ParseNoteOutput{
		Title:         n.Title,
		Transcription: n.Transcription,
		Summary:       n.Summary,
		Tags:          n.Tags,
		Diagram:       n.Diagram,
		Markdown:      n.Markdown,
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
