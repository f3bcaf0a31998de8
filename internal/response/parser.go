// Package response parses the structured output a language model produces
// when asked to turn a raw transcript into note sections.
//
// The model is prompted to answer with labelled sections:
//
//	TRANSCRIPTION: <polished transcript>
//	SUMMARY: <a few sentences>
//	TAGS: <comma separated topics>
//	DIAGRAM: <optional mermaid diagram>
//
// Models follow instructions loosely, so the parser is deliberately
// forgiving: headers match case-insensitively, sections may appear in any
// order or be missing, and unparseable input degrades to treating the whole
// text as the transcription. Parse never fails.
package response

import (
	"regexp"
	"strings"
)

// headerPattern matches the section labels anywhere in the model output.
var headerPattern = regexp.MustCompile(`(?i)\b(TRANSCRIPTION|SUMMARY|TAGS|DIAGRAM):`)

// Parsed holds the sections recovered from model output. The string fields
// are nil when their header was absent, which is distinct from a header that
// was present with empty content.
type Parsed struct {
	Transcription *string
	Summary       *string
	Tags          []string
	Diagram       *string
}

// Parse splits text into note sections. With simple set, the whole input is
// taken as the transcription verbatim and no headers are interpreted; this is
// the path for deployments that skip the language-model structuring stage.
//
// In structured mode each section runs from its header to the next header or
// the end of input. When several headers of the same kind appear, the first
// wins. When no TRANSCRIPTION header exists at all, the entire input becomes
// the transcription so that a model ignoring the format loses nothing.
func Parse(text string, simple bool) Parsed {
	if simple {
		t := strings.TrimSpace(text)
		return Parsed{Transcription: &t}
	}

	var p Parsed

	locs := headerPattern.FindAllStringSubmatchIndex(text, -1)
	for i, loc := range locs {
		name := strings.ToUpper(text[loc[2]:loc[3]])

		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		body := strings.TrimSpace(text[loc[1]:end])

		switch name {
		case "TRANSCRIPTION":
			if p.Transcription == nil {
				p.Transcription = &body
			}
		case "SUMMARY":
			if p.Summary == nil {
				p.Summary = &body
			}
		case "TAGS":
			if p.Tags == nil {
				p.Tags = ParseTags(body)
			}
		case "DIAGRAM":
			if p.Diagram == nil {
				d := stripMermaidFence(body)
				p.Diagram = &d
			}
		}
	}

	if p.Transcription == nil {
		t := strings.TrimSpace(text)
		p.Transcription = &t
	}

	return p
}

// stripMermaidFence removes a surrounding markdown code fence from a diagram
// body. Models wrap mermaid in fences no matter how they are prompted.
func stripMermaidFence(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```mermaid"); ok {
		s = rest
	} else if rest, ok := strings.CutPrefix(s, "```"); ok {
		s = rest
	}
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutSuffix(s, "```"); ok {
		s = rest
	}
	return strings.TrimSpace(s)
}
