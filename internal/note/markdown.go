package note

import (
	"strings"

	"github.com/notewisp/notewisp/pkg/notes"
)

// HallucinationNotice is appended to rendered notes whose source transcript
// tripped hallucination detection. The callout syntax renders as a warning
// admonition in Obsidian and GitHub-flavoured markdown.
const HallucinationNotice = "> [!warning] Possible transcription artifacts detected and removed."

// RenderMarkdown produces the markdown document for a note. Layout:
//
//	# <title>
//
//	<transcription>
//
//	## Summary        (only when a summary exists)
//
//	<summary>
//
//	#tag1 #tag2       (only when tags exist)
//
//	## Diagram        (only when a diagram exists)
//
//	```mermaid
//	<diagram>
//	```
//
//	<hallucination notice, only when flagged>
func RenderMarkdown(n notes.Note) string {
	var b strings.Builder

	b.WriteString("# ")
	b.WriteString(n.Title)
	b.WriteString("\n\n")
	b.WriteString(n.Transcription)
	b.WriteString("\n")

	if n.Summary != "" {
		b.WriteString("\n## Summary\n\n")
		b.WriteString(n.Summary)
		b.WriteString("\n")
	}

	if len(n.Tags) > 0 {
		b.WriteString("\n")
		for i, tag := range n.Tags {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString("#")
			b.WriteString(tag)
		}
		b.WriteString("\n")
	}

	if n.Diagram != "" {
		b.WriteString("\n## Diagram\n\n```mermaid\n")
		b.WriteString(n.Diagram)
		b.WriteString("\n```\n")
	}

	if n.Hallucinated {
		b.WriteString("\n")
		b.WriteString(HallucinationNotice)
		b.WriteString("\n")
	}

	return b.String()
}
