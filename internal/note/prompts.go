package note

// structurePrompt instructs the language model to reshape a raw voice-memo
// transcript into the labelled sections that [response.Parse] understands.
// The wording matters: models drift from the format quickly when the labels
// are not spelled out with examples of what each section holds.
const structurePrompt = `You turn raw voice memo transcripts into structured notes.

Given a transcript, respond with exactly these labelled sections:

TRANSCRIPTION: The transcript, lightly polished. Fix obvious speech-to-text
errors and punctuation but keep the speaker's own words and order. Do not
summarise here and do not omit content.

SUMMARY: Two to four sentences capturing the key points and any decisions or
action items.

TAGS: Three to five short topic tags, comma separated, lowercase.

DIAGRAM: Only when the memo describes a process, architecture, or sequence of
steps: a mermaid diagram of it. Omit this section entirely otherwise.

Respond with the sections only. No preamble, no commentary.`
