// Package transcript sanitises raw speech-to-text output before it is turned
// into a note.
//
// Transcription models occasionally fall into a degenerate decoding loop and
// emit the same word or phrase dozens of times, or invent whole passages when
// fed near-silent audio. This package detects both failure modes on the token
// level: [FindPattern] locates consecutively repeating phrase patterns,
// [CleanRepetitiveText] truncates them, and [DetectHallucination] scores a
// transcript for hallucination signals. The vocab subpackage handles the
// third repair stage, phonetic correction of misheard domain terms.
package transcript

import "strings"

// maxPatternLength bounds the phrase length, in tokens, that FindPattern
// considers. Repetition loops longer than this are rare enough to ignore.
const maxPatternLength = 10

// PatternMatch describes a consecutively repeating token pattern found at a
// scan position. The zero value means no pattern was found.
type PatternMatch struct {
	// Length is the pattern size in tokens.
	Length int

	// Repetitions is how many times the pattern occurs back to back,
	// counting the first occurrence. Always at least 1 for a non-zero match.
	Repetitions int
}

// FindPattern scans tokens from start for the most significant repeating
// pattern. Candidate lengths from 1 to [maxPatternLength] tokens are tried in
// ascending order; occurrences are compared case-insensitively and counted
// only while they follow each other without gaps or overlap.
//
// A candidate replaces the current best only when it repeats strictly more
// often, or repeats equally often with a strictly longer pattern. Returns the
// zero PatternMatch when start is at or past the end of tokens.
func FindPattern(tokens []string, start int) PatternMatch {
	var best PatternMatch

	remaining := len(tokens) - start
	for length := 1; length <= maxPatternLength && length <= remaining; length++ {
		pattern := joinLower(tokens[start : start+length])

		reps := 1
		for next := start + length; next+length <= len(tokens); next += length {
			if joinLower(tokens[next:next+length]) != pattern {
				break
			}
			reps++
		}

		if reps > best.Repetitions || (reps == best.Repetitions && length > best.Length) {
			best = PatternMatch{Length: length, Repetitions: reps}
		}
	}

	return best
}

// joinLower renders a token window into its case-insensitive comparison form.
func joinLower(tokens []string) string {
	return strings.ToLower(strings.Join(tokens, " "))
}
