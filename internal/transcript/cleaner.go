package transcript

import "strings"

// TruncationMarker replaces the repetitions removed by [CleanRepetitiveText].
// The exact wording is part of the output surface; note rendering and
// downstream consumers rely on it.
const TruncationMarker = "[repetitive pattern truncated]"

const (
	// DefaultMaxRepetitions is how often a pattern may repeat before the
	// remainder is truncated.
	DefaultMaxRepetitions = 3

	// DefaultHallucinationThreshold is the unique-word ratio below which a
	// transcript is considered hallucinated.
	DefaultHallucinationThreshold = 0.3

	// minDetectionTokens is the shortest transcript DetectHallucination will
	// judge. Anything shorter has too little signal either way.
	minDetectionTokens = 10

	// massMinRepetitions gates which patterns count towards the repetitive
	// mass score: only patterns repeating more often than this.
	massMinRepetitions = 2

	// massLimit is the repetitive-mass fraction above which a transcript is
	// considered hallucinated.
	massLimit = 0.5

	// runawayRepetitions is the consecutive repetition count beyond which a
	// single pattern alone marks the transcript as hallucinated.
	runawayRepetitions = 8
)

// CleanRepetitiveText truncates runaway phrase repetitions in text. Whenever
// a pattern repeats more than maxRepetitions times back to back, the first
// maxRepetitions occurrences are kept with their original casing, the
// [TruncationMarker] is inserted, and the scan continues after the last
// repetition. Tokenisation is on whitespace; the result is rejoined with
// single spaces, so other whitespace is normalised as a side effect.
//
// The operation is idempotent: cleaning already-cleaned text changes nothing.
// A maxRepetitions below 1 falls back to [DefaultMaxRepetitions].
func CleanRepetitiveText(text string, maxRepetitions int) string {
	if maxRepetitions < 1 {
		maxRepetitions = DefaultMaxRepetitions
	}

	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))

	i := 0
	for i < len(tokens) {
		m := FindPattern(tokens, i)
		if m.Repetitions > maxRepetitions {
			out = append(out, tokens[i:i+m.Length*maxRepetitions]...)
			out = append(out, TruncationMarker)
			i += m.Length * m.Repetitions
			continue
		}
		out = append(out, tokens[i])
		i++
	}

	return strings.Join(out, " ")
}

// DetectHallucination reports whether text looks like transcription-model
// hallucination. Three signals are evaluated in order; any single one
// suffices:
//
//  1. Vocabulary collapse: the ratio of distinct words (case-insensitive) to
//     total words falls below threshold.
//  2. Repetitive mass: more than half of all tokens sit inside regions where
//     a pattern repeats more than twice. Regions are consumed greedily left
//     to right without overlap.
//  3. Runaway loop: any single pattern repeats more than eight times in a
//     row anywhere in the text.
//
// Transcripts shorter than ten tokens are never flagged. A threshold at or
// below zero falls back to [DefaultHallucinationThreshold].
func DetectHallucination(text string, threshold float64) bool {
	if threshold <= 0 {
		threshold = DefaultHallucinationThreshold
	}

	tokens := strings.Fields(text)
	if len(tokens) < minDetectionTokens {
		return false
	}

	// Signal 1: vocabulary collapse.
	unique := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		unique[strings.ToLower(t)] = struct{}{}
	}
	if float64(len(unique))/float64(len(tokens)) < threshold {
		return true
	}

	// Signal 2: repetitive mass.
	mass := 0
	for i := 0; i < len(tokens); {
		m := FindPattern(tokens, i)
		if m.Repetitions > massMinRepetitions {
			mass += m.Length * m.Repetitions
			i += m.Length * m.Repetitions
			continue
		}
		i++
	}
	if float64(mass)/float64(len(tokens)) > massLimit {
		return true
	}

	// Signal 3: runaway loop.
	for i := range tokens {
		if FindPattern(tokens, i).Repetitions > runawayRepetitions {
			return true
		}
	}

	return false
}

// Result is the outcome of a [Cleaner.Clean] pass.
type Result struct {
	// Text is the transcript with runaway repetitions truncated.
	Text string

	// Hallucinated is true when the original, uncleaned transcript tripped
	// one of the hallucination signals. Callers decide what to do with the
	// flag; cleaning happens either way.
	Hallucinated bool
}

// Cleaner bundles the repetition cap and hallucination threshold so the
// processing pipeline carries one configured value instead of loose numbers.
// A Cleaner is read-only after construction and safe for concurrent use.
type Cleaner struct {
	maxRepetitions int
	threshold      float64
}

// Option is a functional option for [NewCleaner].
type Option func(*Cleaner)

// WithMaxRepetitions overrides the repetition cap. Default: 3.
func WithMaxRepetitions(n int) Option {
	return func(c *Cleaner) {
		c.maxRepetitions = n
	}
}

// WithHallucinationThreshold overrides the unique-word ratio threshold.
// Default: 0.3.
func WithHallucinationThreshold(v float64) Option {
	return func(c *Cleaner) {
		c.threshold = v
	}
}

// NewCleaner returns a Cleaner with the supplied options applied.
func NewCleaner(opts ...Option) *Cleaner {
	c := &Cleaner{
		maxRepetitions: DefaultMaxRepetitions,
		threshold:      DefaultHallucinationThreshold,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Clean runs hallucination detection on the original text, then truncates
// repetitions. Detection always sees the uncleaned input so that truncation
// cannot mask the signals it is based on.
func (c *Cleaner) Clean(text string) Result {
	return Result{
		Hallucinated: DetectHallucination(text, c.threshold),
		Text:         CleanRepetitiveText(text, c.maxRepetitions),
	}
}
