// Package vocab repairs domain vocabulary that the transcription model
// mishears. Users record voice memos full of project names, jargon, and
// proper nouns that a general speech model renders phonetically ("post gress
// quell" for "PostgreSQL"); this package maps such windows back onto a
// configured term list.
//
// Matching is two-staged: Double Metaphone codes act as a cheap phonetic
// filter, then Jaro-Winkler similarity ranks the surviving candidates. A
// window is only replaced when a candidate clears both the phonetic floor
// and the similarity threshold, so ordinary words stay untouched.
package vocab

import (
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultMinScore      = 0.85
	defaultPhoneticFloor = 0.70

	// maxWindow is the widest token window considered for a single term.
	// Multi-word terms rarely smear across more than three spoken tokens.
	maxWindow = 3
)

// Correction records a single replacement made by [Corrector.Correct].
type Correction struct {
	// Original is the token window as transcribed.
	Original string

	// Term is the vocabulary term it was replaced with.
	Term string

	// Score is the Jaro-Winkler similarity that justified the replacement.
	Score float64
}

// Corrector applies phonetic vocabulary correction to transcripts. It is
// read-only after construction and safe for concurrent use.
type Corrector struct {
	minScore      float64
	phoneticFloor float64
}

// Option is a functional option for [New].
type Option func(*Corrector)

// WithMinScore sets the Jaro-Winkler similarity required for a replacement
// when no phonetic code overlap exists. Default: 0.85.
func WithMinScore(v float64) Option {
	return func(c *Corrector) {
		c.minScore = v
	}
}

// WithPhoneticFloor sets the Jaro-Winkler similarity required when the window
// and term already overlap phonetically. Default: 0.70.
func WithPhoneticFloor(v float64) Option {
	return func(c *Corrector) {
		c.phoneticFloor = v
	}
}

// New returns a Corrector with the supplied options applied.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		minScore:      defaultMinScore,
		phoneticFloor: defaultPhoneticFloor,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// entry is a vocabulary term with its precomputed phonetic codes.
type entry struct {
	term   string
	lower  string
	tokens []string
	codes  map[string]struct{}
}

// Correct scans text for token windows that phonetically match one of terms
// and replaces them, preserving trailing punctuation. Wider windows win over
// narrower ones at the same position. The returned slice lists every applied
// replacement in text order; it is nil when nothing changed.
func (c *Corrector) Correct(text string, terms []string) (string, []Correction) {
	if strings.TrimSpace(text) == "" || len(terms) == 0 {
		return text, nil
	}

	entries := buildEntries(terms)
	if len(entries) == 0 {
		return text, nil
	}

	tokens := strings.Fields(text)
	out := make([]string, 0, len(tokens))
	var applied []Correction

	i := 0
	for i < len(tokens) {
		term, score, width := c.bestMatch(tokens, i, entries)
		if width == 0 {
			out = append(out, tokens[i])
			i++
			continue
		}

		window := strings.Join(tokens[i:i+width], " ")
		_, punct := splitTrailingPunct(window)

		out = append(out, term+punct)
		applied = append(applied, Correction{Original: window, Term: term, Score: score})
		i += width
	}

	return strings.Join(out, " "), applied
}

// bestMatch finds the highest-scoring term for any window starting at pos.
// Returns width 0 when no term qualifies.
func (c *Corrector) bestMatch(tokens []string, pos int, entries []entry) (term string, score float64, width int) {
	limit := maxWindow
	if rest := len(tokens) - pos; rest < limit {
		limit = rest
	}

	for w := limit; w >= 1; w-- {
		window := strings.Join(tokens[pos:pos+w], " ")
		base, _ := splitTrailingPunct(window)
		baseLower := strings.ToLower(base)
		if baseLower == "" {
			continue
		}
		windowCodes := codesForTokens(strings.Fields(baseLower))

		windowTokens := strings.Fields(baseLower)

		for _, e := range entries {
			if baseLower == e.lower {
				// Already correct, nothing to repair.
				continue
			}
			// Only pair windows with terms of a similar token count. The
			// speech model may split or merge one word boundary, not more.
			if diff := len(windowTokens) - len(e.tokens); diff > 1 || diff < -1 {
				continue
			}
			// A mishearing keeps roughly the length of the term it mangles.
			// This stops Winkler's prefix boost from swallowing windows that
			// merely start with the term.
			if diff := compactLen(windowTokens) - compactLen(e.tokens); diff > 3 || diff < -3 {
				continue
			}

			jw := bestSimilarity(windowTokens, e.tokens, baseLower, e.lower)

			// The lower phonetic floor applies only when the window is no
			// wider than the term. A wider window always contains a filler
			// token whose junk the floor would otherwise absorb.
			threshold := c.minScore
			if len(windowTokens) <= len(e.tokens) && codesOverlap(windowCodes, e.codes) {
				threshold = c.phoneticFloor
			}
			if jw >= threshold && jw > score {
				term, score, width = e.term, jw, w
			}
		}

		if width > 0 {
			return term, score, width
		}
	}
	return "", 0, 0
}

// buildEntries precomputes lowercase forms and phonetic codes for terms,
// dropping blanks.
func buildEntries(terms []string) []entry {
	entries := make([]entry, 0, len(terms))
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		lower := strings.ToLower(term)
		toks := strings.Fields(lower)
		entries = append(entries, entry{
			term:   term,
			lower:  lower,
			tokens: toks,
			codes:  codesForTokens(toks),
		})
	}
	return entries
}

// codesForTokens returns the union of Double Metaphone codes for the tokens.
// Empty codes (very short or vowel-only words) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestSimilarity computes the highest Jaro-Winkler score between window and
// term across three views: the full strings, the space-stripped strings, and,
// for windows with the same token count, the worst-best pairwise token score.
// The extra views catch word boundaries the speech model invented or
// swallowed.
func bestSimilarity(windowTokens, termTokens []string, windowFull, termFull string) float64 {
	score := matchr.JaroWinkler(windowFull, termFull, false)

	if len(windowTokens) > 1 || len(termTokens) > 1 {
		if s := matchr.JaroWinkler(strings.Join(windowTokens, ""), strings.Join(termTokens, ""), false); s > score {
			score = s
		}
	}

	// Positional pairwise view: every window token must resemble its term
	// counterpart, scored by the weakest pair.
	if len(windowTokens) == len(termTokens) && len(windowTokens) > 1 {
		pairwise := 1.0
		for i, wt := range windowTokens {
			s := matchr.JaroWinkler(wt, termTokens[i], false)
			if s < pairwise {
				pairwise = s
			}
		}
		if pairwise > score {
			score = pairwise
		}
	}

	return score
}

// compactLen is the combined character length of tokens without spaces.
func compactLen(tokens []string) int {
	n := 0
	for _, t := range tokens {
		n += len(t)
	}
	return n
}

// splitTrailingPunct separates sentence punctuation from the end of a window
// so it can be reattached after replacement.
func splitTrailingPunct(s string) (base, punct string) {
	base = strings.TrimRight(s, ".,;:!?")
	return base, s[len(base):]
}
