package response

import (
	"strings"
	"unicode"
)

// MaxTags caps how many tags a single note may carry.
const MaxTags = 5

// strippedPunct lists the punctuation removed from tags. Unicode letters,
// digits, marks, and symbols such as emoji are kept so tags work in any
// script.
const strippedPunct = ".,;:!?'\"`´()[]{}<>/\\|@#$%^&*+=~" + "“”‘’«»…"

// ParseTags splits the raw TAGS section into at most [MaxTags] normalised
// tags. Entries are separated by commas or newlines; list bullets and leading
// hash marks are tolerated and removed. Entries that normalise to nothing are
// dropped and do not count against the cap.
func ParseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	tags := make([]string, 0, MaxTags)
	for _, part := range strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' }) {
		part = strings.TrimSpace(part)
		part = strings.TrimLeft(part, "-*•")
		part = strings.TrimSpace(part)
		part = strings.TrimLeft(part, "#")

		tag := NormalizeTag(part)
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}

	if len(tags) == 0 {
		return nil
	}
	return tags
}

// NormalizeTag converts free-form text into a tag word: lowercased, with
// whitespace and underscore runs collapsed into single hyphens, punctuation
// stripped, repeated hyphens collapsed, and edge hyphens removed. Returns ""
// when nothing survives.
func NormalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	pendingHyphen := false

	for _, r := range s {
		switch {
		case unicode.IsSpace(r) || r == '-' || r == '_':
			pendingHyphen = true
		case strings.ContainsRune(strippedPunct, r):
			// dropped
		default:
			if pendingHyphen && b.Len() > 0 {
				b.WriteRune('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		}
	}

	return b.String()
}
