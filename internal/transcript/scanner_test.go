package transcript_test

import (
	"strings"
	"testing"

	"github.com/notewisp/notewisp/internal/transcript"
)

func TestFindPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tokens []string
		start  int
		want   transcript.PatternMatch
	}{
		{
			name:   "empty input",
			tokens: nil,
			start:  0,
			want:   transcript.PatternMatch{},
		},
		{
			name:   "start past end",
			tokens: []string{"hello"},
			start:  1,
			want:   transcript.PatternMatch{},
		},
		{
			name:   "single word repeated",
			tokens: []string{"fa", "fa", "fa", "fa"},
			start:  0,
			want:   transcript.PatternMatch{Length: 1, Repetitions: 4},
		},
		{
			name:   "case insensitive comparison",
			tokens: []string{"Fa", "fa", "FA"},
			start:  0,
			want:   transcript.PatternMatch{Length: 1, Repetitions: 3},
		},
		{
			name:   "two word phrase repeated",
			tokens: []string{"thank", "you", "thank", "you", "thank", "you"},
			start:  0,
			want:   transcript.PatternMatch{Length: 2, Repetitions: 3},
		},
		{
			name:   "repetition interrupted by other words",
			tokens: []string{"fa", "stop", "fa", "fa"},
			start:  0,
			want:   transcript.PatternMatch{Length: 4, Repetitions: 1},
		},
		{
			name:   "scan from mid slice",
			tokens: []string{"well", "so", "so", "so"},
			start:  1,
			want:   transcript.PatternMatch{Length: 1, Repetitions: 3},
		},
		{
			name:   "more repetitions beat longer pattern",
			tokens: []string{"a", "a", "a", "a"},
			start:  0,
			want:   transcript.PatternMatch{Length: 1, Repetitions: 4},
		},
		{
			name:   "equal repetitions prefer longer pattern",
			tokens: []string{"alpha", "beta", "gamma"},
			start:  0,
			want:   transcript.PatternMatch{Length: 3, Repetitions: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := transcript.FindPattern(tt.tokens, tt.start)
			if got != tt.want {
				t.Errorf("FindPattern(%v, %d) = %+v, want %+v", tt.tokens, tt.start, got, tt.want)
			}
		})
	}
}

func TestFindPatternLengthBound(t *testing.T) {
	t.Parallel()

	// An 11-word phrase repeated twice is beyond the pattern length bound,
	// so only shorter (non-repeating) windows are considered.
	phrase := strings.Fields("one two three four five six seven eight nine ten eleven")
	tokens := append(append([]string{}, phrase...), phrase...)

	got := transcript.FindPattern(tokens, 0)
	if got.Repetitions != 1 {
		t.Errorf("FindPattern found %d repetitions of an 11-token pattern, want the bound to exclude it", got.Repetitions)
	}
	if got.Length > 10 {
		t.Errorf("FindPattern length = %d, want <= 10", got.Length)
	}
}
