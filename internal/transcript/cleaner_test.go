package transcript_test

import (
	"strings"
	"testing"

	"github.com/notewisp/notewisp/internal/transcript"
)

func TestCleanRepetitiveText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		maxReps int
		want    string
	}{
		{
			name:    "empty input",
			text:    "",
			maxReps: 3,
			want:    "",
		},
		{
			name:    "normal prose untouched",
			text:    "The quick brown fox jumps over the lazy dog",
			maxReps: 3,
			want:    "The quick brown fox jumps over the lazy dog",
		},
		{
			name:    "repetitions at the cap are kept",
			text:    "He said no no no and walked away",
			maxReps: 3,
			want:    "He said no no no and walked away",
		},
		{
			name:    "repetitions above the cap are truncated",
			text:    "go go go go go home",
			maxReps: 3,
			want:    "go go go " + transcript.TruncationMarker + " home",
		},
		{
			name:    "original casing survives truncation",
			text:    "No NO no NO no no please",
			maxReps: 3,
			want:    "No NO no " + transcript.TruncationMarker + " please",
		},
		{
			name:    "phrase repetition truncated",
			text:    "thank you thank you thank you thank you thank you",
			maxReps: 3,
			want:    "thank you thank you thank you " + transcript.TruncationMarker,
		},
		{
			name:    "whitespace normalised",
			text:    "hello\t world\n again",
			maxReps: 3,
			want:    "hello world again",
		},
		{
			name:    "cap of one",
			text:    "beep beep beep done",
			maxReps: 1,
			want:    "beep " + transcript.TruncationMarker + " done",
		},
		{
			name:    "invalid cap falls back to default",
			text:    "la la la la",
			maxReps: 0,
			want:    "la la la " + transcript.TruncationMarker,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := transcript.CleanRepetitiveText(tt.text, tt.maxReps)
			if got != tt.want {
				t.Errorf("CleanRepetitiveText(%q, %d)\n got:  %q\n want: %q", tt.text, tt.maxReps, got, tt.want)
			}
		})
	}
}

func TestCleanRepetitiveTextIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"This is a test " + strings.Repeat("fa ", 20),
		"thank you thank you thank you thank you for watching",
		"plain text with no repetition at all",
		"no no no no no NO no",
	}

	for _, text := range inputs {
		once := transcript.CleanRepetitiveText(text, 3)
		twice := transcript.CleanRepetitiveText(once, 3)
		if once != twice {
			t.Errorf("cleaning is not idempotent for %q:\n once:  %q\n twice: %q", text, once, twice)
		}
	}
}

func TestDetectHallucination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{
			name: "empty input",
			text: "",
			want: false,
		},
		{
			name: "short input never flagged",
			text: "ok ok ok ok ok ok ok ok ok",
			want: false,
		},
		{
			name: "normal prose",
			text: "Today we discussed the quarterly roadmap and agreed to ship the beta in March",
			want: false,
		},
		{
			name: "single token repeated twenty times",
			text: strings.TrimSpace(strings.Repeat("fa ", 20)),
			want: true,
		},
		{
			name: "vocabulary collapse",
			text: "yes yes yes no no no yes yes no no yes no",
			want: true,
		},
		{
			name: "repetitive mass dominates",
			text: "la di la di la di la di la di",
			want: true,
		},
		{
			name: "runaway loop amid varied text",
			text: strings.TrimSpace(strings.Repeat("beep ", 9)) +
				" meanwhile the committee reviewed thirteen entirely unrelated budget proposals today",
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := transcript.DetectHallucination(tt.text, transcript.DefaultHallucinationThreshold)
			if got != tt.want {
				t.Errorf("DetectHallucination(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestCleanerClean(t *testing.T) {
	t.Parallel()

	c := transcript.NewCleaner()

	// Detection runs on the original text: after truncation the output no
	// longer looks hallucinated, but the flag must still be set.
	text := "This is a test " + strings.TrimSpace(strings.Repeat("fa ", 20))
	res := c.Clean(text)

	wantPrefix := "This is a test fa fa fa " + transcript.TruncationMarker
	if !strings.HasPrefix(res.Text, wantPrefix) {
		t.Errorf("Clean text = %q, want prefix %q", res.Text, wantPrefix)
	}
	if !res.Hallucinated {
		t.Error("Clean did not flag an obvious repetition loop as hallucinated")
	}

	// The cleaned text itself must no longer trip detection.
	if transcript.DetectHallucination(res.Text, transcript.DefaultHallucinationThreshold) {
		t.Errorf("cleaned text still detected as hallucinated: %q", res.Text)
	}
}

func TestCleanerOptions(t *testing.T) {
	t.Parallel()

	c := transcript.NewCleaner(
		transcript.WithMaxRepetitions(2),
		transcript.WithHallucinationThreshold(0.9),
	)

	res := c.Clean("well well well then")
	want := "well well " + transcript.TruncationMarker + " then"
	if res.Text != want {
		t.Errorf("Clean with cap 2 = %q, want %q", res.Text, want)
	}

	// 0.9 threshold flags almost anything long enough.
	res = c.Clean("one two three four five six seven one two three four five six seven")
	if !res.Hallucinated {
		t.Error("Clean with threshold 0.9 should flag a transcript with ratio 0.5")
	}
}
