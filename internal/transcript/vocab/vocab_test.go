package vocab_test

import (
	"testing"

	"github.com/notewisp/notewisp/internal/transcript/vocab"
)

func TestCorrectSingleWord(t *testing.T) {
	t.Parallel()

	c := vocab.New()
	got, applied := c.Correct("We deployed graphana yesterday", []string{"Grafana"})

	want := "We deployed Grafana yesterday"
	if got != want {
		t.Errorf("Correct = %q, want %q", got, want)
	}
	if len(applied) != 1 {
		t.Fatalf("got %d corrections, want 1", len(applied))
	}
	if applied[0].Original != "graphana" || applied[0].Term != "Grafana" {
		t.Errorf("correction = %+v, want graphana -> Grafana", applied[0])
	}
	if applied[0].Score <= 0 {
		t.Errorf("correction score = %v, want > 0", applied[0].Score)
	}
}

func TestCorrectSplitWord(t *testing.T) {
	t.Parallel()

	// The speech model split one word into two; the two-token window must
	// collapse back onto the term.
	c := vocab.New()
	got, applied := c.Correct("results are stored in post gress for later", []string{"Postgres"})

	want := "results are stored in Postgres for later"
	if got != want {
		t.Errorf("Correct = %q, want %q", got, want)
	}
	if len(applied) != 1 || applied[0].Original != "post gress" {
		t.Errorf("corrections = %+v, want one for %q", applied, "post gress")
	}
}

func TestCorrectPreservesTrailingPunctuation(t *testing.T) {
	t.Parallel()

	c := vocab.New()
	got, _ := c.Correct("Everything runs on coobernetes.", []string{"Kubernetes"})

	want := "Everything runs on Kubernetes."
	if got != want {
		t.Errorf("Correct = %q, want %q", got, want)
	}
}

func TestCorrectLeavesOrdinaryTextAlone(t *testing.T) {
	t.Parallel()

	c := vocab.New()
	text := "We met at the cafe and talked about the weather"
	got, applied := c.Correct(text, []string{"Grafana", "Kubernetes"})

	if got != text {
		t.Errorf("Correct changed unrelated text:\n got:  %q\n want: %q", got, text)
	}
	if applied != nil {
		t.Errorf("corrections = %+v, want none", applied)
	}
}

func TestCorrectExactTermUntouched(t *testing.T) {
	t.Parallel()

	c := vocab.New()
	text := "Grafana dashboards load slowly"
	got, applied := c.Correct(text, []string{"Grafana"})

	if got != text {
		t.Errorf("Correct = %q, want unchanged %q", got, text)
	}
	if len(applied) != 0 {
		t.Errorf("corrections = %+v, want none for an exact term", applied)
	}
}

func TestCorrectEdgeInputs(t *testing.T) {
	t.Parallel()

	c := vocab.New()

	if got, applied := c.Correct("", []string{"Grafana"}); got != "" || applied != nil {
		t.Errorf("empty text: got %q, %v", got, applied)
	}
	if got, applied := c.Correct("some text", nil); got != "some text" || applied != nil {
		t.Errorf("no terms: got %q, %v", got, applied)
	}
	if got, _ := c.Correct("some text", []string{"", "   "}); got != "some text" {
		t.Errorf("blank terms: got %q", got)
	}
}
