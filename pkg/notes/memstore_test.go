package notes_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/notewisp/notewisp/pkg/notes"
)

func TestMemStoreSaveAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := notes.NewMemStore()

	note := notes.Note{
		ID:            "n1",
		Title:         "Standup",
		Transcription: "We talked about the release",
		Tags:          []string{"standup"},
		CreatedAt:     time.Now(),
	}
	if err := s.Save(ctx, note, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "n1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Standup" || got.Transcription != note.Transcription {
		t.Errorf("Get = %+v, want saved note", got)
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, notes.ErrNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
	}
}

func TestMemStoreListNewestFirst(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := notes.NewMemStore()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.Save(ctx, notes.Note{ID: id}, nil); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	got, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c" || got[1].ID != "b" {
		t.Errorf("List = %v, want [c b]", got)
	}
}

func TestMemStoreSemanticSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := notes.NewMemStore()

	// Two orthogonal vectors and one aligned with the query.
	if err := s.Save(ctx, notes.Note{ID: "x"}, []float32{1, 0, 0}); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, notes.Note{ID: "y"}, []float32{0, 1, 0}); err != nil {
		t.Fatal(err)
	}
	// Saved without an embedding: must not appear in vector search.
	if err := s.Save(ctx, notes.Note{ID: "z"}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.Search(ctx, []float32{1, 0, 0}, "", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Search returned %d results, want 2", len(got))
	}
	if got[0].Note.ID != "x" {
		t.Errorf("closest = %q, want x", got[0].Note.ID)
	}
	if got[0].Distance >= got[1].Distance {
		t.Errorf("distances not ascending: %v then %v", got[0].Distance, got[1].Distance)
	}
}

func TestMemStoreSubstringSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := notes.NewMemStore()

	if err := s.Save(ctx, notes.Note{ID: "a", Transcription: "Kafka migration plan"}, nil); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, notes.Note{ID: "b", Transcription: "Grocery list"}, nil); err != nil {
		t.Fatal(err)
	}

	got, err := s.Search(ctx, nil, "kafka", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 1 || got[0].Note.ID != "a" {
		t.Errorf("Search = %v, want only note a", got)
	}

	got, err = s.Search(ctx, nil, "   ", 10)
	if err != nil {
		t.Fatalf("Search blank: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("blank query returned %d results, want 0", len(got))
	}
}

func TestMemStoreAssignsID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := notes.NewMemStore()

	if err := s.Save(ctx, notes.Note{Title: "untitled"}, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	list, err := s.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID == "" {
		t.Errorf("saved note has no assigned ID: %+v", list)
	}
}
