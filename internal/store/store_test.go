package store

import (
	"context"
	"testing"
	"time"

	"podcast-session-core/internal/models"
)

func TestSaveThenLoad(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()

	segments := []models.TranscriptSegment{
		{Text: "hello", StartOffset: 0, Ordinal: 0},
		{Text: "world", StartOffset: 2.5, Ordinal: 1},
	}

	if err := s.Save(ctx, "https://example.com/ep1.mp3", "hello world", "a summary", segments); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	rec, found, err := s.Load(ctx, "https://example.com/ep1.mp3")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !found {
		t.Fatal("expected record to be found")
	}
	if rec.Transcript != "hello world" {
		t.Errorf("expected transcript 'hello world', got %q", rec.Transcript)
	}
	if rec.Summary != "a summary" {
		t.Errorf("expected summary 'a summary', got %q", rec.Summary)
	}
	if len(rec.Segments) != 2 || rec.Segments[1].Ordinal != 1 {
		t.Errorf("expected 2 segments back, got %+v", rec.Segments)
	}
	if rec.SavedAt.IsZero() {
		t.Error("expected SavedAt to be set")
	}
}

func TestLoad_MissingKey(t *testing.T) {
	s := New(NewMemory())

	rec, found, err := s.Load(context.Background(), "https://example.com/none.mp3")
	if err != nil {
		t.Fatalf("missing key must not error: %v", err)
	}
	if found || rec != nil {
		t.Errorf("expected not found, got %+v", rec)
	}
}

func TestSave_UpsertNeverDuplicates(t *testing.T) {
	backend := NewMemory()
	s := New(backend)
	ctx := context.Background()
	url := "https://example.com/ep2.mp3"

	if err := s.Save(ctx, url, "first", "", nil); err != nil {
		t.Fatalf("first save failed: %v", err)
	}
	first, _, _ := s.Load(ctx, url)

	if err := s.Save(ctx, url, "second", "", nil); err != nil {
		t.Fatalf("second save failed: %v", err)
	}
	second, _, _ := s.Load(ctx, url)

	if backend.Len() != 1 {
		t.Errorf("expected one record after two saves, got %d", backend.Len())
	}
	if second.Transcript != "second" {
		t.Errorf("expected transcript overwritten, got %q", second.Transcript)
	}
	if second.SavedAt.Before(first.SavedAt) {
		t.Errorf("expected second SavedAt >= first, got %v < %v", second.SavedAt, first.SavedAt)
	}
}

func TestSave_EmptySummaryPreservesPrior(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()
	url := "https://example.com/ep3.mp3"

	segments := []models.TranscriptSegment{{Text: "T1", StartOffset: 0, Ordinal: 0}}
	if err := s.Save(ctx, url, "T1", "keep me", segments); err != nil {
		t.Fatalf("first save failed: %v", err)
	}

	// Empty summary and nil segments must not erase prior values.
	if err := s.Save(ctx, url, "T2", "", nil); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	rec, _, err := s.Load(ctx, url)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if rec.Transcript != "T2" {
		t.Errorf("expected transcript 'T2', got %q", rec.Transcript)
	}
	if rec.Summary != "keep me" {
		t.Errorf("expected prior summary preserved, got %q", rec.Summary)
	}
	if len(rec.Segments) != 1 || rec.Segments[0].Text != "T1" {
		t.Errorf("expected prior segments preserved, got %+v", rec.Segments)
	}
}

func TestSave_IdempotentRepeatedInput(t *testing.T) {
	s := New(NewMemory())
	ctx := context.Background()
	url := "https://example.com/ep4.mp3"

	stamps := []time.Time{
		time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 1, 10, 5, 0, 0, time.UTC),
	}
	i := 0
	s.now = func() time.Time {
		ts := stamps[i]
		i++
		return ts
	}

	for n := 0; n < 2; n++ {
		if err := s.Save(ctx, url, "same", "same summary", nil); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	rec, _, _ := s.Load(ctx, url)
	if rec.Transcript != "same" || rec.Summary != "same summary" {
		t.Errorf("unexpected record state: %+v", rec)
	}
	if !rec.SavedAt.Equal(stamps[1]) {
		t.Errorf("expected SavedAt refreshed to %v, got %v", stamps[1], rec.SavedAt)
	}
}
