package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"podcast-session-core/internal/config"
	"podcast-session-core/internal/events"
	"podcast-session-core/internal/models"
	"podcast-session-core/internal/player"
	"podcast-session-core/internal/store"
	"podcast-session-core/internal/transcription"
	"podcast-session-core/internal/transcription/scripted"
)

// fakeMedia records seeks so tests can assert where playback was sent.
type fakeMedia struct {
	mu    sync.Mutex
	seeks []float64
}

func (m *fakeMedia) Play() error  { return nil }
func (m *fakeMedia) Pause() error { return nil }
func (m *fakeMedia) SeekTo(seconds float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeks = append(m.seeks, seconds)
	return nil
}
func (m *fakeMedia) Position() float64         { return 0 }
func (m *fakeMedia) Duration() (float64, bool) { return 3600, true }
func (m *fakeMedia) Close() error              { return nil }

func (m *fakeMedia) lastSeek() (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.seeks) == 0 {
		return 0, false
	}
	return m.seeks[len(m.seeks)-1], true
}

type fakePlayer struct {
	media *fakeMedia
}

func (p *fakePlayer) Load(_ context.Context, _ string) (player.Media, error) {
	return p.media, nil
}

type fakeFetcher struct{}

func (fakeFetcher) Fetch(_ context.Context, _ string) (string, func(), error) {
	return "/tmp/fake-audio", func() {}, nil
}

type fakeSummarizer struct {
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ string, _ []models.TranscriptSegment) (string, error) {
	return f.summary, f.err
}

func testEpisode() models.Episode {
	return models.Episode{
		ID:       "ep-1",
		Title:    "Tide Pools",
		MediaURL: "https://example.com/ep1.mp3",
	}
}

func newTestSession(t *testing.T, transcriber transcription.Transcriber, summarizer Summarizer) (*Session, *fakeMedia, *store.Store) {
	t.Helper()
	media := &fakeMedia{}
	engine := player.New(&fakePlayer{media: media}, nil, config.PlaybackConfig{
		SkipForward:          30 * time.Second,
		SkipBackward:         15 * time.Second,
		PositionInterval:     10 * time.Millisecond,
		DurationPollInterval: 5 * time.Millisecond,
		DurationPollTimeout:  time.Second,
	})
	t.Cleanup(engine.Close)

	pipeline := transcription.New(transcriber, fakeFetcher{}, events.New(nil), config.TranscriptionConfig{
		EnvironmentLocale: "en-US",
		FallbackLocale:    "en-US",
	})
	st := store.New(store.NewMemory())
	return New(engine, pipeline, st, summarizer), media, st
}

func waitDone(t *testing.T, run *transcription.Run) transcription.Snapshot {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish in time")
	}
	return run.Snapshot()
}

func waitForRecord(t *testing.T, st *store.Store, mediaURL string) *store.Record {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		rec, found, err := st.Load(context.Background(), mediaURL)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if found {
			return rec
		}
		select {
		case <-deadline:
			t.Fatal("record never persisted")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSession_TranscribeRequiresEpisode(t *testing.T) {
	s, _, _ := newTestSession(t, scripted.New(), nil)

	if _, err := s.Transcribe(context.Background()); !errors.Is(err, ErrNoEpisode) {
		t.Errorf("expected ErrNoEpisode, got %v", err)
	}
}

func TestSession_CompletedRunAutoPersists(t *testing.T) {
	s, _, st := newTestSession(t, scripted.New(), nil)
	ep := testEpisode()
	s.Play(ep)

	run, err := s.Transcribe(context.Background())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	snap := waitDone(t, run)
	if snap.Status != transcription.StatusDone {
		t.Fatalf("expected Done, got %v (%s)", snap.Status, snap.FailureReason)
	}

	rec := waitForRecord(t, st, ep.MediaURL)
	if rec.Transcript != snap.Transcript {
		t.Errorf("persisted transcript mismatch: %q vs %q", rec.Transcript, snap.Transcript)
	}
	if len(rec.Segments) != len(snap.Segments) {
		t.Errorf("persisted %d segments, want %d", len(rec.Segments), len(snap.Segments))
	}
}

func TestSession_FailedRunNotAutoPersisted(t *testing.T) {
	transcriber := scripted.New()
	transcriber.FailAt = 1
	transcriber.FailErr = errors.New("model crashed")

	s, _, st := newTestSession(t, transcriber, nil)
	ep := testEpisode()
	s.Play(ep)

	run, err := s.Transcribe(context.Background())
	if err != nil {
		t.Fatalf("transcribe: %v", err)
	}
	snap := waitDone(t, run)
	if snap.Status != transcription.StatusFailed {
		t.Fatalf("expected Failed, got %v", snap.Status)
	}

	// Give the persist goroutine a chance to (incorrectly) run.
	time.Sleep(50 * time.Millisecond)
	if _, found, _ := st.Load(context.Background(), ep.MediaURL); found {
		t.Error("failed run must not auto-persist")
	}

	// Explicit save keeps the partial transcript.
	if err := s.SaveRun(context.Background()); err != nil {
		t.Fatalf("save run: %v", err)
	}
	rec := waitForRecord(t, st, ep.MediaURL)
	if rec.Transcript != "Welcome back to the show." {
		t.Errorf("unexpected partial transcript: %q", rec.Transcript)
	}
}

func TestSession_SaveRunWithoutRunFails(t *testing.T) {
	s, _, _ := newTestSession(t, scripted.New(), nil)
	s.Play(testEpisode())

	if err := s.SaveRun(context.Background()); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("expected ErrNoTranscript with no run, got %v", err)
	}
}

func TestSession_SummarizeStoresAndTokenizes(t *testing.T) {
	summary := "Intro at [00:05] and a starfish fact at [01:30]."
	s, _, st := newTestSession(t, scripted.New(), &fakeSummarizer{summary: summary})
	ep := testEpisode()
	s.Play(ep)

	run, _ := s.Transcribe(context.Background())
	waitDone(t, run)

	got, err := s.Summarize(context.Background())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if got != summary {
		t.Errorf("unexpected summary: %q", got)
	}

	deadline := time.After(2 * time.Second)
	for {
		rec := waitForRecord(t, st, ep.MediaURL)
		if rec.Summary == summary {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("summary never persisted, record has %q", rec.Summary)
		case <-time.After(10 * time.Millisecond):
		}
	}

	tokens := s.SummaryTokens()
	var codes []int
	for _, tok := range tokens {
		if tok.IsTimecode {
			codes = append(codes, tok.Seconds)
		}
	}
	if len(codes) != 2 || codes[0] != 5 || codes[1] != 90 {
		t.Errorf("unexpected timecode tokens: %v", codes)
	}
}

func TestSession_SummarizeBeforeTranscriptFails(t *testing.T) {
	s, _, _ := newTestSession(t, scripted.New(), &fakeSummarizer{summary: "x"})
	s.Play(testEpisode())

	if _, err := s.Summarize(context.Background()); !errors.Is(err, ErrNoTranscript) {
		t.Errorf("expected ErrNoTranscript, got %v", err)
	}
}

func TestSession_EmptySummaryRejected(t *testing.T) {
	s, _, _ := newTestSession(t, scripted.New(), &fakeSummarizer{summary: ""})
	s.Play(testEpisode())

	run, _ := s.Transcribe(context.Background())
	waitDone(t, run)

	if _, err := s.Summarize(context.Background()); !errors.Is(err, ErrEmptySummary) {
		t.Errorf("expected ErrEmptySummary, got %v", err)
	}
	if s.Summary() != "" {
		t.Errorf("expected no summary retained, got %q", s.Summary())
	}
}

func TestSession_TapTimecodeSeeks(t *testing.T) {
	summary := "Key moment at [01:30]."
	s, media, _ := newTestSession(t, scripted.New(), &fakeSummarizer{summary: summary})
	s.Play(testEpisode())

	run, _ := s.Transcribe(context.Background())
	waitDone(t, run)
	if _, err := s.Summarize(context.Background()); err != nil {
		t.Fatalf("summarize: %v", err)
	}

	for _, tok := range s.SummaryTokens() {
		s.TapTimecode(tok)
	}

	got, ok := media.lastSeek()
	if !ok || got != 90 {
		t.Errorf("expected seek to 90s from timecode tap, got %v (ok=%v)", got, ok)
	}
}
