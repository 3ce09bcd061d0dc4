// Package session composes the playback engine, the transcription
// pipeline, and the transcript store into the per-episode workflow the
// application drives.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"podcast-session-core/internal/models"
	"podcast-session-core/internal/observability/logging"
	"podcast-session-core/internal/player"
	"podcast-session-core/internal/store"
	"podcast-session-core/internal/timecode"
	"podcast-session-core/internal/transcription"
)

var (
	// ErrNoEpisode is returned when an operation needs an active episode.
	ErrNoEpisode = errors.New("no active episode")

	// ErrNoTranscript is returned when summarization or persistence is
	// requested before any transcript text exists.
	ErrNoTranscript = errors.New("no transcript available")

	// ErrEmptySummary is returned when the summarizer produces no usable text.
	ErrEmptySummary = errors.New("summarizer returned empty summary")
)

// Summarizer condenses a transcript into a short summary. Implementations
// may call out to an external model; the context bounds that call.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, segments []models.TranscriptSegment) (string, error)
}

// Session binds one episode's playback and transcription lifecycles
// together and persists results through the store.
type Session struct {
	engine     *player.Engine
	pipeline   *transcription.Pipeline
	store      *store.Store
	summarizer Summarizer
	log        zerolog.Logger

	mu      sync.Mutex
	episode *models.Episode
	run     *transcription.Run
	summary string
}

// New creates a session. The summarizer may be nil; Summarize then
// returns ErrEmptySummary.
func New(engine *player.Engine, pipeline *transcription.Pipeline, st *store.Store, summarizer Summarizer) *Session {
	return &Session{
		engine:     engine,
		pipeline:   pipeline,
		store:      st,
		summarizer: summarizer,
		log:        logging.WithComponent("session"),
	}
}

// Play selects the episode for this session and starts playback.
func (s *Session) Play(episode models.Episode) {
	s.mu.Lock()
	ep := episode
	s.episode = &ep
	s.mu.Unlock()

	s.engine.Play(episode)
}

// Episode returns the active episode, or nil.
func (s *Session) Episode() *models.Episode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.episode
}

// Transcribe starts a transcription run for the active episode. Any run
// already in flight is superseded. On successful completion the result is
// persisted automatically; failed runs keep their partial output in memory
// and can be saved explicitly with SaveRun.
func (s *Session) Transcribe(ctx context.Context) (*transcription.Run, error) {
	s.mu.Lock()
	episode := s.episode
	s.mu.Unlock()
	if episode == nil || !episode.Playable() {
		return nil, ErrNoEpisode
	}

	run := s.pipeline.Start(ctx, episode.MediaURL)

	s.mu.Lock()
	s.run = run
	s.summary = ""
	s.mu.Unlock()

	go s.persistWhenDone(run)
	return run, nil
}

// Run returns the most recent transcription run, or nil.
func (s *Session) Run() *transcription.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run
}

// persistWhenDone saves the transcript once the run completes. Persistence
// is best effort; a store failure is logged, not surfaced, since the run
// itself succeeded.
func (s *Session) persistWhenDone(run *transcription.Run) {
	<-run.Done()
	snap := run.Snapshot()
	if snap.Status != transcription.StatusDone {
		return
	}
	if err := s.store.Save(context.Background(), snap.MediaURL, snap.Transcript, "", snap.Segments); err != nil {
		s.log.Error().Err(err).Str("mediaUrl", snap.MediaURL).Msg("Failed to persist completed transcript")
	}
}

// SaveRun persists the most recent run's output regardless of how it
// ended. This is how a failed run's partial transcript is kept.
func (s *Session) SaveRun(ctx context.Context) error {
	s.mu.Lock()
	run := s.run
	summary := s.summary
	s.mu.Unlock()
	if run == nil {
		return ErrNoTranscript
	}

	snap := run.Snapshot()
	if snap.Transcript == "" {
		return ErrNoTranscript
	}
	return s.store.Save(ctx, snap.MediaURL, snap.Transcript, summary, snap.Segments)
}

// Summarize produces and stores a summary of the completed transcript.
func (s *Session) Summarize(ctx context.Context) (string, error) {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run == nil {
		return "", ErrNoTranscript
	}
	snap := run.Snapshot()
	if snap.Status != transcription.StatusDone || snap.Transcript == "" {
		return "", ErrNoTranscript
	}
	if s.summarizer == nil {
		return "", ErrEmptySummary
	}

	summary, err := s.summarizer.Summarize(ctx, snap.Transcript, snap.Segments)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return "", ErrEmptySummary
	}

	s.mu.Lock()
	s.summary = summary
	s.mu.Unlock()

	// Best effort: the summary is usable even if persistence fails.
	if err := s.store.Save(ctx, snap.MediaURL, snap.Transcript, summary, snap.Segments); err != nil {
		s.log.Error().Err(err).Str("mediaUrl", snap.MediaURL).Msg("Failed to persist summary")
	}
	return summary, nil
}

// Summary returns the last produced summary, or the empty string.
func (s *Session) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// SummaryTokens splits the summary into literal and timecode tokens for
// rendering. Tapping a timecode token goes through TapTimecode.
func (s *Session) SummaryTokens() []timecode.Token {
	return timecode.Parse(s.Summary())
}

// TapTimecode handles a tapped summary token. Timecode tokens seek playback
// to the referenced position; literal tokens do nothing.
func (s *Session) TapTimecode(tok timecode.Token) {
	if !tok.IsTimecode {
		return
	}
	s.engine.SeekToSeconds(float64(tok.Seconds))
}

// Close tears down playback. The transcription pipeline owns its run
// lifecycle and is shut down by the pipeline owner.
func (s *Session) Close() {
	s.engine.Close()
}
