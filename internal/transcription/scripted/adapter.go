// Package scripted provides a scripted transcriber for tests and demos. It
// replays a fixed sequence of recognition results without any speech model,
// simulating incremental recognition with accurate processed-range progress.
package scripted

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"podcast-session-core/internal/transcription"
)

// Script is the sequence of results a session replays plus the total audio
// duration it reports.
type Script struct {
	Results       []transcription.Result
	TotalDuration float64
}

// DefaultScript simulates a short two-host podcast exchange.
var DefaultScript = Script{
	Results: []transcription.Result{
		{Text: "Welcome back to the show.", StartOffset: 0, ProcessedSeconds: 2.4},
		{Text: "Today we are talking about tide pools.", StartOffset: 2.4, ProcessedSeconds: 5.9},
		{Text: "Starfish can regrow lost arms.", StartOffset: 5.9, ProcessedSeconds: 9.1},
		{Text: "Thanks for listening.", StartOffset: 9.1, ProcessedSeconds: 12.0},
	},
	TotalDuration: 12.0,
}

// Transcriber implements transcription.Transcriber with scripted behavior.
// The failure-injection fields make pipeline error paths testable; the zero
// value with a Script behaves like a healthy backend supporting any locale.
type Transcriber struct {
	Script      Script
	Unavailable bool

	// SupportedLocales restricts SupportsLocale when non-nil; nil means
	// any non-empty locale is supported.
	SupportedLocales []string

	// Preinstalled marks locales whose assets are already present. A
	// locale outside this set triggers an InstallAssets call.
	Preinstalled []string

	InstallErr error
	OpenErr    error

	// FailAt makes Next return FailErr instead of the result at this
	// index. Negative disables injection.
	FailAt  int
	FailErr error

	// ResultDelay spaces out results to simulate recognition latency.
	ResultDelay time.Duration

	mu        sync.Mutex
	installed []string
}

// New creates a scripted transcriber replaying the default script.
func New() *Transcriber {
	return &Transcriber{Script: DefaultScript, FailAt: -1}
}

// Available reports backend availability.
func (t *Transcriber) Available() bool { return !t.Unavailable }

// SupportsLocale checks the locale against the configured allowlist.
func (t *Transcriber) SupportsLocale(locale string) bool {
	if t.SupportedLocales == nil {
		return locale != ""
	}
	for _, l := range t.SupportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// InstalledLocales lists the preinstalled locales.
func (t *Transcriber) InstalledLocales() []string { return t.Preinstalled }

// AssetsInstalled reports whether the locale's assets are present, counting
// both preinstalled locales and completed InstallAssets calls.
func (t *Transcriber) AssetsInstalled(locale string) bool {
	for _, l := range t.Preinstalled {
		if l == locale {
			return true
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.installed {
		if l == locale {
			return true
		}
	}
	return false
}

// InstallAssets records the install, or fails with the injected error.
func (t *Transcriber) InstallAssets(_ context.Context, locale string) error {
	if t.InstallErr != nil {
		return t.InstallErr
	}
	t.mu.Lock()
	t.installed = append(t.installed, locale)
	t.mu.Unlock()
	return nil
}

// Installs returns the locales installed through InstallAssets.
func (t *Transcriber) Installs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.installed))
	copy(out, t.installed)
	return out
}

// Open starts a replay session over the script. The audio path is not read;
// the script stands in for the audio content.
func (t *Transcriber) Open(_ context.Context, _, _ string) (transcription.RecognitionSession, error) {
	if t.OpenErr != nil {
		return nil, t.OpenErr
	}
	return &session{transcriber: t}, nil
}

type session struct {
	transcriber *Transcriber
	mu          sync.Mutex
	index       int
	closed      bool
}

func (s *session) TotalDuration() float64 {
	return s.transcriber.Script.TotalDuration
}

func (s *session) Next(ctx context.Context) (transcription.Result, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return transcription.Result{}, errors.New("session closed")
	}
	index := s.index
	s.index++
	s.mu.Unlock()

	if delay := s.transcriber.ResultDelay; delay > 0 {
		select {
		case <-ctx.Done():
			return transcription.Result{}, ctx.Err()
		case <-time.After(delay):
		}
	}
	if ctx.Err() != nil {
		return transcription.Result{}, ctx.Err()
	}

	if s.transcriber.FailErr != nil && index == s.transcriber.FailAt {
		return transcription.Result{}, s.transcriber.FailErr
	}
	if index >= len(s.transcriber.Script.Results) {
		return transcription.Result{}, io.EOF
	}
	return s.transcriber.Script.Results[index], nil
}

func (s *session) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
