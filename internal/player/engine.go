// Package player owns transport state for the active episode: what is
// playing, where, and for how long. It is the single writer of that state;
// everything else reads snapshots or invokes operations.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"podcast-session-core/internal/config"
	"podcast-session-core/internal/models"
	"podcast-session-core/internal/observability/logging"
	"podcast-session-core/internal/observability/metrics"
)

// Phase is the engine's transport mode.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhasePlaying
	PhasePaused
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "Idle"
	case PhaseLoading:
		return "Loading"
	case PhasePlaying:
		return "Playing"
	case PhasePaused:
		return "Paused"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Snapshot is a read-only copy of the engine's transport state.
type Snapshot struct {
	Episode  *models.Episode
	Phase    Phase
	Position float64
	// Duration is 0 until the media reports it (0 means unknown).
	Duration float64
}

// Progress returns position/duration clamped to [0,1]. Unknown duration
// yields 0 regardless of position.
func (s Snapshot) Progress() float64 {
	if s.Duration <= 0 {
		return 0
	}
	p := s.Position / s.Duration
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// Engine drives a MediaPlayer and keeps the transport surface in sync.
// Replacing the media session always tears down the previous session's
// observers first, so a stale ticker can never mutate superseded state.
type Engine struct {
	player  MediaPlayer
	surface TransportSurface
	cfg     config.PlaybackConfig
	metrics *metrics.Metrics
	log     zerolog.Logger

	mu       sync.Mutex
	episode  *models.Episode
	media    Media
	phase    Phase
	position float64
	duration float64
	gen      int
	cancel   context.CancelFunc
	subs     []func(Snapshot)
}

// New creates an engine. The surface may be nil when no external transport
// integration exists; commands from a non-nil surface are routed through
// the engine's own operations.
func New(mediaPlayer MediaPlayer, surface TransportSurface, cfg config.PlaybackConfig) *Engine {
	e := &Engine{
		player:  mediaPlayer,
		surface: surface,
		cfg:     cfg,
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("player"),
	}
	if surface != nil {
		surface.SetHandler(e.HandleCommand)
	}
	return e
}

// Snapshot returns a copy of the current transport state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() Snapshot {
	return Snapshot{
		Episode:  e.episode,
		Phase:    e.phase,
		Position: e.position,
		Duration: e.duration,
	}
}

// Progress returns the current playback progress in [0,1].
func (e *Engine) Progress() float64 {
	return e.Snapshot().Progress()
}

// Subscribe registers a callback invoked with a fresh snapshot after every
// state change. Callbacks must not block.
func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.mu.Lock()
	e.subs = append(e.subs, fn)
	e.mu.Unlock()
}

// Play starts playback of the episode. Replaying the episode that is
// already loaded resumes in place. An episode without a media locator is a
// silent no-op: a recoverable condition, not an error.
func (e *Engine) Play(episode models.Episode) {
	if !episode.Playable() {
		e.log.Debug().Str("episodeId", episode.ID).Msg("Episode has no media locator, ignoring play")
		return
	}

	e.mu.Lock()
	if e.episode != nil && e.episode.ID == episode.ID && e.media != nil {
		media := e.media
		e.phase = PhasePlaying
		e.mu.Unlock()
		if err := media.Play(); err != nil {
			e.log.Warn().Err(err).Msg("Resume failed")
		}
		e.publish()
		return
	}

	e.teardownLocked()
	ep := episode
	e.episode = &ep
	e.phase = PhaseLoading
	e.position = 0
	e.duration = 0
	e.gen++
	gen := e.gen
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.mu.Unlock()
	e.publish()
	e.metrics.PlaybackLoads.Inc()

	media, err := e.player.Load(ctx, episode.MediaURL)
	if err != nil {
		e.log.Warn().Err(err).Str("mediaUrl", episode.MediaURL).Msg("Media load failed")
		e.mu.Lock()
		if e.gen == gen {
			e.phase = PhaseIdle
		}
		e.mu.Unlock()
		e.publish()
		return
	}

	e.mu.Lock()
	if e.gen != gen {
		// A newer Play superseded this load.
		e.mu.Unlock()
		media.Close()
		return
	}
	e.media = media
	e.phase = PhasePlaying
	e.mu.Unlock()

	if err := media.Play(); err != nil {
		e.log.Warn().Err(err).Msg("Play failed")
	}
	go e.observePosition(ctx, gen, media)
	go e.resolveDuration(ctx, gen, media)
	e.publish()
}

// Pause halts playback. No-op unless currently playing.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.media == nil || e.phase != PhasePlaying {
		e.mu.Unlock()
		return
	}
	media := e.media
	e.phase = PhasePaused
	e.mu.Unlock()

	if err := media.Pause(); err != nil {
		e.log.Warn().Err(err).Msg("Pause failed")
	}
	e.publish()
}

// Resume continues playback. No-op unless currently paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	if e.media == nil || e.phase != PhasePaused {
		e.mu.Unlock()
		return
	}
	media := e.media
	e.phase = PhasePlaying
	e.mu.Unlock()

	if err := media.Play(); err != nil {
		e.log.Warn().Err(err).Msg("Resume failed")
	}
	e.publish()
}

// TogglePlayPause flips between Playing and Paused. No-op otherwise.
func (e *Engine) TogglePlayPause() {
	switch e.Snapshot().Phase {
	case PhasePlaying:
		e.Pause()
	case PhasePaused:
		e.Resume()
	}
}

// Seek requests playback move to the given fraction of the duration.
// No-op while the duration is unknown. The position updates asynchronously
// through the periodic observer, not here.
func (e *Engine) Seek(fraction float64) {
	e.mu.Lock()
	if e.media == nil || e.duration <= 0 {
		e.mu.Unlock()
		return
	}
	if fraction < 0 {
		fraction = 0
	}
	if fraction > 1 {
		fraction = 1
	}
	media := e.media
	target := fraction * e.duration
	e.mu.Unlock()

	e.metrics.PlaybackSeeks.Inc()
	if err := media.SeekTo(target); err != nil {
		e.log.Warn().Err(err).Float64("target", target).Msg("Seek failed")
	}
}

// SeekToSeconds requests playback move to an absolute position. The target
// is clamped into [0, duration] when the duration is known.
func (e *Engine) SeekToSeconds(seconds float64) {
	e.mu.Lock()
	if e.media == nil {
		e.mu.Unlock()
		return
	}
	if seconds < 0 {
		seconds = 0
	}
	if e.duration > 0 && seconds > e.duration {
		seconds = e.duration
	}
	media := e.media
	e.mu.Unlock()

	e.metrics.PlaybackSeeks.Inc()
	if err := media.SeekTo(seconds); err != nil {
		e.log.Warn().Err(err).Float64("target", seconds).Msg("Seek failed")
	}
}

// SkipForward seeks ahead by the configured step.
func (e *Engine) SkipForward() {
	e.skipBy(e.cfg.SkipForward.Seconds())
}

// SkipBackward seeks back by the configured step.
func (e *Engine) SkipBackward() {
	e.skipBy(-e.cfg.SkipBackward.Seconds())
}

func (e *Engine) skipBy(delta float64) {
	e.mu.Lock()
	if e.media == nil {
		e.mu.Unlock()
		return
	}
	target := e.position + delta
	e.mu.Unlock()
	e.SeekToSeconds(target)
}

// HandleCommand routes a transport-surface command through the same
// operations the application uses, so both control directions agree.
func (e *Engine) HandleCommand(cmd Command) {
	e.metrics.SurfaceCommands.WithLabelValues(string(cmd.Kind)).Inc()
	switch cmd.Kind {
	case CommandPlay:
		e.Resume()
	case CommandPause:
		e.Pause()
	case CommandToggle:
		e.TogglePlayPause()
	case CommandSkipForward:
		e.SkipForward()
	case CommandSkipBackward:
		e.SkipBackward()
	case CommandSeekTo:
		e.SeekToSeconds(cmd.Seconds)
	default:
		e.log.Warn().Str("kind", string(cmd.Kind)).Msg("Unknown transport command")
	}
}

// Close tears down the media session and observers and returns to Idle.
func (e *Engine) Close() {
	e.mu.Lock()
	e.teardownLocked()
	e.episode = nil
	e.phase = PhaseIdle
	e.position = 0
	e.duration = 0
	e.mu.Unlock()
	e.publish()
}

// teardownLocked cancels the observers and closes the current media
// session. Must run before a new session is established so no stale
// callback can touch the replacement's state.
func (e *Engine) teardownLocked() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	if e.media != nil {
		e.media.Close()
		e.media = nil
	}
}

// observePosition reads the media position on a fixed cadence while
// playing. It stops as soon as its generation is superseded.
func (e *Engine) observePosition(ctx context.Context, gen int, media Media) {
	ticker := time.NewTicker(e.cfg.PositionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pos := media.Position()
		e.mu.Lock()
		if e.gen != gen {
			e.mu.Unlock()
			return
		}
		if e.phase != PhasePlaying {
			e.mu.Unlock()
			continue
		}
		if pos < 0 {
			pos = 0
		}
		if e.duration > 0 && pos > e.duration {
			pos = e.duration
		}
		e.position = pos
		e.mu.Unlock()
		e.publish()
	}
}

// resolveDuration polls until the media reports a duration, then fixes it
// once. Polling is bounded: past the configured timeout the duration stays
// unknown (0) rather than spinning forever.
func (e *Engine) resolveDuration(ctx context.Context, gen int, media Media) {
	deadline := time.Now().Add(e.cfg.DurationPollTimeout)
	ticker := time.NewTicker(e.cfg.DurationPollInterval)
	defer ticker.Stop()

	for {
		if d, ready := media.Duration(); ready && d > 0 {
			e.mu.Lock()
			if e.gen != gen {
				e.mu.Unlock()
				return
			}
			e.duration = d
			if e.position > d {
				e.position = d
			}
			e.mu.Unlock()
			e.metrics.DurationResolved.Inc()
			e.publish()
			return
		}

		if time.Now().After(deadline) {
			e.metrics.DurationTimeouts.Inc()
			e.log.Warn().Msg("Duration did not resolve in time, treating as unknown")
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// publish notifies subscribers and pushes a NowPlaying snapshot to the
// transport surface.
func (e *Engine) publish() {
	e.mu.Lock()
	snap := e.snapshotLocked()
	subs := make([]func(Snapshot), len(e.subs))
	copy(subs, e.subs)
	e.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}

	if e.surface == nil {
		return
	}
	now := NowPlaying{
		Position: snap.Position,
		Duration: snap.Duration,
	}
	if snap.Episode != nil {
		now.Title = snap.Episode.Title
	}
	if snap.Phase == PhasePlaying {
		now.Rate = 1.0
	}
	e.surface.Publish(now)
}
