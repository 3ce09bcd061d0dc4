// Package transcription turns a remote audio locator into a progressively
// available, time-aligned transcript via incremental speech recognition.
package transcription

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"podcast-session-core/internal/config"
	"podcast-session-core/internal/events"
	"podcast-session-core/internal/fetch"
	"podcast-session-core/internal/models"
	"podcast-session-core/internal/observability/logging"
	"podcast-session-core/internal/observability/metrics"
)

// Pipeline orchestrates download, locale resolution, model asset install,
// and incremental recognition into observable runs. One run is active at a
// time; starting a new run cancels the previous one before anything else
// happens.
type Pipeline struct {
	transcriber Transcriber
	fetcher     fetch.Fetcher
	publisher   *events.Publisher
	cfg         config.TranscriptionConfig
	metrics     *metrics.Metrics
	log         zerolog.Logger

	mu      sync.Mutex
	current *Run
}

// New creates a pipeline. The publisher may be a disabled (log-only) one.
func New(transcriber Transcriber, fetcher fetch.Fetcher, publisher *events.Publisher, cfg config.TranscriptionConfig) *Pipeline {
	return &Pipeline{
		transcriber: transcriber,
		fetcher:     fetcher,
		publisher:   publisher,
		cfg:         cfg,
		metrics:     metrics.DefaultMetrics,
		log:         logging.WithComponent("transcription"),
	}
}

// Start begins transcribing mediaURL and returns the new run immediately.
// Any previous run is canceled first so its callbacks cannot outlive it.
func (p *Pipeline) Start(ctx context.Context, mediaURL string) *Run {
	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(mediaURL, cancel)

	p.mu.Lock()
	if p.current != nil {
		p.current.Cancel()
	}
	p.current = run
	p.mu.Unlock()

	p.metrics.RunsStarted.Inc()
	p.metrics.RunsActive.Inc()
	p.log.Info().Str("runId", run.ID()).Str("mediaUrl", mediaURL).Msg("Transcription run started")

	go p.execute(runCtx, run)
	return run
}

// Current returns the most recently started run, or nil.
func (p *Pipeline) Current() *Run {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *Pipeline) execute(ctx context.Context, run *Run) {
	start := time.Now()
	defer func() {
		p.metrics.RunsActive.Dec()
		p.metrics.RunDuration.Observe(time.Since(start).Seconds())
	}()

	log := logging.WithRun(run.ID(), run.MediaURL())

	run.setStatus(StatusDownloading)
	path, cleanup, err := p.fetcher.Fetch(ctx, run.MediaURL())
	if err != nil {
		p.failRun(ctx, run, ReasonDownloadFailed, err)
		return
	}
	defer cleanup()

	if !p.transcriber.Available() {
		p.failRun(ctx, run, ReasonRecognitionFailed, errors.New("recognition backend unavailable"))
		return
	}

	locale, err := p.resolveLocale()
	if err != nil {
		p.failRun(ctx, run, ReasonLocaleUnsupported, nil)
		return
	}
	log.Debug().Str("locale", locale).Msg("Locale resolved")

	if !p.transcriber.AssetsInstalled(locale) {
		run.setStatus(StatusInstallingModel)
		if err := p.transcriber.InstallAssets(ctx, locale); err != nil {
			p.failRun(ctx, run, ReasonAssetInstallFailed, err)
			return
		}
	}

	run.setStatus(StatusTranscribing)
	session, err := p.transcriber.Open(ctx, path, locale)
	if err != nil {
		p.failRun(ctx, run, ReasonRecognitionFailed, err)
		return
	}
	defer session.Close()

	total := session.TotalDuration()
	for {
		result, err := session.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			p.failRun(ctx, run, ReasonRecognitionFailed, err)
			return
		}

		seg := run.appendSegment(result.Text, result.StartOffset)
		if total > 0 {
			run.setFraction(result.ProcessedSeconds / total)
		}
		p.metrics.SegmentsEmitted.Inc()
		p.publishSegment(ctx, run, seg)
	}

	run.finish()
	p.metrics.RunsDone.Inc()
	log.Info().Int("segments", len(run.Snapshot().Segments)).Msg("Transcription run done")
	p.publishDone(context.Background(), run, total)
}

// failRun records the failure, preferring a canceled reason when the run's
// context was canceled out from under it.
func (p *Pipeline) failRun(ctx context.Context, run *Run, reason string, err error) {
	if ctx.Err() != nil {
		reason = ReasonCanceled
		err = nil
	}
	run.fail(reason, err)
	p.metrics.RecordRunFailed(reason)

	snap := run.Snapshot()
	log := logging.WithRun(run.ID(), run.MediaURL())
	log.Warn().
		Str("status", snap.StatusText).
		Str("reason", snap.FailureReason).
		Int("partialSegments", len(snap.Segments)).
		Msg("Transcription run failed")
}

// resolveLocale tries the environment locale, then the configured fallback,
// then any locale with installed assets.
func (p *Pipeline) resolveLocale() (string, error) {
	candidates := []string{p.cfg.EnvironmentLocale, p.cfg.FallbackLocale}
	candidates = append(candidates, p.transcriber.InstalledLocales()...)
	for _, locale := range candidates {
		if locale != "" && p.transcriber.SupportsLocale(locale) {
			return locale, nil
		}
	}
	return "", errors.New(ReasonLocaleUnsupported)
}

// publishSegment emits a segment event, best-effort.
func (p *Pipeline) publishSegment(ctx context.Context, run *Run, seg models.TranscriptSegment) {
	snap := run.Snapshot()
	ev := models.SegmentEvent{
		EventType:   "episode.transcript.segment",
		RunID:       run.ID(),
		MediaURL:    run.MediaURL(),
		Timestamp:   time.Now().UnixMilli(),
		Ordinal:     seg.Ordinal,
		Text:        seg.Text,
		StartOffset: seg.StartOffset,
		Fraction:    snap.Fraction,
	}
	if err := p.publisher.PublishSegment(ctx, run.MediaURL(), ev); err != nil {
		p.log.Warn().Err(err).Int("ordinal", seg.Ordinal).Msg("Failed to publish segment event")
	}
}

// publishDone emits the completed-transcript event, best-effort.
func (p *Pipeline) publishDone(ctx context.Context, run *Run, duration float64) {
	snap := run.Snapshot()
	ev := models.TranscriptDoneEvent{
		EventType:    "episode.transcript.done",
		RunID:        run.ID(),
		MediaURL:     run.MediaURL(),
		Timestamp:    time.Now().UnixMilli(),
		Transcript:   snap.Transcript,
		SegmentCount: len(snap.Segments),
		Duration:     duration,
	}
	if err := p.publisher.PublishDone(ctx, run.MediaURL(), ev); err != nil {
		p.log.Warn().Err(err).Msg("Failed to publish done event")
	}
}
