package transcription

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"podcast-session-core/internal/models"
)

// Snapshot is a read-only copy of a run's observable state.
type Snapshot struct {
	RunID         string
	MediaURL      string
	Status        Status
	StatusText    string
	Fraction      float64
	Transcript    string
	Segments      []models.TranscriptSegment
	FailureReason string
}

// Run is one invocation of the transcription pipeline. The pipeline is the
// run's only writer; everything else observes snapshots. Fraction is
// monotonically non-decreasing and status transitions are strictly forward.
type Run struct {
	id       string
	mediaURL string
	cancel   context.CancelFunc

	mu            sync.RWMutex
	status        Status
	fraction      float64
	parts         []string
	segments      []models.TranscriptSegment
	failureReason string
	subs          []func(Snapshot)
	done          chan struct{}
}

func newRun(mediaURL string, cancel context.CancelFunc) *Run {
	return &Run{
		id:       uuid.NewString(),
		mediaURL: mediaURL,
		cancel:   cancel,
		status:   StatusPreparing,
		done:     make(chan struct{}),
	}
}

// ID returns the run's unique identifier.
func (r *Run) ID() string { return r.id }

// MediaURL returns the media locator this run transcribes.
func (r *Run) MediaURL() string { return r.mediaURL }

// Done returns a channel closed when the run reaches a terminal status.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel stops the run. The run transitions to Failed with a canceled
// reason unless it already finished; partial output is retained.
func (r *Run) Cancel() { r.cancel() }

// Snapshot returns a copy of the run's current observable state.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Run) snapshotLocked() Snapshot {
	segments := make([]models.TranscriptSegment, len(r.segments))
	copy(segments, r.segments)
	return Snapshot{
		RunID:         r.id,
		MediaURL:      r.mediaURL,
		Status:        r.status,
		StatusText:    r.status.String(),
		Fraction:      r.fraction,
		Transcript:    strings.Join(r.parts, " "),
		Segments:      segments,
		FailureReason: r.failureReason,
	}
}

// Subscribe registers a callback invoked with a fresh snapshot after every
// state change. Callbacks run on the pipeline's goroutine and must not
// block.
func (r *Run) Subscribe(fn func(Snapshot)) {
	r.mu.Lock()
	r.subs = append(r.subs, fn)
	r.mu.Unlock()
}

func (r *Run) notify() {
	r.mu.RLock()
	subs := make([]func(Snapshot), len(r.subs))
	copy(subs, r.subs)
	snap := r.snapshotLocked()
	r.mu.RUnlock()
	for _, fn := range subs {
		fn(snap)
	}
}

// setStatus advances the run's status. Backward or post-terminal
// transitions are ignored.
func (r *Run) setStatus(s Status) {
	r.mu.Lock()
	if r.status.IsTerminal() || s <= r.status {
		r.mu.Unlock()
		return
	}
	r.status = s
	r.mu.Unlock()
	r.notify()
}

// setFraction raises fraction-complete, clamped to [0,1]. A value below the
// current fraction is ignored, keeping progress monotonic.
func (r *Run) setFraction(f float64) {
	if f > 1 {
		f = 1
	}
	r.mu.Lock()
	if f <= r.fraction {
		r.mu.Unlock()
		return
	}
	r.fraction = f
	r.mu.Unlock()
	r.notify()
}

// appendSegment adds one recognition result to the accumulated transcript
// and segment sequence, returning the stored segment. Ordinals are assigned
// in emission order; a start offset earlier than the previous segment's is
// raised to keep offsets non-decreasing.
func (r *Run) appendSegment(text string, startOffset float64) models.TranscriptSegment {
	r.mu.Lock()
	if startOffset < 0 {
		startOffset = 0
	}
	if n := len(r.segments); n > 0 && startOffset < r.segments[n-1].StartOffset {
		startOffset = r.segments[n-1].StartOffset
	}
	seg := models.TranscriptSegment{
		Text:        text,
		StartOffset: startOffset,
		Ordinal:     len(r.segments),
	}
	r.segments = append(r.segments, seg)
	r.parts = append(r.parts, text)
	r.mu.Unlock()
	r.notify()
	return seg
}

// finish marks the run Done with fraction exactly 1.0.
func (r *Run) finish() {
	r.mu.Lock()
	if r.status.IsTerminal() {
		r.mu.Unlock()
		return
	}
	r.fraction = 1
	r.status = StatusDone
	r.mu.Unlock()
	r.notify()
	close(r.done)
}

// fail marks the run Failed, keeping whatever partial transcript and
// segments accumulated so far.
func (r *Run) fail(reason string, err error) {
	r.mu.Lock()
	if r.status.IsTerminal() {
		r.mu.Unlock()
		return
	}
	r.status = StatusFailed
	r.failureReason = reason
	if err != nil {
		r.failureReason = reason + ": " + err.Error()
	}
	r.mu.Unlock()
	r.notify()
	close(r.done)
}
