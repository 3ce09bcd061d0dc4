package transcription

import "context"

// Result is one incremental recognition result pulled from a session.
type Result struct {
	// Text is the recognized text for this speech-delimited span.
	Text string
	// StartOffset is where the span begins, in seconds from the start of
	// the audio.
	StartOffset float64
	// ProcessedSeconds is how far into the audio recognition has advanced,
	// used to derive fraction-complete.
	ProcessedSeconds float64
}

// RecognitionSession is one open incremental recognition pass over a local
// audio file. Results are pulled, not pushed: Next blocks until the next
// speech-delimited result is available and returns io.EOF once the audio is
// exhausted.
type RecognitionSession interface {
	// TotalDuration returns the audio duration in seconds, computed up
	// front when the session opens. Zero means unknown.
	TotalDuration() float64

	// Next returns the next recognition result, or io.EOF at the end.
	Next(ctx context.Context) (Result, error)

	// Close releases the session's resources.
	Close() error
}

// Transcriber is the incremental speech recognition capability the pipeline
// consumes.
type Transcriber interface {
	// Available reports whether the recognition backend can be used at all.
	Available() bool

	// SupportsLocale reports whether the backend can recognize the given
	// BCP-47 locale.
	SupportsLocale(locale string) bool

	// InstalledLocales lists locales whose recognition assets are already
	// present, in preference order.
	InstalledLocales() []string

	// AssetsInstalled reports whether recognition assets for the locale
	// are present. Cloud-hosted backends always report true.
	AssetsInstalled(locale string) bool

	// InstallAssets fetches recognition assets for the locale.
	InstallAssets(ctx context.Context, locale string) error

	// Open starts an incremental recognition session over a local audio
	// file.
	Open(ctx context.Context, audioPath, locale string) (RecognitionSession, error)
}
