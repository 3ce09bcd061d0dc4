package player

import "context"

// MediaPlayer is the playable-media capability the engine consumes. The
// engine never decodes audio itself; it drives whatever Media the player
// hands back.
type MediaPlayer interface {
	// Load prepares media for the given locator. The returned Media may
	// not know its duration yet; the engine polls Duration until ready.
	Load(ctx context.Context, url string) (Media, error)
}

// Media is one loaded media session.
type Media interface {
	Play() error
	Pause() error

	// SeekTo requests playback move to an absolute position in seconds.
	// The media layer clamps the target into its valid range; position
	// updates arrive asynchronously through Position.
	SeekTo(seconds float64) error

	// Position returns the current playback position in seconds.
	Position() float64

	// Duration returns the media duration in seconds and whether it is
	// known yet. Streamed media typically resolves duration after load.
	Duration() (float64, bool)

	// Close tears the media session down. Safe to call more than once.
	Close() error
}
