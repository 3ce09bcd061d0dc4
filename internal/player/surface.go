package player

// NowPlaying is the snapshot pushed to an external transport surface
// (lock-screen or remote-control style integration) on every state change.
type NowPlaying struct {
	Title    string
	Position float64
	Duration float64
	// Rate is 1.0 while playing, 0.0 otherwise.
	Rate float64
}

// CommandKind identifies a transport command originating from the surface.
type CommandKind string

const (
	CommandPlay         CommandKind = "play"
	CommandPause        CommandKind = "pause"
	CommandToggle       CommandKind = "toggle"
	CommandSkipForward  CommandKind = "skip_forward"
	CommandSkipBackward CommandKind = "skip_backward"
	CommandSeekTo       CommandKind = "seek_to"
)

// Command is an inbound transport request. Seconds is meaningful only for
// CommandSeekTo.
type Command struct {
	Kind    CommandKind
	Seconds float64
}

// TransportSurface is the external transport-control capability. The engine
// publishes NowPlaying snapshots to it and registers a handler so commands
// coming back from the surface route through the same engine operations,
// keeping both directions consistent.
type TransportSurface interface {
	Publish(NowPlaying)
	SetHandler(func(Command))
}
