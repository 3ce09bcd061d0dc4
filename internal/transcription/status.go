package transcription

import "fmt"

// Status is the lifecycle state of a transcription run.
//
// Transitions are strictly forward:
//
//	Preparing → Downloading → InstallingModel → Transcribing → Done
//	    │            │              │                │
//	    └────────────┴──────────────┴────────────────┴──→ Failed
//
// InstallingModel is skipped when the recognition assets for the resolved
// locale are already present.
type Status int

const (
	// StatusPreparing - run created, nothing started yet.
	StatusPreparing Status = iota
	// StatusDownloading - fetching audio to ephemeral local storage.
	StatusDownloading
	// StatusInstallingModel - installing recognition assets for the locale.
	StatusInstallingModel
	// StatusTranscribing - incremental recognition in progress.
	StatusTranscribing
	// StatusDone - transcript complete. Terminal.
	StatusDone
	// StatusFailed - run stopped with a failure reason. Terminal. Partial
	// transcript and segments accumulated so far are retained.
	StatusFailed
)

// String returns the human-readable status text.
func (s Status) String() string {
	switch s {
	case StatusPreparing:
		return "Preparing"
	case StatusDownloading:
		return "Downloading"
	case StatusInstallingModel:
		return "Installing model"
	case StatusTranscribing:
		return "Transcribing"
	case StatusDone:
		return "Done"
	case StatusFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// IsTerminal returns true once the run can no longer make progress.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusFailed
}

// Failure reasons captured on a failed run. Each is a human-readable
// prefix, joined with the underlying error detail.
const (
	ReasonDownloadFailed     = "download failed"
	ReasonLocaleUnsupported  = "no supported language"
	ReasonAssetInstallFailed = "model install failed"
	ReasonRecognitionFailed  = "recognition failed"
	ReasonCanceled           = "canceled"
)
