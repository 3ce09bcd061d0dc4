// Package models defines the podcast domain data structures shared across
// the playback, transcription, and persistence components.
package models

// Episode is an immutable episode value produced by the feed-parsing
// collaborator. MediaURL may be empty, which marks the episode as
// non-playable.
type Episode struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
	Duration    string `json:"duration,omitempty"`
	ArtworkURL  string `json:"artworkUrl,omitempty"`
}

// Playable reports whether the episode carries a media locator.
func (e Episode) Playable() bool {
	return e.MediaURL != ""
}
