package models

// TranscriptSegment is one speech-delimited recognition result. Segments are
// immutable once emitted; within a run ordinals are strictly increasing and
// start offsets are non-decreasing.
type TranscriptSegment struct {
	Text        string  `json:"text"`
	StartOffset float64 `json:"startOffset"`
	Ordinal     int     `json:"ordinal"`
}

// SegmentEvent is published for every segment emitted during a
// transcription run.
type SegmentEvent struct {
	EventType   string  `json:"eventType"`
	RunID       string  `json:"runId"`
	MediaURL    string  `json:"mediaUrl"`
	Timestamp   int64   `json:"timestamp"`
	Ordinal     int     `json:"ordinal"`
	Text        string  `json:"text"`
	StartOffset float64 `json:"startOffset"`
	Fraction    float64 `json:"fraction"`
}

// TranscriptDoneEvent is published once when a run reaches Done, carrying
// the assembled transcript.
type TranscriptDoneEvent struct {
	EventType    string  `json:"eventType"`
	RunID        string  `json:"runId"`
	MediaURL     string  `json:"mediaUrl"`
	Timestamp    int64   `json:"timestamp"`
	Transcript   string  `json:"transcript"`
	SegmentCount int     `json:"segmentCount"`
	Duration     float64 `json:"duration"`
}
