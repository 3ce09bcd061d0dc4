// Package store persists transcript records keyed by media locator.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"podcast-session-core/internal/models"
	"podcast-session-core/internal/observability/logging"
	"podcast-session-core/internal/observability/metrics"
)

// Record is the persisted transcript state for one media locator. Exactly
// one record exists per distinct locator.
type Record struct {
	MediaURL   string                     `json:"mediaUrl"`
	Transcript string                     `json:"transcript"`
	Summary    string                     `json:"summary,omitempty"`
	Segments   []models.TranscriptSegment `json:"segments,omitempty"`
	SavedAt    time.Time                  `json:"savedAt"`
}

// Backend is the key-value persistence capability the store runs on.
type Backend interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores the value under the key, overwriting any prior value.
	Set(ctx context.Context, key string, value []byte) error
}

// Store upserts and loads transcript records through a Backend.
type Store struct {
	backend Backend
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a Store on the given backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("store"),
		now:     time.Now,
	}
}

// Save upserts the record for mediaURL. The transcript always overwrites;
// summary and segments overwrite only when non-empty, so a later save
// without them never erases previously saved values. SavedAt is refreshed
// on every call. Safe to call repeatedly with identical input.
func (s *Store) Save(ctx context.Context, mediaURL, transcript, summary string, segments []models.TranscriptSegment) error {
	existing, found, err := s.load(ctx, mediaURL)
	if err != nil {
		s.metrics.StoreSaveErrors.Inc()
		return fmt.Errorf("store save %q: %w", mediaURL, err)
	}

	rec := Record{MediaURL: mediaURL}
	if found {
		rec = *existing
	}
	rec.Transcript = transcript
	if summary != "" {
		rec.Summary = summary
	}
	if len(segments) > 0 {
		rec.Segments = segments
	}
	rec.SavedAt = s.now().UTC()

	data, err := json.Marshal(rec)
	if err != nil {
		s.metrics.StoreSaveErrors.Inc()
		return fmt.Errorf("store marshal %q: %w", mediaURL, err)
	}
	if err := s.backend.Set(ctx, mediaURL, data); err != nil {
		s.metrics.StoreSaveErrors.Inc()
		return fmt.Errorf("store save %q: %w", mediaURL, err)
	}

	s.metrics.StoreSaves.Inc()
	s.log.Debug().
		Str("mediaUrl", mediaURL).
		Bool("updated", found).
		Int("segments", len(rec.Segments)).
		Msg("Transcript record saved")
	return nil
}

// Load returns the record for mediaURL. A missing key is reported as
// found=false with a nil error.
func (s *Store) Load(ctx context.Context, mediaURL string) (*Record, bool, error) {
	rec, found, err := s.load(ctx, mediaURL)
	if err != nil {
		return nil, false, fmt.Errorf("store load %q: %w", mediaURL, err)
	}
	return rec, found, nil
}

func (s *Store) load(ctx context.Context, mediaURL string) (*Record, bool, error) {
	data, found, err := s.backend.Get(ctx, mediaURL)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, true, nil
}
