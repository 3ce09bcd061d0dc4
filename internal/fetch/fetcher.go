// Package fetch downloads remote audio to ephemeral local storage.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"podcast-session-core/internal/observability/logging"
	"podcast-session-core/internal/observability/metrics"
)

// Fetcher is the content-fetch capability the transcription pipeline
// consumes. The returned cleanup must be invoked on every exit path of the
// run that requested the fetch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (path string, cleanup func(), err error)
}

// HTTP fetches audio over HTTP(S) into a temp file.
type HTTP struct {
	client  *http.Client
	metrics *metrics.Metrics
	log     zerolog.Logger
}

// NewHTTP creates an HTTP fetcher with a bounded request timeout.
func NewHTTP() *HTTP {
	return &HTTP{
		client:  &http.Client{Timeout: 10 * time.Minute},
		metrics: metrics.DefaultMetrics,
		log:     logging.WithComponent("fetch"),
	}
}

// Fetch downloads the full payload at url to a temp file and returns its
// path with a cleanup that removes the file. On error no file is left
// behind and cleanup is a no-op.
func (h *HTTP) Fetch(ctx context.Context, url string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		h.metrics.DownloadErrors.Inc()
		return "", func() {}, fmt.Errorf("fetch %q: %w", url, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.metrics.DownloadErrors.Inc()
		return "", func() {}, fmt.Errorf("fetch %q: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.metrics.DownloadErrors.Inc()
		return "", func() {}, fmt.Errorf("fetch %q: unexpected status %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp("", "podcore-audio-*")
	if err != nil {
		h.metrics.DownloadErrors.Inc()
		return "", func() {}, fmt.Errorf("fetch %q: create temp: %w", url, err)
	}

	written, err := io.Copy(tmp, resp.Body)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		h.metrics.DownloadErrors.Inc()
		return "", func() {}, fmt.Errorf("fetch %q: write payload: %w", url, err)
	}

	h.metrics.DownloadBytes.Add(float64(written))
	h.log.Debug().
		Str("url", url).
		Str("path", tmp.Name()).
		Int64("bytes", written).
		Msg("Audio downloaded")

	path := tmp.Name()
	return path, func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			h.log.Warn().Err(err).Str("path", path).Msg("Failed to remove downloaded audio")
		}
	}, nil
}
