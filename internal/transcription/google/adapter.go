// Package google provides a Google Cloud Speech-to-Text backed transcriber.
package google

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"

	"podcast-session-core/internal/transcription"
)

const (
	sampleRateHz = 16000
	chunkBytes   = 32 * 1024
	// LINEAR16 mono: two bytes per sample.
	bytesPerSecond = sampleRateHz * 2
	wavHeaderBytes = 44
)

// supportedLocales are the recognition languages this adapter accepts.
var supportedLocales = []string{
	"en-US", "en-GB", "de-DE", "es-ES", "fr-FR", "it-IT",
	"ja-JP", "pt-BR", "sv-SE", "nl-NL",
}

// Transcriber implements transcription.Transcriber using Google Cloud
// streaming recognition. Audio is expected as 16 kHz LINEAR16 mono WAV.
type Transcriber struct {
	client *speech.Client
}

// New creates the transcriber. Requires GOOGLE_APPLICATION_CREDENTIALS to
// be set in the environment.
func New(ctx context.Context) (*Transcriber, error) {
	c, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &Transcriber{client: c}, nil
}

// Available reports whether the cloud client was created.
func (t *Transcriber) Available() bool { return t.client != nil }

// SupportsLocale checks the locale against the adapter's allowlist.
func (t *Transcriber) SupportsLocale(locale string) bool {
	for _, l := range supportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// InstalledLocales returns the full allowlist; cloud-hosted models need no
// local assets.
func (t *Transcriber) InstalledLocales() []string { return supportedLocales }

// AssetsInstalled always reports true: recognition models live server-side.
func (t *Transcriber) AssetsInstalled(string) bool { return true }

// InstallAssets is a no-op for the cloud backend.
func (t *Transcriber) InstallAssets(context.Context, string) error { return nil }

// Close releases the underlying client.
func (t *Transcriber) Close() error { return t.client.Close() }

// Open starts a streaming recognition session over the local audio file.
// The file is fed to the stream on a background goroutine while results are
// pulled through Next.
func (t *Transcriber) Open(ctx context.Context, audioPath, locale string) (transcription.RecognitionSession, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat audio: %w", err)
	}

	stream, err := t.client.StreamingRecognize(ctx)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("start recognition stream: %w", err)
	}

	cfg := &speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:        speechpb.RecognitionConfig_LINEAR16,
					SampleRateHertz: sampleRateHz,
					LanguageCode:    locale,
				},
				InterimResults: false,
			},
		},
	}
	if err := stream.Send(cfg); err != nil {
		f.Close()
		return nil, fmt.Errorf("send recognition config: %w", err)
	}

	s := &session{
		file:     f,
		stream:   stream,
		duration: estimateDuration(info.Size()),
	}
	go s.feed()
	return s, nil
}

// estimateDuration derives the audio length from the payload size, assuming
// 16 kHz 16-bit mono LINEAR16 with a standard WAV header.
func estimateDuration(size int64) float64 {
	payload := size - wavHeaderBytes
	if payload <= 0 {
		return 0
	}
	return float64(payload) / bytesPerSecond
}

type session struct {
	file      *os.File
	stream    speechpb.Speech_StreamingRecognizeClient
	duration  float64
	processed float64
	// pending holds final results beyond the first from a single response,
	// drained before the next Recv so none are dropped.
	pending []transcription.Result
}

// feed streams the audio file to the recognizer in fixed-size chunks, then
// half-closes so the service can flush its final results.
func (s *session) feed() {
	buf := make([]byte, chunkBytes)
	for {
		n, err := s.file.Read(buf)
		if n > 0 {
			req := &speechpb.StreamingRecognizeRequest{
				StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
					AudioContent: buf[:n],
				},
			}
			if sendErr := s.stream.Send(req); sendErr != nil {
				// Recv on the pull side reports the stream error.
				return
			}
		}
		if err != nil {
			s.stream.CloseSend()
			return
		}
	}
}

func (s *session) TotalDuration() float64 { return s.duration }

// Next pulls the next final recognition result. The segment's start offset
// is the previous result's processed end, matching how incremental
// recognizers report progress as a processed range. A response may carry
// several final results; the extras are buffered and handed out in order.
func (s *session) Next(ctx context.Context) (transcription.Result, error) {
	for {
		if ctx.Err() != nil {
			return transcription.Result{}, ctx.Err()
		}

		if len(s.pending) > 0 {
			result := s.pending[0]
			s.pending = s.pending[1:]
			return result, nil
		}

		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return transcription.Result{}, io.EOF
		}
		if err != nil {
			if st, ok := status.FromError(err); ok {
				return transcription.Result{}, fmt.Errorf("recognition stream: %s: %s", st.Code(), st.Message())
			}
			return transcription.Result{}, fmt.Errorf("recognition stream: %w", err)
		}

		for _, r := range resp.Results {
			if !r.IsFinal || len(r.Alternatives) == 0 {
				continue
			}
			start := s.processed
			s.processed = offsetSeconds(r.ResultEndTime, s.processed)
			s.pending = append(s.pending, transcription.Result{
				Text:             r.Alternatives[0].Transcript,
				StartOffset:      start,
				ProcessedSeconds: s.processed,
			})
		}
	}
}

// offsetSeconds converts a result end time, falling back to the previous
// processed position when the service omits it.
func offsetSeconds(d *durationpb.Duration, prev float64) float64 {
	if d == nil {
		return prev
	}
	secs := d.AsDuration().Seconds()
	if secs < prev {
		return prev
	}
	return secs
}

func (s *session) Close() error {
	err := s.file.Close()
	if s.stream != nil {
		s.stream.CloseSend()
	}
	return err
}
