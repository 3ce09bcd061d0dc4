// Command podcore exercises the session core from the terminal: tokenize
// summary text and run the transcription pipeline against a media URL.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"podcast-session-core/internal/config"
	"podcast-session-core/internal/events"
	"podcast-session-core/internal/fetch"
	"podcast-session-core/internal/observability/logging"
	"podcast-session-core/internal/store"
	"podcast-session-core/internal/timecode"
	"podcast-session-core/internal/transcription"
	"podcast-session-core/internal/transcription/google"
	"podcast-session-core/internal/transcription/scripted"
)

func main() {
	cfg := config.Load()
	logging.Init(logging.Config{
		Level:      cfg.Observability.LogLevel,
		Format:     cfg.Observability.LogFormat,
		TimeFormat: time.RFC3339,
	})

	root := &cobra.Command{
		Use:          "podcore",
		Short:        "Podcast session core utilities",
		SilenceUsage: true,
	}
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)
	root.SilenceErrors = true

	root.AddCommand(parseCmd(), transcribeCmd(cfg))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func parseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text>",
		Short: "Split text into literal and timecode tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, tok := range timecode.Parse(args[0]) {
				if tok.IsTimecode {
					fmt.Fprintf(cmd.OutOrStdout(), "timecode  %-10s %ds\n", tok.Raw, tok.Seconds)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "literal   %q\n", tok.Raw)
				}
			}
			return nil
		},
	}
}

func transcribeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transcribe <media-url>",
		Short: "Download and transcribe an episode, printing progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			useGoogle, _ := cmd.Flags().GetBool("google")
			save, _ := cmd.Flags().GetBool("save")
			return runTranscribe(cmd, cfg, args[0], useGoogle, save)
		},
	}
	cmd.Flags().Bool("google", false, "Use the Google Cloud Speech backend (requires credentials)")
	cmd.Flags().Bool("save", false, "Persist the transcript to the configured store")
	return cmd
}

func runTranscribe(cmd *cobra.Command, cfg *config.Config, mediaURL string, useGoogle, save bool) error {
	ctx := cmd.Context()

	var transcriber transcription.Transcriber
	if useGoogle {
		t, err := google.New(ctx)
		if err != nil {
			return fmt.Errorf("google backend: %w", err)
		}
		defer t.Close()
		transcriber = t
	} else {
		transcriber = scripted.New()
	}

	pipeline := transcription.New(transcriber, fetch.NewHTTP(), events.New(&cfg.Kafka), cfg.Transcription)
	run := pipeline.Start(ctx, mediaURL)

	lastStatus := transcription.Status(-1)
	run.Subscribe(func(s transcription.Snapshot) {
		if s.Status != lastStatus {
			lastStatus = s.Status
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %3.0f%%\n", s.StatusText, s.Fraction*100)
		}
	})

	<-run.Done()
	snap := run.Snapshot()
	if snap.Status != transcription.StatusDone {
		return fmt.Errorf("transcription failed: %s", snap.FailureReason)
	}

	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(snap.Transcript))

	if save {
		backend, closeBackend := newBackend(cfg)
		defer closeBackend()
		st := store.New(backend)
		if err := st.Save(ctx, mediaURL, snap.Transcript, "", snap.Segments); err != nil {
			return fmt.Errorf("persist transcript: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "saved")
	}
	return nil
}

// newBackend picks Redis when an address is configured, in-memory otherwise.
func newBackend(cfg *config.Config) (store.Backend, func()) {
	if cfg.Redis.Addr == "" {
		return store.NewMemory(), func() {}
	}
	r := store.NewRedis(cfg.Redis.Addr, cfg.Redis.KeyPrefix)
	return r, func() { _ = r.Close() }
}
