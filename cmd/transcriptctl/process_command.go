package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/codebuildervaibhav/transcript-console/internal/cleanup"
	"github.com/codebuildervaibhav/transcript-console/internal/queue"
	"github.com/codebuildervaibhav/transcript-console/internal/transcription"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var (
		name      string
		normalize bool
		jsonOut   bool
	)
	cmd := &cobra.Command{
		Use:   "process <audio-file>",
		Short: "Upload an audio file for diarized transcription and wait for the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			if !transcription.ValidateAudioFormat(path) {
				return fmt.Errorf("unsupported audio format %q (supported: %s)",
					filepath.Ext(path), strings.Join(transcription.SupportedFormats, ", "))
			}
			if normalize && !transcription.FFmpegAvailable() {
				return errors.New("--normalize needs ffmpeg on PATH")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			backend, err := ctx.ensureBackend()
			if err != nil {
				return err
			}
			if normalize {
				if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
					return err
				}
			}

			pool := queue.NewWorkerPool(backend.Transcripts, queue.Options{
				Workers:      1,
				QueueSize:    1,
				Normalize:    normalize,
				TempDir:      cfg.Storage.TempDir,
				PollInterval: time.Duration(cfg.Workers.PollIntervalSec) * time.Second,
				Logger:       ctx.log().Named("queue"),
			})
			done := make(chan queue.Job, 1)
			pool.OnComplete = func(job queue.Job) { done <- job }
			if !jsonOut {
				errOut := cmd.ErrOrStderr()
				pool.OnProgress = func(job queue.Job) {
					fmt.Fprintf(errOut, "Processing %s: %.0f%%\n", job.RequestName, job.Progress)
				}
			}
			pool.Start(cmd.Context())
			defer pool.Stop()

			if name == "" {
				name = filepath.Base(path)
			}
			job := queue.NewJob(name, path)
			job.KeepSource = true
			if err := pool.Enqueue(job); err != nil {
				return err
			}

			var final queue.Job
			select {
			case final = <-done:
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}

			if jsonOut {
				if err := writeJSON(cmd, final); err != nil {
					return err
				}
			}
			if final.Status == types.StatusFailed {
				return fmt.Errorf("processing %s failed: %s", name, final.Error)
			}
			if !jsonOut {
				fmt.Fprintf(cmd.OutOrStdout(), "Transcription %s ready\n", final.TranscriptionID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name sent with the upload (defaults to the file name)")
	cmd.Flags().BoolVar(&normalize, "normalize", false, "Convert to 16 kHz mono WAV with ffmpeg before uploading")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the finished job as JSON")
	return cmd
}
