package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// ExportResult reports where an exported transcript went.
type ExportResult struct {
	LocalPath  string `json:"local_path"`
	DriveURL   string `json:"gdrive_url,omitempty"`
	DriveError string `json:"gdrive_error,omitempty"`
}

// Exporter writes transcripts to disk and, when configured, to Google Drive.
type Exporter struct {
	local  *LocalStorage
	drive  *DriveClient
	logger *zap.Logger
}

// NewExporter creates an Exporter. drive may be nil.
func NewExporter(local *LocalStorage, drive *DriveClient, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{local: local, drive: drive, logger: logger}
}

// DriveEnabled reports whether Drive uploads are available.
func (e *Exporter) DriveEnabled() bool {
	return e.drive != nil
}

// Export saves tr locally. With toDrive it uploads first; a Drive failure
// is reported in the result and the local copy is still written.
func (e *Exporter) Export(ctx context.Context, tr *types.Transcript, toDrive bool) (ExportResult, error) {
	var res ExportResult
	if toDrive {
		if e.drive == nil {
			res.DriveError = "google drive is not configured"
		} else if url, err := e.drive.Upload(ctx, tr); err != nil {
			e.logger.Warn("google drive upload failed, saving locally only",
				zap.String("transcript_id", tr.ID), zap.Error(err))
			res.DriveError = err.Error()
		} else {
			res.DriveURL = url
		}
	}

	path, err := e.local.SaveTranscript(tr, res.DriveURL)
	if err != nil {
		return res, fmt.Errorf("export %s: %w", tr.ID, err)
	}
	res.LocalPath = path
	e.logger.Info("transcript exported",
		zap.String("transcript_id", tr.ID),
		zap.String("local_path", path),
		zap.String("gdrive_url", res.DriveURL))
	return res, nil
}
