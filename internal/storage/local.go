package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// LocalStorage handles exporting transcripts to the local filesystem
type LocalStorage struct {
	outputDir string
	now       func() time.Time
}

// NewLocalStorage creates a new local storage handler
func NewLocalStorage(outputDir string) *LocalStorage {
	return &LocalStorage{
		outputDir: outputDir,
		now:       time.Now,
	}
}

// SaveTranscript writes the transcript and its metadata under a dated
// directory and returns the path of the text file. driveURL is recorded in
// the metadata when the transcript was also uploaded.
func (ls *LocalStorage) SaveTranscript(tr *types.Transcript, driveURL string) (string, error) {
	// Dated directory structure: outputs/2025/01/23/
	now := ls.now()
	dateDir := filepath.Join(ls.outputDir,
		fmt.Sprintf("%d", now.Year()),
		fmt.Sprintf("%02d", now.Month()),
		fmt.Sprintf("%02d", now.Day()))

	if err := os.MkdirAll(dateDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create date directory: %w", err)
	}

	export := newExport(tr, now)
	txtPath := filepath.Join(dateDir, export.baseName+".txt")
	metaPath := filepath.Join(dateDir, export.baseName+"_meta.json")

	if err := os.WriteFile(txtPath, export.text, 0644); err != nil {
		return "", fmt.Errorf("failed to save transcript: %w", err)
	}

	export.meta["local_path"] = txtPath
	if driveURL != "" {
		export.meta["gdrive_url"] = driveURL
	}
	metaJSON, err := export.metaJSON()
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(metaPath, metaJSON, 0644); err != nil {
		return "", fmt.Errorf("failed to save metadata: %w", err)
	}

	return txtPath, nil
}
