package storage

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// exportFile is the text and metadata of one exported transcript.
type exportFile struct {
	baseName string
	text     []byte
	meta     map[string]interface{}
}

func newExport(tr *types.Transcript, now time.Time) exportFile {
	// Filename: 20250123_143022_podcast_episode
	timestamp := now.Format("20060102_150405")
	return exportFile{
		baseName: fmt.Sprintf("%s_%s", timestamp, sanitizeFilename(tr.Name)),
		text:     []byte(FormatTranscript(tr)),
		meta: map[string]interface{}{
			"transcript_id":    tr.ID,
			"name":             tr.Name,
			"created_at":       tr.CreatedAt,
			"exported_at":      now,
			"duration_seconds": tr.Duration(),
			"word_count":       len(strings.Fields(tr.Text())),
			"speakers":         tr.Speakers(),
			"segments":         tr.Segments,
		},
	}
}

func (e exportFile) metaJSON() ([]byte, error) {
	b, err := json.MarshalIndent(e.meta, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return b, nil
}

// FormatTranscript renders one line per segment: "[start - end] Speaker: text".
func FormatTranscript(tr *types.Transcript) string {
	var b strings.Builder
	for _, seg := range tr.Segments {
		fmt.Fprintf(&b, "[%s - %s] %s: %s\n",
			formatTimestamp(seg.Start), formatTimestamp(seg.End), seg.Speaker, seg.Text)
	}
	return b.String()
}

func formatTimestamp(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, total%3600/60, total%60)
}

// sanitizeFilename replaces characters that are invalid in file names
func sanitizeFilename(name string) string {
	const invalid = `/\:*?"<>|`
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case strings.ContainsRune(invalid, r), r < 0x20:
			b.WriteRune('_')
		case r == ' ':
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	result := b.String()
	if utf8.RuneCountInString(result) > 100 {
		result = string([]rune(result)[:100])
	}
	if result == "" || result == "." || result == ".." {
		return "transcript"
	}
	return result
}
