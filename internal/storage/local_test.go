package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

var exportTime = time.Date(2025, 1, 23, 14, 30, 22, 0, time.UTC)

func exportTranscript() *types.Transcript {
	return &types.Transcript{
		ID:        "t1",
		Name:      "Board meeting: Q1/Q2",
		CreatedAt: exportTime.Add(-time.Hour),
		Segments: []types.Segment{
			{ID: "s1", Speaker: "Ana", Start: 0, End: 3.5, Text: "hello world"},
			{ID: "s2", Speaker: "Ben", Start: 3.5, End: 65, Text: "good morning"},
		},
	}
}

func TestLocalStorage_SaveTranscript(t *testing.T) {
	t.Run("should write text and metadata under a dated directory", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		ls := NewLocalStorage(dir)
		ls.now = func() time.Time { return exportTime }

		// Act
		path, err := ls.SaveTranscript(exportTranscript(), "https://drive.google.com/file/d/x/view")

		// Assert
		require.NoError(t, err)
		assert.Equal(t,
			filepath.Join(dir, "2025", "01", "23", "20250123_143022_Board_meeting__Q1_Q2.txt"),
			path)

		text, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t,
			"[00:00:00 - 00:00:03] Ana: hello world\n[00:00:03 - 00:01:05] Ben: good morning\n",
			string(text))

		raw, err := os.ReadFile(strings.TrimSuffix(path, ".txt") + "_meta.json")
		require.NoError(t, err)
		var meta map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &meta))
		assert.Equal(t, "t1", meta["transcript_id"])
		assert.Equal(t, float64(4), meta["word_count"])
		assert.Equal(t, path, meta["local_path"])
		assert.Equal(t, "https://drive.google.com/file/d/x/view", meta["gdrive_url"])
		assert.Equal(t, []interface{}{"Ana", "Ben"}, meta["speakers"])
	})
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"podcast episode":  "podcast_episode",
		"../../etc/passwd": ".._.._etc_passwd",
		`a:b*c?"d<e>f|g\h`: "a_b_c__d_e_f_g_h",
		"   ":              "transcript",
		"..":               "transcript",
		"reunión":          "reunión",
	}
	for in, want := range tests {
		assert.Equal(t, want, sanitizeFilename(in), in)
	}
	assert.Len(t, []rune(sanitizeFilename(strings.Repeat("é", 150))), 100)
}
