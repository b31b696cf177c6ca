package transcription

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAudioFormat(t *testing.T) {
	for _, name := range []string{"a.mp3", "B.WAV", "dir/c.m4a", "d.flac"} {
		assert.True(t, ValidateAudioFormat(name), name)
	}
	for _, name := range []string{"a.txt", "noext", "video.mp4", ""} {
		assert.False(t, ValidateAudioFormat(name), name)
	}
}

func TestNormalizeAudio(t *testing.T) {
	if !FFmpegAvailable() {
		t.Skip("ffmpeg not installed")
	}

	t.Run("should fail on a file that is not audio", func(t *testing.T) {
		dir := t.TempDir()
		input := filepath.Join(dir, "broken.mp3")
		require.NoError(t, os.WriteFile(input, []byte("not audio"), 0644))

		_, err := NormalizeAudio(context.Background(), input, filepath.Join(dir, "tmp"))

		assert.Error(t, err)
		entries, _ := os.ReadDir(filepath.Join(dir, "tmp"))
		assert.Empty(t, entries)
	})
}
