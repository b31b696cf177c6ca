package cleanup

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePruner struct {
	calls  atomic.Int32
	closed int
}

func (f *fakePruner) PruneIdle(maxIdle time.Duration) int {
	f.calls.Add(1)
	return f.closed
}

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
	mod := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mod, mod))
}

func TestScheduler_RunOnce(t *testing.T) {
	t.Run("should delete only files older than the max age", func(t *testing.T) {
		// Arrange
		dir := t.TempDir()
		old := filepath.Join(dir, "old.mp3")
		nested := filepath.Join(dir, "sub", "old.wav")
		fresh := filepath.Join(dir, "fresh.mp3")
		writeAged(t, old, 3*time.Hour)
		writeAged(t, nested, 3*time.Hour)
		writeAged(t, fresh, time.Minute)
		s := NewScheduler(nil, Options{TempDir: dir, MaxFileAge: time.Hour})

		// Act
		res := s.RunOnce()

		// Assert
		assert.Equal(t, 2, res.FilesDeleted)
		assert.Equal(t, int64(8), res.BytesFreed)
		assert.NoFileExists(t, old)
		assert.NoFileExists(t, nested)
		assert.FileExists(t, fresh)
	})

	t.Run("should prune idle sessions", func(t *testing.T) {
		pruner := &fakePruner{closed: 2}
		s := NewScheduler(pruner, Options{SessionIdle: time.Minute})

		res := s.RunOnce()

		assert.Equal(t, 2, res.SessionsClosed)
	})

	t.Run("should skip sessions when no idle limit is set", func(t *testing.T) {
		pruner := &fakePruner{}
		NewScheduler(pruner, Options{}).RunOnce()
		assert.Zero(t, pruner.calls.Load())
	})
}

func TestScheduler_StartStop(t *testing.T) {
	pruner := &fakePruner{}
	s := NewScheduler(pruner, Options{Interval: 5 * time.Millisecond, SessionIdle: time.Minute})

	s.Start()
	assert.Eventually(t, func() bool { return pruner.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	s.Stop()
	s.Stop()

	calls := pruner.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, pruner.calls.Load())
}
