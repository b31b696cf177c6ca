package cleanup

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// SessionPruner closes editing sessions idle for longer than maxIdle.
type SessionPruner interface {
	PruneIdle(maxIdle time.Duration) int
}

// Options configures a Scheduler.
type Options struct {
	TempDir     string
	Interval    time.Duration
	MaxFileAge  time.Duration
	SessionIdle time.Duration
	Logger      *zap.Logger
}

// Result summarizes one cleanup pass.
type Result struct {
	FilesDeleted   int
	BytesFreed     int64
	SessionsClosed int
}

// Scheduler periodically removes stale upload files and idle editing sessions
type Scheduler struct {
	opts     Options
	sessions SessionPruner
	logger   *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	done     chan struct{}
}

// NewScheduler creates a new cleanup scheduler. sessions may be nil.
func NewScheduler(sessions SessionPruner, opts Options) *Scheduler {
	if opts.Interval <= 0 {
		opts.Interval = 30 * time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Scheduler{
		opts:     opts,
		sessions: sessions,
		logger:   opts.Logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs one pass immediately and then one per interval until Stop.
func (s *Scheduler) Start() {
	s.logger.Info("running initial cleanup")
	s.RunOnce()

	ticker := time.NewTicker(s.opts.Interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stopChan:
				return
			}
		}
	}()

	s.logger.Info("cleanup scheduler started",
		zap.Duration("interval", s.opts.Interval),
		zap.Duration("max_file_age", s.opts.MaxFileAge),
		zap.Duration("session_idle", s.opts.SessionIdle))
}

// Stop stops the cleanup scheduler
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		<-s.done
		s.logger.Info("cleanup scheduler stopped")
	})
}

// RunOnce performs a single cleanup pass.
func (s *Scheduler) RunOnce() Result {
	var res Result
	if s.sessions != nil && s.opts.SessionIdle > 0 {
		res.SessionsClosed = s.sessions.PruneIdle(s.opts.SessionIdle)
		if res.SessionsClosed > 0 {
			s.logger.Info("closed idle editing sessions", zap.Int("count", res.SessionsClosed))
		}
	}
	if s.opts.TempDir != "" && s.opts.MaxFileAge > 0 {
		res.FilesDeleted, res.BytesFreed = s.cleanOldFiles()
	}
	return res
}

// cleanOldFiles removes files older than MaxFileAge from the temp directory
func (s *Scheduler) cleanOldFiles() (int, int64) {
	now := time.Now()
	var (
		deletedCount int
		deletedSize  int64
	)

	err := filepath.Walk(s.opts.TempDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip files we can't access
		}
		if info.IsDir() {
			return nil
		}

		age := now.Sub(info.ModTime())
		if age <= s.opts.MaxFileAge {
			return nil
		}
		size := info.Size()
		if err := os.Remove(path); err != nil {
			s.logger.Warn("failed to delete old file", zap.String("path", path), zap.Error(err))
			return nil
		}
		deletedCount++
		deletedSize += size
		s.logger.Debug("deleted old temp file",
			zap.String("file", filepath.Base(path)),
			zap.Duration("age", age.Round(time.Minute)),
			zap.Int64("size", size))
		return nil
	})
	if err != nil {
		s.logger.Warn("error during cleanup", zap.Error(err))
	}

	if deletedCount > 0 {
		s.logger.Info("temp cleanup complete",
			zap.Int("files", deletedCount),
			zap.Float64("freed_mb", float64(deletedSize)/(1024*1024)))
	}
	return deletedCount, deletedSize
}

// EnsureTempDirExists creates the temp directory if it doesn't exist
func EnsureTempDirExists(tempDir string) error {
	return os.MkdirAll(tempDir, 0755)
}
