package queue

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/debug"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/transcription"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

var (
	ErrQueueFull   = errors.New("queue: job queue is full")
	ErrPoolStopped = errors.New("queue: worker pool stopped")
)

// Processor is the audio-processing part of the backend.
type Processor interface {
	ProcessAudio(ctx context.Context, filename string, audio io.Reader) (string, error)
	ProcessStatus(ctx context.Context, taskID string) (types.ProcessingStatus, error)
	SubscribeProgress(ctx context.Context, taskID string, fn func(types.ProcessingStatus)) (types.ProcessingStatus, error)
}

// Options configures a WorkerPool.
type Options struct {
	Workers      int
	QueueSize    int
	Normalize    bool
	TempDir      string
	PollInterval time.Duration
	Logger       *zap.Logger
}

// WorkerPool manages a pool of workers submitting audio jobs to the backend
// and following them to completion.
type WorkerPool struct {
	jobQueue chan *Job
	api      Processor
	opts     Options
	logger   *zap.Logger

	mu      sync.RWMutex
	jobs    map[string]*Job
	stopped bool
	wg      sync.WaitGroup

	// OnComplete is called after a job reaches a final status.
	OnComplete func(Job)
	// OnProgress is called for every progress report of a running job.
	OnProgress func(Job)
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(api Processor, opts Options) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.TempDir == "" {
		opts.TempDir = os.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &WorkerPool{
		jobQueue: make(chan *Job, opts.QueueSize),
		api:      api,
		opts:     opts,
		logger:   opts.Logger,
		jobs:     make(map[string]*Job),
	}
}

// Start launches the workers. They stop when ctx ends or Stop is called.
func (wp *WorkerPool) Start(ctx context.Context) {
	wp.logger.Info("starting worker pool", zap.Int("workers", wp.opts.Workers))
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(ctx, i)
	}
}

// Stop closes the queue and waits for running jobs to finish.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobQueue)
	wp.mu.Unlock()
	wp.wg.Wait()
}

// Enqueue adds a job to the queue without blocking.
func (wp *WorkerPool) Enqueue(job *Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	if wp.stopped {
		return ErrPoolStopped
	}
	job.Status = types.StatusQueued
	job.UpdatedAt = time.Now()
	select {
	case wp.jobQueue <- job:
	default:
		return ErrQueueFull
	}
	wp.jobs[job.ID] = job
	wp.logger.Info("job enqueued",
		zap.String("job_id", job.ID),
		zap.String("name", job.RequestName))
	return nil
}

// Job returns a snapshot of the job with id.
func (wp *WorkerPool) Job(id string) (Job, bool) {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	job, ok := wp.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns snapshots of every known job, newest first.
func (wp *WorkerPool) Jobs() []Job {
	wp.mu.RLock()
	out := make([]Job, 0, len(wp.jobs))
	for _, job := range wp.jobs {
		out = append(out, *job)
	}
	wp.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// update applies fn to the job under the pool lock.
func (wp *WorkerPool) update(job *Job, fn func(*Job)) {
	wp.mu.Lock()
	fn(job)
	job.UpdatedAt = time.Now()
	wp.mu.Unlock()
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	defer wp.wg.Done()
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("worker started")

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}
			func() {
				defer func() {
					if r := recover(); r != nil {
						log.Error("panic processing job",
							zap.String("job_id", job.ID),
							zap.Any("panic", r),
							zap.ByteString("stack", debug.Stack()))
						wp.fail(job, fmt.Errorf("worker panic: %v", r))
					}
				}()
				wp.processJob(ctx, log, job)
			}()
		}
	}
}

// processJob submits the audio and follows the backend task to the end.
func (wp *WorkerPool) processJob(ctx context.Context, log *zap.Logger, job *Job) {
	log = log.With(zap.String("job_id", job.ID))
	log.Info("processing job")
	wp.update(job, func(j *Job) { j.Status = types.StatusProcessing })
	if !job.KeepSource {
		defer wp.cleanupTempFile(job.FilePath)
	}

	if !transcription.ValidateAudioFormat(job.FilePath) {
		wp.fail(job, fmt.Errorf("unsupported audio format %q", filepath.Ext(job.FilePath)))
		return
	}

	path, filename := job.FilePath, uploadName(job)
	if wp.opts.Normalize {
		normalized, err := transcription.NormalizeAudio(ctx, job.FilePath, wp.opts.TempDir)
		if err != nil {
			wp.fail(job, fmt.Errorf("audio normalization failed: %w", err))
			return
		}
		defer wp.cleanupTempFile(normalized)
		path = normalized
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".wav"
	}

	taskID, err := wp.submit(ctx, path, filename)
	if err != nil {
		wp.fail(job, fmt.Errorf("upload failed: %w", err))
		return
	}
	wp.update(job, func(j *Job) { j.TaskID = taskID })
	log = log.With(zap.String("task_id", taskID))

	final, err := wp.api.SubscribeProgress(ctx, taskID, func(st types.ProcessingStatus) {
		wp.progress(job, st)
	})
	if err != nil || !final.Done() {
		if ctx.Err() != nil {
			wp.fail(job, ctx.Err())
			return
		}
		log.Warn("progress channel ended early, polling status", zap.Error(err))
		final, err = wp.poll(ctx, job, taskID)
		if err != nil {
			wp.fail(job, fmt.Errorf("status polling failed: %w", err))
			return
		}
	}

	if final.Status == types.StatusFailed {
		msg := final.Error
		if msg == "" {
			msg = "backend reported failure"
		}
		wp.fail(job, errors.New(msg))
		return
	}

	wp.update(job, func(j *Job) {
		j.Status = types.StatusCompleted
		j.Progress = 100
		j.TranscriptionID = final.TranscriptionID
	})
	log.Info("job completed", zap.String("transcription_id", final.TranscriptionID))
	wp.notify(job)
}

func (wp *WorkerPool) submit(ctx context.Context, path, filename string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return wp.api.ProcessAudio(ctx, filename, f)
}

// poll asks for the task status until it is done.
func (wp *WorkerPool) poll(ctx context.Context, job *Job, taskID string) (types.ProcessingStatus, error) {
	ticker := time.NewTicker(wp.opts.PollInterval)
	defer ticker.Stop()
	for {
		st, err := wp.api.ProcessStatus(ctx, taskID)
		if err != nil {
			return st, err
		}
		wp.progress(job, st)
		if st.Done() {
			return st, nil
		}
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (wp *WorkerPool) progress(job *Job, st types.ProcessingStatus) {
	wp.update(job, func(j *Job) { j.Progress = st.Progress })
	if wp.OnProgress != nil {
		wp.mu.RLock()
		snapshot := *job
		wp.mu.RUnlock()
		wp.OnProgress(snapshot)
	}
}

func (wp *WorkerPool) fail(job *Job, err error) {
	wp.update(job, func(j *Job) {
		j.Status = types.StatusFailed
		j.Error = err.Error()
	})
	wp.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Error(err))
	wp.notify(job)
}

func (wp *WorkerPool) notify(job *Job) {
	if wp.OnComplete == nil {
		return
	}
	wp.mu.RLock()
	snapshot := *job
	wp.mu.RUnlock()
	wp.OnComplete(snapshot)
}

func uploadName(job *Job) string {
	ext := filepath.Ext(job.FilePath)
	if job.RequestName == "" {
		return filepath.Base(job.FilePath)
	}
	return strings.TrimSuffix(job.RequestName, ext) + ext
}

// cleanupTempFile removes a temporary file
func (wp *WorkerPool) cleanupTempFile(filePath string) {
	if filePath == "" {
		return
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		wp.logger.Warn("failed to cleanup temp file", zap.String("path", filePath), zap.Error(err))
	}
}
