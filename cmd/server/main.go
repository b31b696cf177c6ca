package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/cleanup"
	"github.com/codebuildervaibhav/transcript-console/internal/config"
	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/handlers"
	"github.com/codebuildervaibhav/transcript-console/internal/library"
	"github.com/codebuildervaibhav/transcript-console/internal/logger"
	"github.com/codebuildervaibhav/transcript-console/internal/queue"
	"github.com/codebuildervaibhav/transcript-console/internal/storage"
	"github.com/codebuildervaibhav/transcript-console/internal/transcription"
)

const defaultConfigPath = "config/config.yaml"

func main() {
	configPath := os.Getenv("CONSOLE_CONFIG")
	if configPath == "" {
		configPath = defaultConfigPath
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.MustNewLogger(logger.Options{}, nil).Fatal("failed to load config", zap.Error(err))
	}

	logBuffer := logger.NewLogBuffer(1000)
	log, err := logger.NewLogger(logger.Options{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
	}, logBuffer)
	if err != nil {
		logger.MustNewLogger(logger.Options{}, nil).Fatal("failed to create logger", zap.Error(err))
	}
	defer log.Sync()

	if err := run(cfg, log, logBuffer); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, logBuffer *logger.LogBuffer) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cleanup.EnsureTempDirExists(cfg.Storage.TempDir); err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.Storage.OutputDir, 0755); err != nil {
		return err
	}

	log.Info("initializing components")

	backend, err := apiclient.NewBackend(apiclient.BackendConfig{
		AuthURL:        cfg.Services.AuthURL,
		DiarizationURL: cfg.Services.DiarizationURL,
		Timeout:        cfg.HTTPTimeout(),
	}, apiclient.NewFileTokenStore(cfg.Session.TokenFile), log)
	if err != nil {
		return err
	}
	backend.Session.OnSessionExpired = func() {
		log.Warn("session expired, log in again")
	}

	prefs, err := storage.NewPreferencesDB(cfg.Storage.Database, storage.DefaultSearchHistory)
	if err != nil {
		return err
	}
	defer prefs.Close()

	// Google Drive export is optional
	var driveClient *storage.DriveClient
	if _, err := os.Stat(cfg.GoogleDrive.CredentialsFile); err == nil {
		driveClient, err = storage.NewDriveClient(ctx,
			cfg.GoogleDrive.CredentialsFile,
			apiclient.NewFileTokenStore(cfg.GoogleDrive.TokenFile),
			cfg.GoogleDrive.FolderName)
		if err != nil {
			log.Warn("google drive not available, exports are saved locally only", zap.Error(err))
			driveClient = nil
		} else {
			log.Info("google drive export enabled")
		}
	} else {
		log.Info("google drive credentials not found, exports are saved locally only")
	}
	exporter := storage.NewExporter(storage.NewLocalStorage(cfg.Storage.OutputDir), driveClient, log.Named("export"))

	lib := library.New(ctx, backend.Transcripts, cfg.RenameDebounce(), log.Named("library"))
	defer lib.Close()

	sessions := editor.NewRegistry(ctx, backend.Transcripts, editor.Options{
		AutosaveInterval:  cfg.AutosaveInterval(),
		SavedDisplayDelay: cfg.SavedDisplayDelay(),
		Logger:            log.Named("editor"),
	})
	defer sessions.CloseAll()

	normalize := cfg.Workers.NormalizeAudio
	if normalize && !transcription.FFmpegAvailable() {
		log.Warn("ffmpeg not found, uploads are sent without normalization")
		normalize = false
	}
	workerPool := queue.NewWorkerPool(backend.Transcripts, queue.Options{
		Workers:      cfg.Workers.Count,
		Normalize:    normalize,
		TempDir:      cfg.Storage.TempDir,
		PollInterval: time.Duration(cfg.Workers.PollIntervalSec) * time.Second,
		Logger:       log.Named("queue"),
	})
	workerPool.OnComplete = func(job queue.Job) {
		if job.TranscriptionID == "" {
			return
		}
		if err := lib.Load(ctx); err != nil {
			log.Warn("failed to refresh transcript list", zap.Error(err))
		}
	}
	workerPool.Start(ctx)
	defer workerPool.Stop()

	cleanupScheduler := cleanup.NewScheduler(sessions, cleanup.Options{
		TempDir:     cfg.Storage.TempDir,
		Interval:    time.Duration(cfg.Cleanup.IntervalMinutes) * time.Minute,
		MaxFileAge:  time.Duration(cfg.Cleanup.MaxAgeHours) * time.Hour,
		SessionIdle: cfg.SessionIdle(),
		Logger:      log.Named("cleanup"),
	})
	cleanupScheduler.Start()
	defer cleanupScheduler.Stop()

	app := handlers.NewApp(handlers.Deps{
		Auth:        backend.Session,
		Library:     lib,
		Sessions:    sessions,
		Preferences: prefs,
		Exporter:    exporter,
		WorkerPool:  workerPool,
		Logs:        logBuffer,
		Logger:      log,
		Layout: handlers.ListLayout{
			RowHeight:      cfg.Library.RowHeight,
			ViewportHeight: cfg.Library.ViewportHeight,
		},
		TempDir:    cfg.Storage.TempDir,
		MaxSizeMB:  cfg.Limits.MaxFileSizeMB,
		HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout()},
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down gracefully")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Warn("shutdown failed", zap.Error(err))
		}
	}()

	addr := cfg.Address()
	log.Info("server starting",
		zap.String("addr", addr),
		zap.String("auth_url", cfg.Services.AuthURL),
		zap.String("diarization_url", cfg.Services.DiarizationURL))
	if err := app.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
