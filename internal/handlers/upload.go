package handlers

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/queue"
	"github.com/codebuildervaibhav/transcript-console/internal/transcription"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// UploadHandler handles audio uploads and job status
type UploadHandler struct {
	workerPool *queue.WorkerPool
	tempDir    string
	maxSizeMB  int
	logger     *zap.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(workerPool *queue.WorkerPool, tempDir string, maxSizeMB int, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		workerPool: workerPool,
		tempDir:    tempDir,
		maxSizeMB:  maxSizeMB,
		logger:     logger,
	}
}

// Handle processes the upload request
func (h *UploadHandler) Handle(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "No file uploaded", "ERR_NO_FILE")
	}

	requestName := c.FormValue("name")
	if requestName == "" {
		requestName = file.Filename
	}

	maxSize := int64(h.maxSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		return badRequest(c, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	if !transcription.ValidateAudioFormat(file.Filename) {
		return badRequest(c, "Unsupported audio format", "ERR_INVALID_FORMAT")
	}

	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		return respondError(c, err)
	}
	job := queue.NewJob(requestName, "")
	job.FilePath = filepath.Join(h.tempDir, job.ID+filepath.Ext(file.Filename))

	if err := c.SaveFile(file, job.FilePath); err != nil {
		h.logger.Error("failed to save uploaded file", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save file",
			"code":  "ERR_SAVE_FAILED",
		})
	}

	if err := h.workerPool.Enqueue(job); err != nil {
		os.Remove(job.FilePath)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  types.StatusQueued,
		"message": "File uploaded successfully, processing started",
	})
}

// Job returns the status of one job.
func (h *UploadHandler) Job(c *fiber.Ctx) error {
	job, ok := h.workerPool.Job(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Job not found",
			"code":  "ERR_JOB_NOT_FOUND",
		})
	}
	return c.JSON(job)
}

// Jobs lists every known job, newest first.
func (h *UploadHandler) Jobs(c *fiber.Ctx) error {
	return c.JSON(h.workerPool.Jobs())
}
