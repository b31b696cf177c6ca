package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/queue"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

var (
	gdriveFilePattern = regexp.MustCompile(`/file/d/([a-zA-Z0-9_-]+)`)
	gdriveIDParam     = regexp.MustCompile(`[?&]id=([a-zA-Z0-9_-]+)`)
	gdriveBareID      = regexp.MustCompile(`^([a-zA-Z0-9_-]{25,40})$`)
)

// GDriveHandler imports audio shared as a Google Drive link
type GDriveHandler struct {
	workerPool  *queue.WorkerPool
	httpClient  *http.Client
	tempDir     string
	maxSizeMB   int
	downloadURL string
	logger      *zap.Logger
}

// NewGDriveHandler creates a new Google Drive import handler
func NewGDriveHandler(workerPool *queue.WorkerPool, httpClient *http.Client, tempDir string, maxSizeMB int, logger *zap.Logger) *GDriveHandler {
	return &GDriveHandler{
		workerPool:  workerPool,
		httpClient:  httpClient,
		tempDir:     tempDir,
		maxSizeMB:   maxSizeMB,
		downloadURL: "https://drive.google.com/uc?export=download&id=%s",
		logger:      logger,
	}
}

// GDriveRequest represents the request body
type GDriveRequest struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// Handle downloads the linked file and queues it for processing.
func (h *GDriveHandler) Handle(c *fiber.Ctx) error {
	var req GDriveRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if req.URL == "" {
		return badRequest(c, "URL is required", "ERR_NO_URL")
	}

	fileID := extractGDriveFileID(req.URL)
	if fileID == "" {
		return badRequest(c, "Invalid Google Drive URL", "ERR_INVALID_URL")
	}
	if req.Name == "" {
		req.Name = "gdrive_file"
	}

	httpReq, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, fmt.Sprintf(h.downloadURL, fileID), nil)
	if err != nil {
		return respondError(c, err)
	}
	h.logger.Info("downloading from google drive", zap.String("file_id", fileID))
	resp, err := h.httpClient.Do(httpReq)
	if err != nil {
		h.logger.Warn("google drive download failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Failed to download file from Google Drive",
			"code":  "ERR_DOWNLOAD_FAILED",
		})
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return badRequest(c, "File not accessible (may be private or doesn't exist)", "ERR_FILE_NOT_ACCESSIBLE")
	}

	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		return respondError(c, err)
	}
	job := queue.NewJob(req.Name, "")
	job.FilePath = filepath.Join(h.tempDir, job.ID+".mp3")

	out, err := os.Create(job.FilePath)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save downloaded file",
			"code":  "ERR_SAVE_FAILED",
		})
	}
	limit := int64(h.maxSizeMB) * 1024 * 1024
	n, err := io.Copy(out, io.LimitReader(resp.Body, limit+1))
	out.Close()
	if err != nil {
		os.Remove(job.FilePath)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to write downloaded file",
			"code":  "ERR_WRITE_FAILED",
		})
	}
	if n > limit {
		os.Remove(job.FilePath)
		return badRequest(c, fmt.Sprintf("File too large (max %dMB)", h.maxSizeMB), "ERR_FILE_TOO_LARGE")
	}

	if err := h.workerPool.Enqueue(job); err != nil {
		os.Remove(job.FilePath)
		return respondError(c, err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":  job.ID,
		"status":  types.StatusQueued,
		"message": "Google Drive file downloaded, processing started",
	})
}

// extractGDriveFileID extracts the file ID from various Google Drive URL formats
func extractGDriveFileID(url string) string {
	// https://drive.google.com/file/d/{ID}/view
	if m := gdriveFilePattern.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	// https://drive.google.com/open?id={ID}
	if m := gdriveIDParam.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	if m := gdriveBareID.FindStringSubmatch(url); len(m) > 1 {
		return m[1]
	}
	return ""
}
