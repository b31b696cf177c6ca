package handlers

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/queue"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// StreamHandler receives recorded audio over a WebSocket and queues it for processing
type StreamHandler struct {
	workerPool *queue.WorkerPool
	tempDir    string
	maxBytes   int
	logger     *zap.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(workerPool *queue.WorkerPool, tempDir string, maxSizeMB int, logger *zap.Logger) *StreamHandler {
	return &StreamHandler{
		workerPool: workerPool,
		tempDir:    tempDir,
		maxBytes:   maxSizeMB * 1024 * 1024,
		logger:     logger,
	}
}

// Handle reads binary audio chunks until an "END" text frame. Any other short
// text frame sets the recording name.
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	var (
		buffer      bytes.Buffer
		requestName string
	)

	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			h.logger.Debug("stream read error", zap.Error(err))
			break
		}

		if messageType == websocket.TextMessage {
			msg := string(message)
			if msg == "END" {
				break
			}
			if len(msg) > 0 && len(msg) < 200 {
				requestName = msg
			}
			continue
		}

		if messageType == websocket.BinaryMessage {
			if buffer.Len()+len(message) > h.maxBytes {
				c.WriteJSON(map[string]string{
					"error": fmt.Sprintf("Stream too large (max %dMB)", h.maxBytes/(1024*1024)),
					"code":  "ERR_FILE_TOO_LARGE",
				})
				return
			}
			buffer.Write(message)
		}
	}

	if buffer.Len() == 0 {
		h.logger.Debug("no audio data received in stream")
		return
	}
	if requestName == "" {
		requestName = "stream_recording"
	}

	if err := os.MkdirAll(h.tempDir, 0755); err != nil {
		h.logger.Error("failed to create temp directory", zap.Error(err))
		return
	}
	job := queue.NewJob(requestName, "")
	job.FilePath = filepath.Join(h.tempDir, job.ID+".webm")
	if err := os.WriteFile(job.FilePath, buffer.Bytes(), 0644); err != nil {
		h.logger.Error("failed to save stream buffer", zap.Error(err))
		return
	}
	h.logger.Info("stream saved", zap.String("path", job.FilePath), zap.Int("bytes", buffer.Len()))

	if err := h.workerPool.Enqueue(job); err != nil {
		os.Remove(job.FilePath)
		_, code := errorStatus(err)
		c.WriteJSON(map[string]string{"error": err.Error(), "code": code})
		return
	}
	c.WriteJSON(map[string]string{"job_id": job.ID, "status": types.StatusQueued})
}
