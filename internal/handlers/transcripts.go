package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/library"
	"github.com/codebuildervaibhav/transcript-console/internal/storage"
)

// Preferences is the local preference and search-history store.
type Preferences interface {
	Get(ctx context.Context, key string) (storage.Preference, bool, error)
	Set(ctx context.Context, key, value string) error
	AddSearch(ctx context.Context, query string) error
	RecentSearches(ctx context.Context) ([]string, error)
}

// ListLayout sets how the transcript list is paged when the client sends no viewport.
type ListLayout struct {
	RowHeight      int
	ViewportHeight int
}

// TranscriptsHandler serves the transcription list
type TranscriptsHandler struct {
	lib      *library.Library
	sessions *editor.Registry
	prefs    Preferences
	layout   ListLayout
	logger   *zap.Logger
}

// NewTranscriptsHandler creates a new transcript list handler. prefs may be nil.
func NewTranscriptsHandler(lib *library.Library, sessions *editor.Registry, prefs Preferences, layout ListLayout, logger *zap.Logger) *TranscriptsHandler {
	return &TranscriptsHandler{
		lib:      lib,
		sessions: sessions,
		prefs:    prefs,
		layout:   layout,
		logger:   logger,
	}
}

const dateLayout = "2006-01-02"

// List reloads the list and returns one page of it.
func (h *TranscriptsHandler) List(c *fiber.Ctx) error {
	var from, to time.Time
	var err error
	if v := c.Query("from"); v != "" {
		if from, err = time.Parse(dateLayout, v); err != nil {
			return badRequest(c, "from must be YYYY-MM-DD", "ERR_INVALID_DATE")
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = time.Parse(dateLayout, v); err != nil {
			return badRequest(c, "to must be YYYY-MM-DD", "ERR_INVALID_DATE")
		}
	}

	if err := h.lib.Load(c.UserContext()); err != nil {
		return respondError(c, err)
	}

	query := c.Query("q")
	if query != "" && h.prefs != nil {
		if err := h.prefs.AddSearch(c.UserContext(), query); err != nil {
			h.logger.Warn("failed to record search", zap.Error(err))
		}
	}

	items := library.FilterByName(library.FilterByDate(h.lib.Items(), from, to), query)
	size := library.PageSize(c.QueryInt("viewport", h.layout.ViewportHeight), h.layout.RowHeight)
	page := library.Paginate(items, c.QueryInt("page", 1), size)

	return c.JSON(fiber.Map{
		"items":     page.Items,
		"page":      page.Page,
		"pages":     page.Pages,
		"total":     page.Total,
		"page_size": size,
		"active":    h.lib.Active(),
	})
}

// RenameRequest represents the rename body. Commit sends the rename
// immediately, as when the name field loses focus.
type RenameRequest struct {
	Name   string `json:"name"`
	Commit bool   `json:"commit"`
}

// Rename updates a transcript name.
func (h *TranscriptsHandler) Rename(c *fiber.Ctx) error {
	var req RenameRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	id := c.Params("id")
	if err := h.lib.Rename(id, req.Name); err != nil {
		return respondError(c, err)
	}
	sent := false
	if req.Commit {
		sent = h.lib.Blur(id)
	}
	return c.JSON(fiber.Map{
		"id":      id,
		"pending": !sent,
	})
}

// Delete removes one transcript and closes its editing sessions.
func (h *TranscriptsHandler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")
	away, err := h.lib.Delete(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}
	closed := h.sessions.CloseTranscript(id)
	return c.JSON(fiber.Map{
		"deleted":         []string{id},
		"navigate_away":   away,
		"sessions_closed": closed,
	})
}

// BulkDeleteRequest represents the bulk delete body
type BulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// DeleteMany removes several transcripts and reports partial failures.
func (h *TranscriptsHandler) DeleteMany(c *fiber.Ctx) error {
	var req BulkDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if len(req.IDs) == 0 {
		return badRequest(c, "ids are required", "ERR_NO_IDS")
	}

	away, err := h.lib.DeleteMany(c.UserContext(), req.IDs)
	failed := map[string]bool{}
	var partial *library.PartialFailureError
	if err != nil {
		if !errors.As(err, &partial) {
			return respondError(c, err)
		}
		for _, id := range partial.Failed {
			failed[id] = true
		}
	}

	deleted := make([]string, 0, len(req.IDs))
	for _, id := range req.IDs {
		if !failed[id] {
			h.sessions.CloseTranscript(id)
			deleted = append(deleted, id)
		}
	}

	status := fiber.StatusOK
	body := fiber.Map{
		"deleted":       deleted,
		"navigate_away": away,
	}
	if partial != nil {
		status = fiber.StatusMultiStatus
		body["failed"] = partial.Failed
		body["error"] = partial.Error()
		body["code"] = "ERR_PARTIAL_FAILURE"
	}
	return c.Status(status).JSON(body)
}
