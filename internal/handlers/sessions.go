package handlers

import (
	"context"
	"runtime"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/library"
	"github.com/codebuildervaibhav/transcript-console/internal/storage"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// Exporter writes an edited transcript out of the console.
type Exporter interface {
	Export(ctx context.Context, tr *types.Transcript, toDrive bool) (storage.ExportResult, error)
}

// SessionsHandler serves the transcript editor
type SessionsHandler struct {
	sessions *editor.Registry
	lib      *library.Library
	exporter Exporter
	logger   *zap.Logger
}

// NewSessionsHandler creates a new editor handler. exporter may be nil.
func NewSessionsHandler(sessions *editor.Registry, lib *library.Library, exporter Exporter, logger *zap.Logger) *SessionsHandler {
	return &SessionsHandler{
		sessions: sessions,
		lib:      lib,
		exporter: exporter,
		logger:   logger,
	}
}

// OpenRequest represents the open-session body
type OpenRequest struct {
	TranscriptID string `json:"transcript_id"`
}

// Open loads a transcript into a new editing session.
func (h *SessionsHandler) Open(c *fiber.Ctx) error {
	var req OpenRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	if strings.TrimSpace(req.TranscriptID) == "" {
		return badRequest(c, "transcript_id is required", "ERR_NO_TRANSCRIPT")
	}

	s, err := h.sessions.Open(c.UserContext(), req.TranscriptID)
	if err != nil {
		return respondError(c, err)
	}
	h.lib.SetActive(req.TranscriptID)
	return c.Status(fiber.StatusCreated).JSON(s.Snapshot())
}

// List returns the open sessions, most recently active first.
func (h *SessionsHandler) List(c *fiber.Ctx) error {
	open := h.sessions.List()
	out := make([]fiber.Map, 0, len(open))
	for _, s := range open {
		out = append(out, fiber.Map{
			"session_id":    s.ID,
			"transcript_id": s.TranscriptID(),
			"state":         s.State(),
			"last_active":   s.LastActive(),
		})
	}
	return c.JSON(out)
}

// Get returns the current view of a session.
func (h *SessionsHandler) Get(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(s.Snapshot())
}

// Close ends a session, cancelling any save in flight.
func (h *SessionsHandler) Close(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := h.sessions.Close(s.ID); err != nil {
		return respondError(c, err)
	}
	if h.lib.Active() == s.TranscriptID() {
		h.lib.SetActive("")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// SegmentRequest addresses one segment; Text is used by Input.
type SegmentRequest struct {
	SegmentID string `json:"segment_id"`
	Text      string `json:"text"`
}

// Focus starts tracking a segment.
func (h *SessionsHandler) Focus(c *fiber.Ctx) error {
	var req SegmentRequest
	if err := c.BodyParser(&req); err != nil || req.SegmentID == "" {
		return badRequest(c, "segment_id is required", "ERR_NO_SEGMENT")
	}
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Focus(req.SegmentID); err != nil {
		return respondError(c, err)
	}
	return h.state(c, s)
}

// Input records the edited text of a segment.
func (h *SessionsHandler) Input(c *fiber.Ctx) error {
	var req SegmentRequest
	if err := c.BodyParser(&req); err != nil || req.SegmentID == "" {
		return badRequest(c, "segment_id is required", "ERR_NO_SEGMENT")
	}
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Input(req.SegmentID, req.Text); err != nil {
		return respondError(c, err)
	}
	return h.state(c, s)
}

// Save triggers a manual save.
func (h *SessionsHandler) Save(c *fiber.Ctx) error {
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if err := s.Save(c.UserContext()); err != nil {
		return respondError(c, err)
	}
	return h.state(c, s)
}

// KeyRequest is a key chord pressed in the editor.
type KeyRequest struct {
	Key      string `json:"key"`
	Platform string `json:"platform"`
}

// Key handles the platform save shortcut.
func (h *SessionsHandler) Key(c *fiber.Ctx) error {
	var req KeyRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}
	if req.Platform == "" {
		req.Platform = runtime.GOOS
	}
	handled, err := s.HandleKey(c.UserContext(), req.Key, req.Platform)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"handled": handled,
		"state":   s.State(),
	})
}

// SpeakerRequest renames a speaker everywhere, or in one segment when
// SegmentID is set.
type SpeakerRequest struct {
	SegmentID string `json:"segment_id"`
	OldName   string `json:"old_name"`
	NewName   string `json:"new_name"`
}

// RenameSpeaker renames a speaker.
func (h *SessionsHandler) RenameSpeaker(c *fiber.Ctx) error {
	var req SpeakerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
	}
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}

	changed := []string{}
	if req.SegmentID != "" {
		ok, err := s.RenameSegmentSpeaker(req.SegmentID, req.OldName, req.NewName)
		if err != nil {
			return respondError(c, err)
		}
		if ok {
			changed = append(changed, req.SegmentID)
		}
	} else {
		ids, err := s.RenameSpeaker(req.OldName, req.NewName)
		if err != nil {
			return respondError(c, err)
		}
		changed = append(changed, ids...)
	}

	return c.JSON(fiber.Map{
		"changed":  changed,
		"speakers": s.Speakers(),
		"state":    s.State(),
	})
}

// ExportRequest represents the export body
type ExportRequest struct {
	Drive bool `json:"drive"`
}

// Export writes the session's current transcript out.
func (h *SessionsHandler) Export(c *fiber.Ctx) error {
	if h.exporter == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{
			"error": "Export is not configured",
			"code":  "ERR_EXPORT_DISABLED",
		})
	}
	var req ExportRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Invalid request body", "ERR_INVALID_BODY")
		}
	}
	s, err := h.session(c)
	if err != nil {
		return respondError(c, err)
	}

	res, err := h.exporter.Export(c.UserContext(), s.Snapshot().Transcript, req.Drive)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *SessionsHandler) session(c *fiber.Ctx) (*editor.Session, error) {
	return h.sessions.Get(c.Params("id"))
}

func (h *SessionsHandler) state(c *fiber.Ctx, s *editor.Session) error {
	view := s.Snapshot()
	return c.JSON(fiber.Map{
		"state":  view.State,
		"saving": view.Saving,
		"dirty":  view.Dirty,
	})
}
