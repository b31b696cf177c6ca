package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/codebuildervaibhav/transcript-console/internal/apiclient"
	"github.com/codebuildervaibhav/transcript-console/internal/editor"
	"github.com/codebuildervaibhav/transcript-console/internal/library"
	"github.com/codebuildervaibhav/transcript-console/internal/queue"
	"github.com/codebuildervaibhav/transcript-console/internal/types"
)

// errorStatus maps an error to an HTTP status and an error code.
func errorStatus(err error) (int, string) {
	var (
		verr    *types.ValidationError
		apiErr  *apiclient.APIError
		partial *library.PartialFailureError
		rename  *editor.RenameError
	)
	switch {
	case errors.As(err, &verr):
		return fiber.StatusBadRequest, "ERR_VALIDATION"
	case errors.Is(err, apiclient.ErrSessionExpired):
		return fiber.StatusUnauthorized, "ERR_SESSION_EXPIRED"
	case errors.Is(err, apiclient.ErrNotAuthenticated):
		return fiber.StatusUnauthorized, "ERR_NOT_AUTHENTICATED"
	case errors.Is(err, editor.ErrSessionNotFound):
		return fiber.StatusNotFound, "ERR_SESSION_NOT_FOUND"
	case errors.Is(err, editor.ErrSessionClosed):
		return fiber.StatusGone, "ERR_SESSION_CLOSED"
	case errors.Is(err, editor.ErrSegmentNotFound), errors.Is(err, editor.ErrNotFocused):
		return fiber.StatusNotFound, "ERR_SEGMENT_NOT_FOUND"
	case errors.Is(err, editor.ErrSpeakerMismatch):
		return fiber.StatusConflict, "ERR_SPEAKER_MISMATCH"
	case errors.Is(err, library.ErrUnknownTranscript), errors.Is(err, apiclient.ErrNotFound):
		return fiber.StatusNotFound, "ERR_NOT_FOUND"
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrPoolStopped):
		return fiber.StatusServiceUnavailable, "ERR_QUEUE_UNAVAILABLE"
	case errors.As(err, &partial):
		return fiber.StatusMultiStatus, "ERR_PARTIAL_FAILURE"
	case errors.As(err, &rename):
		return fiber.StatusBadGateway, "ERR_RENAME_FAILED"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == fiber.StatusUnauthorized {
			return fiber.StatusUnauthorized, "ERR_UNAUTHORIZED"
		}
		return fiber.StatusBadGateway, "ERR_BACKEND"
	default:
		return fiber.StatusInternalServerError, "ERR_INTERNAL"
	}
}

// respondError writes err as {"error", "code"}.
func respondError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	body := fiber.Map{
		"error": err.Error(),
		"code":  code,
	}
	var partial *library.PartialFailureError
	if errors.As(err, &partial) {
		body["failed"] = partial.Failed
	}
	return c.Status(status).JSON(body)
}

func badRequest(c *fiber.Ctx, msg, code string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}
