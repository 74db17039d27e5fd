package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"deckstamp/internal/http/middleware"
	"deckstamp/internal/pipeline"
)

// errorPayload is the body of every non-2xx JSON response.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// kindStatus is the single mapping from pipeline failure kinds to HTTP codes.
var kindStatus = map[pipeline.Kind]int{
	pipeline.KindEmptyLabel:          fiber.StatusBadRequest,
	pipeline.KindUnsupportedInput:    fiber.StatusBadRequest,
	pipeline.KindValidation:          fiber.StatusBadRequest,
	pipeline.KindPayloadTooLarge:     fiber.StatusRequestEntityTooLarge,
	pipeline.KindRendererUnavailable: fiber.StatusInternalServerError,
	pipeline.KindRendering:           fiber.StatusInternalServerError,
	pipeline.KindInternal:            fiber.StatusInternalServerError,
}

func requestIDFromCtx(c *fiber.Ctx) string {
	id, _ := c.Locals(middleware.RequestIDLocalKey).(string)
	return id
}

// writeError sends the envelope. message must already be safe to show.
func writeError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(errorPayload{
		RequestID: requestIDFromCtx(c),
		Error:     errorEnvelope{Code: code, Message: message},
	})
}

// writePipelineError renders a conversion failure. Only the caller-safe
// message of a *pipeline.Error is exposed.
func writePipelineError(c *fiber.Ctx, err error) error {
	var pe *pipeline.Error
	if !errors.As(err, &pe) {
		return writeError(c, fiber.StatusInternalServerError, string(pipeline.KindInternal), "Processing failed.")
	}
	status, ok := kindStatus[pe.Kind]
	if !ok {
		status = fiber.StatusInternalServerError
	}
	return writeError(c, status, string(pe.Kind), pe.Message)
}

// ErrorHandler is the app-wide fallback for errors no handler rendered,
// including fiber's own routing and body-limit failures. maxUploadBytes is
// quoted in the 413 message.
func ErrorHandler(maxUploadBytes int64) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			status = e.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, string(pipeline.KindPayloadTooLarge), pipeline.TooLargeMessage(maxUploadBytes))
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
