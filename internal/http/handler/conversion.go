package handler

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"deckstamp/internal/service"
)

// ConversionIDHeader carries the ledger id of a conversion.
const ConversionIDHeader = "X-Conversion-ID"

// Process godoc
// @Summary Stamp a name onto every slide and return the PDF
// @Accept multipart/form-data
// @Produce application/pdf
// @Param file formData file true ".pptx deck"
// @Param name formData string true "Label to stamp"
// @Success 200 {file} binary
// @Failure 400 {object} errorPayload
// @Failure 413 {object} errorPayload
// @Failure 500 {object} errorPayload
// @Router /process [post]
func Process(svc service.ConversionService, maxUploadBytes int64) fiber.Handler {
	return func(c *fiber.Ctx) error {
		label := c.FormValue("name")
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		// One byte past the ceiling is enough for the pipeline to reject it.
		data, err := io.ReadAll(io.LimitReader(f, maxUploadBytes+1))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_READ_ERROR", "cannot read uploaded file")
		}

		res, err := svc.Convert(c.UserContext(), service.ConvertInput{
			Filename: fh.Filename,
			Label:    label,
			Data:     data,
		})
		if err != nil {
			return writePipelineError(c, err)
		}

		c.Set(ConversionIDHeader, res.ID)
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, res.DownloadName))
		return c.Status(fiber.StatusOK).Send(res.PDF)
	}
}

// ListConversions godoc
// @Summary List recorded conversions, newest first
// @Produce json
// @Param limit query int false "Page size" default(10)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} service.ConversionListResult
// @Failure 400 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /conversions [get]
func ListConversions(svc service.ConversionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(res)
	}
}

// GetConversion godoc
// @Summary Get one recorded conversion
// @Produce json
// @Param id path string true "Conversion ID"
// @Success 200 {object} model.Conversion
// @Failure 400 {object} errorPayload
// @Failure 404 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /conversions/{id} [get]
func GetConversion(svc service.ConversionService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		conv, err := svc.Get(c.UserContext(), id)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(conv)
	}
}

func writeServiceError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "conversion not found")
	case errors.Is(err, service.ErrLedgerDisabled):
		return writeError(c, fiber.StatusServiceUnavailable, "LEDGER_DISABLED", "conversions ledger is not configured")
	default:
		return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
