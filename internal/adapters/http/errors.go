package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/propertypulse/propertypulse/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, parse_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errFromDomain maps service errors onto HTTP statuses. Unknown errors are
// logged and hidden behind a 500.
func errFromDomain(c *fiber.Ctx, err error) error {
	var pe *domain.ParseError
	var mc *domain.MissingColumnsError

	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return errNotFound(c, "session not found")
	case errors.Is(err, domain.ErrExportNotFound):
		return errNotFound(c, "export not found or expired")
	case errors.Is(err, domain.ErrUnsupportedFileType):
		return newError(c, 415, "unsupported_file_type", domain.UserMessage(err))
	case errors.As(err, &pe):
		return newError(c, 422, "parse_error", pe.Error())
	case errors.As(err, &mc):
		return newError(c, 422, "missing_columns", mc.Error())
	case errors.Is(err, domain.ErrNoDataset):
		return errConflict(c, "no dataset loaded; upload a CSV first")
	case errors.Is(err, domain.ErrEmptySelection):
		return errConflict(c, domain.UserMessage(err))
	case errors.Is(err, domain.ErrRecordIndex),
		errors.Is(err, domain.ErrInvalidUnit),
		errors.Is(err, domain.ErrInvalidRadius):
		return errBadRequest(c, err.Error())
	case errors.Is(err, domain.ErrExportsDisabled):
		return newError(c, 503, "unavailable", err.Error())
	default:
		LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
		return errInternal(c, "internal error")
	}
}
