package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// ErrUpstream marks a failed call to an origin.
var ErrUpstream = errors.New("upstream request failed")

// ErrorHandler answers 504 when an origin timed out and 502 for any other
// upstream failure. Errors raised by fiber itself keep their status and
// anything else, a recovered panic included, is a 500.
func ErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		var fe *fiber.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case errors.Is(err, context.DeadlineExceeded):
			code = fiber.StatusGatewayTimeout
		case errors.Is(err, ErrUpstream):
			code = fiber.StatusBadGateway
		}

		if code >= 500 {
			log.Error("request failed", "host", sanitizeLogInput(string(c.Request().Host())), "path", sanitizeLogInput(c.Path()), "status", code, "error", err)
		}

		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
		return c.Status(code).SendString(http.StatusText(code))
	}
}
