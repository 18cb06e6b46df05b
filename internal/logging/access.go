package logging

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys shared by the edge handler and the request middlewares.
const (
	LocalRequestID = "request_id"
	LocalZone      = "edge_zone"
	LocalRule      = "edge_rule"
)

// AccessLog logs one line per request. The request id stays internal: it is
// never added to the relayed response.
func AccessLog(log *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := uuid.NewString()
		c.Locals(LocalRequestID, id)
		start := time.Now()

		err := c.Next()
		// Run the error handler here so the logged status is the one the
		// client gets.
		if err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()

		level := slog.LevelInfo
		if err != nil || status >= 500 {
			level = slog.LevelWarn
		}
		attrs := []any{
			"request_id", id,
			"method", c.Method(),
			"host", string(c.Request().Host()),
			"path", c.Path(),
			"status", status,
			"zone", LocalString(c, LocalZone),
			"rule", LocalString(c, LocalRule),
			"duration_ms", time.Since(start).Milliseconds(),
			"ip", c.IP(),
		}
		if err != nil {
			attrs = append(attrs, "error", err.Error())
		}
		log.Log(c.UserContext(), level, "request", attrs...)
		return nil
	}
}

// LocalString reads a string local, "" when unset.
func LocalString(c *fiber.Ctx, key string) string {
	s, _ := c.Locals(key).(string)
	return s
}
