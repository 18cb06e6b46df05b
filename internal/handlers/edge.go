package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"

	"edgerouter/internal/edge"
	"edgerouter/internal/logging"

	"github.com/gofiber/fiber/v2"
)

// Edge answers every request on the edge listener through the router. The
// router's response is written verbatim: no header is added or rewritten.
func Edge(router *edge.Router) fiber.Handler {
	return func(c *fiber.Ctx) error {
		req := &edge.Request{
			Method:   c.Method(),
			Host:     string(c.Request().Host()),
			Path:     requestPath(c),
			RawQuery: string(c.Request().URI().QueryString()),
			Header:   requestHeader(c),
			Body:     bytes.Clone(c.Body()),
		}

		resp, err := router.Route(c.Context(), req)
		if err != nil {
			c.Locals(logging.LocalZone, string(router.Sites().Classify(req.Host).Zone))
			return fmt.Errorf("%w: %w", ErrUpstream, err)
		}

		c.Locals(logging.LocalZone, string(resp.Zone))
		c.Locals(logging.LocalRule, resp.Rule)

		for k, vs := range resp.Header {
			for _, v := range vs {
				c.Response().Header.Add(k, v)
			}
		}
		c.Status(resp.Status)
		return c.Send(resp.Body)
	}
}

// requestPath returns the decoded, dot-resolved path fasthttp derives from
// the request-target, re-escaped for use in an upstream URL. c.Path() is the
// raw target and may lack the leading slash.
func requestPath(c *fiber.Ctx) string {
	return (&url.URL{Path: string(c.Request().URI().Path())}).EscapedPath()
}

func requestHeader(c *fiber.Ctx) http.Header {
	h := http.Header{}
	c.Request().Header.VisitAll(func(k, v []byte) {
		h.Add(string(k), string(v))
	})
	return h
}
