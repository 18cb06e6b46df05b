package handlers

import (
	"time"

	"edgerouter/internal/edge"
	"edgerouter/internal/health"

	"github.com/gofiber/fiber/v2"
)

func Healthz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Status reports the latest probe results. A nil checker means probing is
// disabled and yields an empty list.
func Status(checker *health.Checker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		results := []health.Result{}
		if checker != nil {
			results = checker.Latest()
		}

		ok := true
		for _, r := range results {
			if !r.OK {
				ok = false
				break
			}
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(fiber.Map{
			"ok":           ok,
			"probes":       results,
			"generated_at": time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// TLSAsk is the endpoint Caddy's on_demand_tls queries before issuing a
// certificate: 200 for hosts the network serves, 404 for everything else.
func TLSAsk(sites edge.Sites) fiber.Handler {
	return func(c *fiber.Ctx) error {
		domain := c.Query("domain")
		if !validateDomain(domain) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid domain"})
		}
		cl := sites.Classify(domain)
		if cl.Zone == edge.ZoneCatchAll {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "unknown domain"})
		}
		return c.JSON(fiber.Map{"domain": cl.Host, "zone": cl.Zone})
	}
}
