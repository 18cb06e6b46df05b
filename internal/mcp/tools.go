package mcptools

import (
	"log/slog"
	"time"

	"edgerouter/internal/edge"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func RegisterTools(s *server.MCPServer, router *edge.Router, probeTimeout time.Duration, log *slog.Logger) {
	h := &handlers{router: router, probeTimeout: probeTimeout, log: log}

	s.AddTool(
		mcp.NewTool("classify_host",
			mcp.WithDescription("Classify a hostname into the niche, brand or catch-all zone and show the niche and brand slug it maps to."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithString("host", mcp.Required(), mcp.Description("Hostname, optionally with a port (e.g. salon.sites-beaute.fr)")),
		),
		h.classifyHost,
	)

	s.AddTool(
		mcp.NewTool("route_request",
			mcp.WithDescription("Route one request through the edge router against the live origins and report the zone, rule, status, headers and a body preview."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("url", mcp.Required(), mcp.Description("Absolute URL as a visitor would request it (e.g. https://sites-beaute.fr/sitemap.xml)")),
			mcp.WithString("method", mcp.Description("HTTP method (default GET). Only GET, HEAD and OPTIONS are allowed.")),
			mcp.WithNumber("preview_bytes", mcp.Description("Maximum body bytes to include (default 2048, 0 disables)")),
		),
		h.routeRequest,
	)

	s.AddTool(
		mcp.NewTool("run_probes",
			mcp.WithDescription("Run the network verification probes once: canonical pages, niche sitemaps, niche redirects and demo sites."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
			mcp.WithOpenWorldHintAnnotation(true),
			mcp.WithString("niche", mcp.Description("Only run probes for this niche identifier")),
			mcp.WithBoolean("failures_only", mcp.Description("Only return failing probes")),
		),
		h.runProbes,
	)

	s.AddTool(
		mcp.NewTool("list_niches",
			mcp.WithDescription("List the configured niche domains with their sitemap and demo URLs."),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithDestructiveHintAnnotation(false),
		),
		h.listNiches,
	)
}
