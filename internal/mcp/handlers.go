package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"edgerouter/internal/edge"
	"edgerouter/internal/health"

	"github.com/mark3labs/mcp-go/mcp"
)

const defaultPreviewBytes = 2048

type handlers struct {
	router       *edge.Router
	probeTimeout time.Duration
	log          *slog.Logger
}

func (h *handlers) classifyHost(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	host, _ := req.GetArguments()["host"].(string)
	if strings.TrimSpace(host) == "" {
		return mcp.NewToolResultError("host cannot be empty"), nil
	}
	return jsonResult(ClassificationToDTO(h.router.Sites().Classify(host)))
}

func (h *handlers) routeRequest(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()

	raw, _ := args["url"].(string)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return mcp.NewToolResultError(fmt.Sprintf("invalid url %q: an absolute http(s) URL is required", raw)), nil
	}

	method := http.MethodGet
	if m, _ := args["method"].(string); m != "" {
		method = strings.ToUpper(m)
	}
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
	default:
		return mcp.NewToolResultError(fmt.Sprintf("method %s is not allowed, use GET, HEAD or OPTIONS", method)), nil
	}

	preview := defaultPreviewBytes
	if p, ok := args["preview_bytes"]; ok {
		if v, err := toInt(p); err == nil && v >= 0 {
			preview = v
		}
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	resp, err := h.router.Route(ctx, &edge.Request{
		Method:   method,
		Host:     u.Host,
		Path:     path,
		RawQuery: u.RawQuery,
		Header:   http.Header{"User-Agent": {"edgerouter-mcp"}},
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("upstream failure: %v", err)), nil
	}

	return jsonResult(RouteToDTO(method, raw, resp, preview))
}

func (h *handlers) runProbes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	sites := h.router.Sites()

	if niche, _ := args["niche"].(string); niche != "" {
		n, ok := sites.NicheByName(niche)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown niche %q", niche)), nil
		}
		sites.Niches = []edge.Niche{n}
	}
	failuresOnly, _ := args["failures_only"].(bool)

	checker := health.NewChecker(health.DefaultProbes(sites), time.Minute, h.probeTimeout, "", "", 0, h.log)
	results := checker.RunOnce(ctx)

	out := make([]ProbeResultDTO, 0, len(results))
	for _, r := range results {
		if failuresOnly && r.OK {
			continue
		}
		out = append(out, ProbeResultToDTO(r))
	}
	return jsonResult(out)
}

func (h *handlers) listNiches(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	niches := h.router.Sites().Niches
	out := make([]NicheDTO, 0, len(niches))
	for _, n := range niches {
		out = append(out, NicheToDTO(n))
	}
	return jsonResult(out)
}

func toInt(v any) (int, error) {
	switch val := v.(type) {
	case float64:
		return int(val), nil
	case int:
		return val, nil
	case string:
		return strconv.Atoi(val)
	case json.Number:
		n, err := val.Int64()
		return int(n), err
	default:
		return 0, fmt.Errorf("cannot convert %T to int", v)
	}
}

func jsonResult(data any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to serialize result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}
