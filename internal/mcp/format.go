package mcptools

import (
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"edgerouter/internal/edge"
	"edgerouter/internal/health"
)

type ClassificationDTO struct {
	Host      string `json:"host"`
	Zone      string `json:"zone"`
	Domain    string `json:"domain,omitempty"`
	Niche     string `json:"niche,omitempty"`
	BrandSlug string `json:"brand_slug,omitempty"`
	Tenant    bool   `json:"tenant"`
}

type RouteDTO struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Zone        string            `json:"zone"`
	Rule        string            `json:"rule"`
	Status      int               `json:"status"`
	Headers     map[string]string `json:"headers"`
	BodyBytes   int               `json:"body_bytes"`
	BodyPreview string            `json:"body_preview,omitempty"`
}

type NicheDTO struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Sitemap string `json:"sitemap"`
	Demo    string `json:"demo,omitempty"`
}

type ProbeResultDTO struct {
	Name      string `json:"name"`
	URL       string `json:"url"`
	Status    int    `json:"status"`
	Expected  int    `json:"expected"`
	OK        bool   `json:"ok"`
	LatencyMs int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
	CheckedAt string `json:"checked_at"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func ClassificationToDTO(c edge.Classification) ClassificationDTO {
	return ClassificationDTO{
		Host:      c.Host,
		Zone:      string(c.Zone),
		Domain:    c.Domain,
		Niche:     c.Niche,
		BrandSlug: c.BrandSlug,
		Tenant:    c.IsTenant(),
	}
}

// RouteToDTO flattens headers and keeps at most previewBytes of a text body.
func RouteToDTO(method, url string, r *edge.Response, previewBytes int) RouteDTO {
	dto := RouteDTO{
		Method:    method,
		URL:       url,
		Zone:      string(r.Zone),
		Rule:      r.Rule,
		Status:    r.Status,
		Headers:   flattenHeader(r.Header),
		BodyBytes: len(r.Body),
	}
	if previewBytes > 0 && utf8.Valid(r.Body) {
		body := r.Body
		if len(body) > previewBytes {
			body = body[:previewBytes]
		}
		dto.BodyPreview = string(body)
	}
	return dto
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vs := range h {
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

func NicheToDTO(n edge.Niche) NicheDTO {
	dto := NicheDTO{
		Name:    n.Name,
		Domain:  n.Domain,
		Sitemap: fmt.Sprintf("https://%s/sitemap.xml", n.Domain),
	}
	if n.Demo != "" {
		dto.Demo = fmt.Sprintf("https://%s.%s/", n.Demo, n.Domain)
	}
	return dto
}

func ProbeResultToDTO(r health.Result) ProbeResultDTO {
	return ProbeResultDTO{
		Name:      r.Name,
		URL:       r.URL,
		Status:    r.Status,
		Expected:  r.Expected,
		OK:        r.OK,
		LatencyMs: r.LatencyMs,
		Error:     r.Error,
		CheckedAt: formatTime(r.CheckedAt),
	}
}
