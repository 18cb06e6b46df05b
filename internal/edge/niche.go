package edge

import (
	"context"
	"fmt"
	"strings"

	"edgerouter/internal/upstream"
)

const (
	CacheDay  = "public, max-age=86400"
	CacheHour = "public, max-age=3600"
	CacheWeek = "public, max-age=604800"
)

func (r *Router) routeNiche(ctx context.Context, c Classification, req *Request) (*Response, error) {
	if req.Path == "/sitemap.xml" && c.IsNicheApex() {
		target := fmt.Sprintf("%s/sitemaps/sitemap-%s.xml", r.sites.PrimaryOrigin, c.Niche)
		res, err := r.fetcher.Fetch(ctx, upstream.Get(target))
		if err != nil {
			return nil, err
		}
		return reheader(res, res.Status, TypeXML, CacheDay, "niche-sitemap"), nil
	}

	if !c.IsTenant() {
		return redirect("https://"+r.sites.CanonicalHost, "niche-redirect"), nil
	}

	target := DemoPath(req.Path)
	res, err := r.fetcher.Fetch(ctx, upstream.Get(DemoURL(r.sites.PrimaryOrigin, c.Niche, c.BrandSlug, target)))
	if err != nil {
		return nil, err
	}
	return reheader(res, res.Status, ContentType(target), CacheHour, "niche-demo"), nil
}

// DemoPath maps a tenant path to the file served for it: the root becomes
// /index.html and extension-less paths gain .html.
func DemoPath(path string) string {
	switch {
	case path == "/" || path == "":
		return "/index.html"
	case !strings.Contains(path, "."):
		return path + ".html"
	default:
		return path
	}
}

func DemoURL(origin, niche, slug, target string) string {
	return fmt.Sprintf("%s/demos/%s/%s%s", origin, niche, slug, target)
}
