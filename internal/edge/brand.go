package edge

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"edgerouter/internal/upstream"
)

// brandRule is one step of the canonical domain chain. A nil response with
// a nil error means the rule does not apply and the next one is tried.
type brandRule struct {
	name   string
	handle func(ctx context.Context, c Classification, req *Request) (*Response, error)
}

// pageRule covers the HTML page families served from the primary origin:
// the path gets .html appended, and only a 200 is served. Anything else
// falls through to the next rule.
type pageRule struct {
	name  string
	match func(path string) bool
	// contentType empty means relay the upstream headers unchanged.
	contentType  string
	cacheControl string
}

var cityPage = regexp.MustCompile(`^/[^/]+/creation-site-internet-[^/]+$`)

var pageRules = []pageRule{
	{
		name:         "city-page",
		match:        cityPage.MatchString,
		contentType:  TypeHTML,
		cacheControl: CacheHour,
	},
	{
		name: "hub-page",
		match: func(path string) bool {
			return strings.HasPrefix(path, "/departement-") || strings.HasPrefix(path, "/region-")
		},
		contentType: TypeHTML,
	},
	{
		name: "legacy-page",
		match: func(path string) bool {
			return strings.HasPrefix(path, "/creation-site-internet-") && !strings.Contains(path[1:], "/")
		},
	},
}

const robotsFallback = "User-agent: *\nAllow: /\n\nSitemap: https://%s/sitemap.xml"

func (r *Router) brandRules() []brandRule {
	rules := []brandRule{
		{"canonical-redirect", r.canonicalRedirect},
		{"functions", r.functions},
		{"sitemap", r.sitemap},
		{"robots", r.robots},
		{"assets", r.assets},
	}
	for _, p := range pageRules {
		rules = append(rules, brandRule{p.name, r.page(p)})
	}
	return rules
}

func (r *Router) routeBrand(ctx context.Context, c Classification, req *Request) (*Response, error) {
	for _, rule := range r.brand {
		resp, err := rule.handle(ctx, c, req)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			if resp.Rule == "" {
				resp.Rule = rule.name
			}
			return resp, nil
		}
	}
	return r.fallback(ctx, req)
}

func (r *Router) canonicalRedirect(_ context.Context, c Classification, req *Request) (*Response, error) {
	if c.Host != "www."+r.sites.CanonicalHost {
		return nil, nil
	}
	return redirect("https://"+r.sites.CanonicalHost+req.Path+req.search(), ""), nil
}

func (r *Router) functions(ctx context.Context, _ Classification, req *Request) (*Response, error) {
	if !strings.HasPrefix(req.Path, r.sites.FunctionsPrefix) {
		return nil, nil
	}

	if req.Method == http.MethodOptions {
		h := http.Header{}
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		return &Response{Status: http.StatusNoContent, Header: h, Rule: "functions-preflight"}, nil
	}

	res, err := r.fetcher.Fetch(ctx, &upstream.Request{
		Method: req.Method,
		URL:    r.sites.PrimaryOrigin + req.Path + req.search(),
		Header: req.Header,
		Body:   req.Body,
	})
	if err != nil {
		return nil, err
	}
	return relay(res, "functions-proxy"), nil
}

func (r *Router) sitemap(ctx context.Context, _ Classification, req *Request) (*Response, error) {
	if req.Path != "/sitemap.xml" {
		return nil, nil
	}
	res, err := r.fetcher.Fetch(ctx, upstream.Get(r.sites.PrimaryOrigin+"/sitemap.xml"))
	if err != nil {
		return nil, err
	}
	return reheader(res, res.Status, TypeXML, CacheDay, ""), nil
}

func (r *Router) robots(ctx context.Context, _ Classification, req *Request) (*Response, error) {
	if req.Path != "/robots.txt" {
		return nil, nil
	}
	res, err := r.fetcher.Fetch(ctx, upstream.Get(r.sites.PrimaryOrigin+"/robots.txt"))
	if err != nil {
		return nil, err
	}
	if res.Status == http.StatusOK {
		return relay(res, ""), nil
	}

	h := http.Header{}
	h.Set("Content-Type", TypeText)
	return &Response{
		Status: http.StatusOK,
		Header: h,
		Body:   []byte(RobotsFallback(r.sites.CanonicalHost)),
		Rule:   "robots-fallback",
	}, nil
}

// RobotsFallback is served when the primary origin has no robots.txt.
func RobotsFallback(canonicalHost string) string {
	return fmt.Sprintf(robotsFallback, canonicalHost)
}

func (r *Router) assets(ctx context.Context, _ Classification, req *Request) (*Response, error) {
	if !strings.HasPrefix(req.Path, "/assets/") {
		return nil, nil
	}
	res, err := r.fetcher.Fetch(ctx, upstream.Get(r.sites.PrimaryOrigin+req.Path))
	if err != nil {
		return nil, err
	}
	if res.Status == http.StatusOK {
		return reheader(res, http.StatusOK, ContentType(req.Path), CacheWeek, ""), nil
	}

	res, err = r.fetcher.Fetch(ctx, upstream.Get(r.sites.SecondaryOrigin+req.Path))
	if err != nil {
		return nil, err
	}
	return relay(res, "assets-fallback"), nil
}

func (r *Router) page(p pageRule) func(context.Context, Classification, *Request) (*Response, error) {
	return func(ctx context.Context, _ Classification, req *Request) (*Response, error) {
		if !p.match(req.Path) {
			return nil, nil
		}
		res, err := r.fetcher.Fetch(ctx, upstream.Get(r.sites.PrimaryOrigin+withHTML(req.Path)))
		if err != nil {
			return nil, err
		}
		if res.Status != http.StatusOK {
			return nil, nil
		}
		if p.contentType == "" {
			return relay(res, ""), nil
		}
		return reheader(res, http.StatusOK, p.contentType, p.cacheControl, ""), nil
	}
}

// fallback sends everything no rule claimed to the secondary origin.
func (r *Router) fallback(ctx context.Context, req *Request) (*Response, error) {
	res, err := r.fetcher.Fetch(ctx, upstream.Get(r.sites.SecondaryOrigin+req.Path+req.search()))
	if err != nil {
		return nil, err
	}
	return relay(res, "default"), nil
}

func withHTML(path string) string {
	if strings.HasSuffix(path, ".html") {
		return path
	}
	return path + ".html"
}
