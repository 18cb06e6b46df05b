package edge

import (
	"context"
	"net/http"
	"path"
	"strings"

	"edgerouter/internal/upstream"
)

// Fetcher performs one outbound call. *upstream.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req *upstream.Request) (*upstream.Response, error)
}

// Request is the part of an inbound request the router looks at.
type Request struct {
	Method   string
	Host     string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

func (r *Request) search() string {
	if r.RawQuery == "" {
		return ""
	}
	return "?" + r.RawQuery
}

// Response is what the server writes back. Zone and Rule name the branch
// that produced it and are used for logs and metrics only.
type Response struct {
	Status int
	Header http.Header
	Body   []byte

	Zone Zone
	Rule string
}

type Router struct {
	sites   Sites
	fetcher Fetcher
	brand   []brandRule
}

// NewRouter copies sites, so the router is unaffected by later changes to
// the value passed in.
func NewRouter(sites Sites, fetcher Fetcher) *Router {
	r := &Router{
		sites:   sites.clone(),
		fetcher: fetcher,
	}
	r.brand = r.brandRules()
	return r
}

// Sites returns the configuration the router was built with.
func (r *Router) Sites() Sites {
	return r.sites.clone()
}

// Route produces the response for one request. The only error it returns is
// an upstream transport failure.
func (r *Router) Route(ctx context.Context, req *Request) (*Response, error) {
	c := r.sites.Classify(req.Host)

	clean := *req
	clean.Path = CleanPath(req.Path)
	req = &clean

	var (
		resp *Response
		err  error
	)
	switch c.Zone {
	case ZoneNiche:
		resp, err = r.routeNiche(ctx, c, req)
	case ZoneBrand:
		resp, err = r.routeBrand(ctx, c, req)
	default:
		resp, err = r.routeCatchAll(ctx, req)
	}
	if err != nil {
		return nil, err
	}
	resp.Zone = c.Zone
	return resp, nil
}

// CleanPath returns p rooted at "/" with dot segments and repeated slashes
// resolved. Every upstream URL is built as origin+path, so a path that does
// not start with "/" would change the URL's authority.
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	if p[0] != '/' {
		p = "/" + p
	}
	cleaned := path.Clean(p)
	if strings.HasSuffix(p, "/") && cleaned != "/" {
		cleaned += "/"
	}
	return cleaned
}

func (r *Router) routeCatchAll(ctx context.Context, req *Request) (*Response, error) {
	res, err := r.fetcher.Fetch(ctx, upstream.Get(r.sites.PrimaryOrigin+req.Path))
	if err != nil {
		return nil, err
	}
	return relay(res, "catch-all"), nil
}

// relay passes the upstream reply through as is.
func relay(res *upstream.Response, rule string) *Response {
	return &Response{
		Status: res.Status,
		Header: upstream.RelayHeader(res.Header),
		Body:   res.Body,
		Rule:   rule,
	}
}

// reheader keeps the upstream body but replaces every header with the
// router's own. An empty cacheControl leaves Cache-Control unset.
func reheader(res *upstream.Response, status int, contentType, cacheControl, rule string) *Response {
	h := http.Header{}
	h.Set("Content-Type", contentType)
	if cacheControl != "" {
		h.Set("Cache-Control", cacheControl)
	}
	return &Response{
		Status: status,
		Header: h,
		Body:   res.Body,
		Rule:   rule,
	}
}

func redirect(location, rule string) *Response {
	h := http.Header{}
	h.Set("Location", location)
	return &Response{
		Status: http.StatusMovedPermanently,
		Header: h,
		Rule:   rule,
	}
}
