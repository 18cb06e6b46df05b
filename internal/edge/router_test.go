package edge

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"

	"edgerouter/internal/upstream"
)

const (
	primary   = "https://primary.test"
	secondary = "https://secondary.test"
)

// fakeFetcher answers from a URL table and records every call. Unknown URLs
// get a 404.
type fakeFetcher struct {
	responses map[string]*upstream.Response
	err       error
	calls     []*upstream.Request
}

func (f *fakeFetcher) Fetch(_ context.Context, req *upstream.Request) (*upstream.Response, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if res, ok := f.responses[req.URL]; ok {
		return res, nil
	}
	return &upstream.Response{Status: http.StatusNotFound, Header: http.Header{}, Body: []byte("not found")}, nil
}

func (f *fakeFetcher) urls() []string {
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.URL)
	}
	return out
}

func ok(body string, header ...string) *upstream.Response {
	h := http.Header{}
	for i := 0; i+1 < len(header); i += 2 {
		h.Add(header[i], header[i+1])
	}
	return &upstream.Response{Status: http.StatusOK, Header: h, Body: []byte(body)}
}

func testSites() Sites {
	s := DefaultSites()
	s.PrimaryOrigin = primary
	s.SecondaryOrigin = secondary + "/"
	return s
}

func route(t *testing.T, f *fakeFetcher, method, host, path, query string) *Response {
	t.Helper()
	r := NewRouter(testSites(), f)
	resp, err := r.Route(context.Background(), &Request{Method: method, Host: host, Path: path, RawQuery: query, Header: http.Header{}})
	if err != nil {
		t.Fatalf("Route(%s %s%s): %v", method, host, path, err)
	}
	return resp
}

func TestNicheSitemap_EveryNiche(t *testing.T) {
	for _, n := range DefaultNiches() {
		for _, host := range []string{n.Domain, "www." + n.Domain} {
			f := &fakeFetcher{}
			resp := route(t, f, http.MethodGet, host, "/sitemap.xml", "")

			want := []string{primary + "/sitemaps/sitemap-" + n.Name + ".xml"}
			if diff := cmp.Diff(want, f.urls()); diff != "" {
				t.Errorf("%s: fetched URLs mismatch (-want +got):\n%s", host, diff)
			}
			if resp.Status != http.StatusNotFound {
				t.Errorf("%s: upstream status should be preserved, got %d", host, resp.Status)
			}
			if resp.Header.Get("Content-Type") != TypeXML || resp.Header.Get("Cache-Control") != CacheDay {
				t.Errorf("%s: unexpected headers %v", host, resp.Header)
			}
		}
	}
}

func TestNicheSitemap_ScenarioBeaute(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		primary + "/sitemaps/sitemap-beaute.xml": ok("<urlset/>", "Content-Type", "text/plain", "Set-Cookie", "x=1"),
	}}
	resp := route(t, f, http.MethodGet, "sites-beaute.fr", "/sitemap.xml", "")

	if resp.Status != http.StatusOK || string(resp.Body) != "<urlset/>" {
		t.Errorf("unexpected response %d %q", resp.Status, resp.Body)
	}
	want := http.Header{
		"Content-Type":  {"application/xml; charset=UTF-8"},
		"Cache-Control": {"public, max-age=86400"},
	}
	if diff := cmp.Diff(want, resp.Header); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if resp.Zone != ZoneNiche || resp.Rule != "niche-sitemap" {
		t.Errorf("unexpected zone/rule %q/%q", resp.Zone, resp.Rule)
	}
}

func TestNicheApex_RedirectsToCanonical(t *testing.T) {
	cases := []string{"sites-avocats.fr", "www.sites-avocats.fr"}
	for _, host := range cases {
		f := &fakeFetcher{}
		resp := route(t, f, http.MethodGet, host, "/some/page?x=1", "")
		if resp.Status != http.StatusMovedPermanently {
			t.Errorf("%s: expected 301, got %d", host, resp.Status)
		}
		if loc := resp.Header.Get("Location"); loc != "https://agence-web-locale.fr" {
			t.Errorf("%s: expected redirect to canonical root, got %q", host, loc)
		}
		if len(f.calls) != 0 {
			t.Errorf("%s: redirect must not call upstream, got %v", host, f.urls())
		}
	}
}

func TestNicheDemo_Rewrites(t *testing.T) {
	cases := []struct {
		host, path string
		wantURL    string
		wantType   string
	}{
		{"salon.sites-beaute.fr", "/contact", primary + "/demos/beaute/salon/contact.html", TypeHTML},
		{"salon.sites-beaute.fr", "/", primary + "/demos/beaute/salon/index.html", TypeHTML},
		{"salon.sites-beaute.fr", "", primary + "/demos/beaute/salon/index.html", TypeHTML},
		{"bistro.sites-restaurants.fr", "/img/logo.png", primary + "/demos/restaurant/bistro/img/logo.png", "image/png"},
		{"bistro.sites-restaurants.fr", "/sitemap.xml", primary + "/demos/restaurant/bistro/sitemap.xml", TypeXML},
		{"bistro.sites-restaurants.fr", "/archive.zip", primary + "/demos/restaurant/bistro/archive.zip", TypeDefault},
	}
	for _, tc := range cases {
		f := &fakeFetcher{responses: map[string]*upstream.Response{tc.wantURL: ok("page")}}
		resp := route(t, f, http.MethodGet, tc.host, tc.path, "")

		if diff := cmp.Diff([]string{tc.wantURL}, f.urls()); diff != "" {
			t.Errorf("%s%s: fetched URLs mismatch (-want +got):\n%s", tc.host, tc.path, diff)
		}
		if resp.Status != http.StatusOK || string(resp.Body) != "page" {
			t.Errorf("%s%s: unexpected response %d %q", tc.host, tc.path, resp.Status, resp.Body)
		}
		if got := resp.Header.Get("Content-Type"); got != tc.wantType {
			t.Errorf("%s%s: content type %q, want %q", tc.host, tc.path, got, tc.wantType)
		}
		if got := resp.Header.Get("Cache-Control"); got != CacheHour {
			t.Errorf("%s%s: cache control %q, want %q", tc.host, tc.path, got, CacheHour)
		}
	}
}

func TestNicheDemo_RelaysUpstreamStatus(t *testing.T) {
	f := &fakeFetcher{}
	resp := route(t, f, http.MethodGet, "ghost.sites-sante.fr", "/missing", "")
	if resp.Status != http.StatusNotFound {
		t.Errorf("expected upstream 404 to be relayed, got %d", resp.Status)
	}
	if resp.Header.Get("Cache-Control") != CacheHour {
		t.Errorf("demo responses always carry the hour cache directive")
	}
}

func TestBrand_WWWRedirectKeepsPathAndQuery(t *testing.T) {
	f := &fakeFetcher{}
	resp := route(t, f, http.MethodGet, "www.agence-web-locale.fr", "/foo", "x=1")
	if resp.Status != http.StatusMovedPermanently {
		t.Fatalf("expected 301, got %d", resp.Status)
	}
	if loc := resp.Header.Get("Location"); loc != "https://agence-web-locale.fr/foo?x=1" {
		t.Errorf("unexpected Location %q", loc)
	}
	if resp.Rule != "canonical-redirect" || len(f.calls) != 0 {
		t.Errorf("rule %q, calls %v", resp.Rule, f.urls())
	}
}

func TestBrand_FunctionsPreflight(t *testing.T) {
	f := &fakeFetcher{}
	resp := route(t, f, http.MethodOptions, "agence-web-locale.fr", "/.netlify/functions/contact", "")

	if resp.Status != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.Status)
	}
	want := http.Header{
		"Access-Control-Allow-Origin":  {"*"},
		"Access-Control-Allow-Methods": {"GET, POST, OPTIONS"},
		"Access-Control-Allow-Headers": {"Content-Type"},
	}
	if diff := cmp.Diff(want, resp.Header); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
	if len(f.calls) != 0 {
		t.Errorf("preflight must not call upstream, got %v", f.urls())
	}
}

func TestBrand_FunctionsProxy(t *testing.T) {
	target := primary + "/.netlify/functions/contact?lang=fr"
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		target: {Status: http.StatusAccepted, Header: http.Header{"X-Fn": {"1"}, "Content-Length": {"2"}}, Body: []byte("ok")},
	}}
	r := NewRouter(testSites(), f)
	in := &Request{
		Method:   http.MethodPost,
		Host:     "agence-web-locale.fr",
		Path:     "/.netlify/functions/contact",
		RawQuery: "lang=fr",
		Header:   http.Header{"Content-Type": {"application/json"}},
		Body:     []byte(`{"email":"a@b.fr"}`),
	}
	resp, err := r.Route(context.Background(), in)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if len(f.calls) != 1 {
		t.Fatalf("expected one upstream call, got %v", f.urls())
	}
	call := f.calls[0]
	if call.Method != http.MethodPost || call.URL != target || string(call.Body) != `{"email":"a@b.fr"}` {
		t.Errorf("request not proxied verbatim: %+v", call)
	}
	if call.Header.Get("Content-Type") != "application/json" {
		t.Errorf("request headers should be forwarded")
	}
	if resp.Status != http.StatusAccepted || resp.Header.Get("X-Fn") != "1" || resp.Header.Get("Content-Length") != "" {
		t.Errorf("response should be relayed unmodified: %d %v", resp.Status, resp.Header)
	}
	if resp.Rule != "functions-proxy" {
		t.Errorf("unexpected rule %q", resp.Rule)
	}
}

func TestBrand_Sitemap(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{primary + "/sitemap.xml": ok("<urlset/>")}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/sitemap.xml", "")
	if resp.Status != http.StatusOK || resp.Header.Get("Content-Type") != TypeXML || resp.Header.Get("Cache-Control") != CacheDay {
		t.Errorf("unexpected sitemap response %d %v", resp.Status, resp.Header)
	}
}

func TestBrand_RobotsRelayedOn200(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		primary + "/robots.txt": ok("User-agent: *\nDisallow: /admin", "Content-Type", "text/plain"),
	}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/robots.txt", "")
	if string(resp.Body) != "User-agent: *\nDisallow: /admin" || resp.Header.Get("Content-Type") != "text/plain" {
		t.Errorf("robots.txt should be relayed verbatim, got %q %v", resp.Body, resp.Header)
	}
	if resp.Rule != "robots" {
		t.Errorf("unexpected rule %q", resp.Rule)
	}
}

func TestBrand_RobotsSynthesized(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		primary + "/robots.txt": {Status: http.StatusInternalServerError, Header: http.Header{}},
	}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/robots.txt", "")
	if resp.Status != http.StatusOK {
		t.Errorf("expected synthesized 200, got %d", resp.Status)
	}
	if string(resp.Body) != "User-agent: *\nAllow: /\n\nSitemap: https://agence-web-locale.fr/sitemap.xml" {
		t.Errorf("unexpected body %q", resp.Body)
	}
	if resp.Header.Get("Content-Type") != TypeText {
		t.Errorf("unexpected content type %q", resp.Header.Get("Content-Type"))
	}
}

func TestBrand_AssetsFromPrimary(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{primary + "/assets/app.css": ok("body{}")}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/assets/app.css", "v=2")

	if diff := cmp.Diff([]string{primary + "/assets/app.css"}, f.urls()); diff != "" {
		t.Errorf("assets must stop at the asset rule (-want +got):\n%s", diff)
	}
	if resp.Rule != "assets" {
		t.Errorf("unexpected rule %q", resp.Rule)
	}
	if resp.Header.Get("Content-Type") != "text/css; charset=UTF-8" || resp.Header.Get("Cache-Control") != CacheWeek {
		t.Errorf("unexpected headers %v", resp.Header)
	}
}

func TestBrand_AssetsFallBackToSecondary(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		secondary + "/assets/creation-site-internet-x.js": ok("x", "Content-Type", "text/javascript", "Cache-Control", "no-cache"),
	}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/assets/creation-site-internet-x.js", "")

	want := []string{primary + "/assets/creation-site-internet-x.js", secondary + "/assets/creation-site-internet-x.js"}
	if diff := cmp.Diff(want, f.urls()); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}
	if resp.Rule != "assets-fallback" || resp.Header.Get("Cache-Control") != "no-cache" {
		t.Errorf("secondary response should be relayed as is, rule %q headers %v", resp.Rule, resp.Header)
	}
}

func TestBrand_CityPage(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		primary + "/paris/creation-site-internet-boulanger.html": ok("<h1>Paris</h1>", "Cache-Control", "no-store"),
	}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/paris/creation-site-internet-boulanger", "")

	if resp.Rule != "city-page" {
		t.Fatalf("expected city-page rule, got %q", resp.Rule)
	}
	want := http.Header{"Content-Type": {TypeHTML}, "Cache-Control": {CacheHour}}
	if diff := cmp.Diff(want, resp.Header); diff != "" {
		t.Errorf("headers mismatch (-want +got):\n%s", diff)
	}
}

func TestBrand_CityPageExtraSegmentNotMatched(t *testing.T) {
	f := &fakeFetcher{}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/paris/other/creation-site-internet-boulanger", "")
	want := []string{secondary + "/paris/other/creation-site-internet-boulanger"}
	if diff := cmp.Diff(want, f.urls()); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}
	if resp.Rule != "default" {
		t.Errorf("expected default rule, got %q", resp.Rule)
	}
}

func TestBrand_CityPageMissFallsThrough(t *testing.T) {
	f := &fakeFetcher{}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/lyon/creation-site-internet-fleuriste.html", "utm=1")

	want := []string{
		primary + "/lyon/creation-site-internet-fleuriste.html",
		secondary + "/lyon/creation-site-internet-fleuriste.html?utm=1",
	}
	if diff := cmp.Diff(want, f.urls()); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}
	if resp.Rule != "default" || resp.Status != http.StatusNotFound {
		t.Errorf("expected default relay of secondary 404, got %q %d", resp.Rule, resp.Status)
	}
}

func TestBrand_HubPages(t *testing.T) {
	for _, path := range []string{"/departement-haute-garonne", "/region-occitanie.html"} {
		f := &fakeFetcher{responses: map[string]*upstream.Response{
			primary + withHTML(path): ok("hub", "Cache-Control", "max-age=60"),
		}}
		resp := route(t, f, http.MethodGet, "agence-web-locale.fr", path, "")
		if resp.Rule != "hub-page" {
			t.Errorf("%s: expected hub-page, got %q", path, resp.Rule)
		}
		want := http.Header{"Content-Type": {TypeHTML}}
		if diff := cmp.Diff(want, resp.Header); diff != "" {
			t.Errorf("%s: headers mismatch (-want +got):\n%s", path, diff)
		}
	}
}

func TestBrand_DepartementCityPathTriesBothRules(t *testing.T) {
	path := "/departement-x/creation-site-internet-y"
	f := &fakeFetcher{}
	route(t, f, http.MethodGet, "agence-web-locale.fr", path, "")

	want := []string{
		primary + path + ".html",
		primary + path + ".html",
		secondary + path,
	}
	if diff := cmp.Diff(want, f.urls()); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}
}

func TestBrand_LegacyPage(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		primary + "/creation-site-internet-toulouse.html": ok("legacy", "Content-Type", "text/html", "ETag", `"abc"`),
	}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/creation-site-internet-toulouse", "")
	if resp.Rule != "legacy-page" {
		t.Fatalf("expected legacy-page, got %q", resp.Rule)
	}
	if resp.Header.Get("ETag") != `"abc"` || resp.Header.Get("Content-Type") != "text/html" {
		t.Errorf("legacy pages are relayed verbatim, got %v", resp.Header)
	}
}

func TestBrand_DefaultFallback(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{
		secondary + "/faq?lang=fr": ok("faq", "X-Powered-By", "lovable"),
	}}
	resp := route(t, f, http.MethodGet, "agence-web-locale.fr", "/faq", "lang=fr")
	if resp.Rule != "default" || string(resp.Body) != "faq" || resp.Header.Get("X-Powered-By") != "lovable" {
		t.Errorf("unexpected default response %q %q %v", resp.Rule, resp.Body, resp.Header)
	}
	if resp.Zone != ZoneBrand {
		t.Errorf("unexpected zone %q", resp.Zone)
	}
}

func TestCatchAll_FetchesPrimaryWithoutQuery(t *testing.T) {
	f := &fakeFetcher{responses: map[string]*upstream.Response{primary + "/hello": ok("hi")}}
	resp := route(t, f, http.MethodGet, "unknown.example", "/hello", "a=b")
	if diff := cmp.Diff([]string{primary + "/hello"}, f.urls()); diff != "" {
		t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
	}
	if resp.Zone != ZoneCatchAll || resp.Rule != "catch-all" || string(resp.Body) != "hi" {
		t.Errorf("unexpected catch-all response %+v", resp)
	}
}

func TestRoute_PropagatesTransportErrors(t *testing.T) {
	boom := errors.New("dial tcp: connection refused")
	hosts := []string{"agence-web-locale.fr", "salon.sites-beaute.fr", "sites-beaute.fr", "other.example"}
	paths := []string{"/", "/sitemap.xml", "/robots.txt", "/assets/a.css", "/departement-x"}
	for _, host := range hosts {
		for _, path := range paths {
			f := &fakeFetcher{err: boom}
			r := NewRouter(testSites(), f)
			resp, err := r.Route(context.Background(), &Request{Method: http.MethodGet, Host: host, Path: path})
			if len(f.calls) == 0 {
				if err != nil || resp == nil {
					t.Errorf("%s%s: direct answers must not fail", host, path)
				}
				continue
			}
			if !errors.Is(err, boom) || resp != nil {
				t.Errorf("%s%s: expected transport error, got %v %v", host, path, resp, err)
			}
		}
	}
}

func TestNewRouter_CopiesSites(t *testing.T) {
	s := testSites()
	r := NewRouter(s, &fakeFetcher{})
	s.Niches[0].Name = "changed"
	if got := r.Sites().Niches[0].Name; got != "restaurant" {
		t.Errorf("router config leaked caller edits: %q", got)
	}
	if got := r.Sites().SecondaryOrigin; got != secondary {
		t.Errorf("trailing slash should be trimmed, got %q", got)
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"@evil.test/pwn", "/@evil.test/pwn"},
		{"/../other/index.html", "/other/index.html"},
		{"/a/./b/../c", "/a/c"},
		{"//evil.test/x", "/evil.test/x"},
		{"/contact/", "/contact/"},
		{"/assets/app.css", "/assets/app.css"},
	}
	for _, tc := range tests {
		if got := CleanPath(tc.in); got != tc.want {
			t.Errorf("CleanPath(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRoute_PathCannotChangeUpstreamHost(t *testing.T) {
	cases := []struct {
		name, host, path string
		want             []string
	}{
		{"catch-all", "unknown.example", "@evil.test/pwn", []string{primary + "/@evil.test/pwn"}},
		{"demo tenant", "salon.sites-beaute.fr", "/../other/index.html", []string{primary + "/demos/beaute/salon/other/index.html"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeFetcher{}
			route(t, f, http.MethodGet, tc.host, tc.path, "")
			if diff := cmp.Diff(tc.want, f.urls()); diff != "" {
				t.Errorf("fetched URLs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
