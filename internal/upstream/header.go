package upstream

import (
	"net/http"
	"strings"
)

// hopHeaders are connection-scoped and never cross the router.
var hopHeaders = []string{
	"Connection",
	"Proxy-Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// StripHopHeaders removes hop-by-hop headers in place, including any listed
// in the Connection header itself.
func StripHopHeaders(h http.Header) {
	for _, f := range h.Values("Connection") {
		for _, name := range strings.Split(f, ",") {
			if name = strings.TrimSpace(name); name != "" {
				h.Del(name)
			}
		}
	}
	for _, name := range hopHeaders {
		h.Del(name)
	}
}

// RelayHeader copies an upstream header set for a verbatim relay. Framing
// headers are dropped since the server recomputes them.
func RelayHeader(src http.Header) http.Header {
	h := src.Clone()
	if h == nil {
		h = http.Header{}
	}
	StripHopHeaders(h)
	h.Del("Content-Length")
	return h
}
