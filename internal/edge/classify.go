package edge

import (
	"net"
	"strings"
)

type Zone string

const (
	ZoneNiche    Zone = "niche"
	ZoneBrand    Zone = "brand"
	ZoneCatchAll Zone = "catch-all"
)

// Classification is what the router knows about a host before looking at
// the path.
type Classification struct {
	Zone Zone
	Host string

	// Set for ZoneNiche only.
	Domain    string
	Niche     string
	BrandSlug string
}

// IsTenant reports whether the host is a customer subdomain of a niche,
// as opposed to the niche's own apex or www host.
func (c Classification) IsTenant() bool {
	return c.Zone == ZoneNiche && c.BrandSlug != "" && c.BrandSlug != "www" && c.BrandSlug != c.Domain
}

// IsNicheApex reports whether the host is exactly the niche domain or its
// www host.
func (c Classification) IsNicheApex() bool {
	return c.Zone == ZoneNiche && (c.Host == c.Domain || c.Host == "www."+c.Domain)
}

// NormalizeHost lower-cases a Host header value and drops any port and
// trailing dot.
func NormalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if strings.Contains(host, ":") {
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}
	return strings.TrimSuffix(host, ".")
}

// Classify picks the zone for a host. Niche domains are tried first, in
// table order, then the canonical host.
func (s Sites) Classify(host string) Classification {
	host = NormalizeHost(host)

	for _, n := range s.Niches {
		if !within(host, n.Domain) {
			continue
		}
		return Classification{
			Zone:      ZoneNiche,
			Host:      host,
			Domain:    n.Domain,
			Niche:     n.Name,
			BrandSlug: brandSlug(host, n.Domain),
		}
	}

	if host == s.CanonicalHost || host == "www."+s.CanonicalHost {
		return Classification{Zone: ZoneBrand, Host: host}
	}
	return Classification{Zone: ZoneCatchAll, Host: host}
}

func brandSlug(host, domain string) string {
	if host == domain {
		return ""
	}
	slug := strings.TrimSuffix(host, "."+domain)
	if slug != "www" {
		slug = strings.TrimSuffix(slug, ".www")
	}
	return slug
}
