// Package edge classifies inbound requests by hostname and path and decides,
// for each one, which origin to fetch, which headers to attach, or which
// redirect to issue.
//
// A Router holds no mutable state. Everything it decides derives from the
// request and from the Sites value it was built with.
package edge

import (
	"fmt"
	"net/url"
	"strings"
)

const (
	DefaultCanonicalHost   = "agence-web-locale.fr"
	DefaultPrimaryOrigin   = "https://sitewen.netlify.app"
	DefaultSecondaryOrigin = "https://sitewen.lovable.app"
	DefaultFunctionsPrefix = "/.netlify/functions/"
)

// Niche ties a vertical marketing domain to its niche identifier.
type Niche struct {
	Domain string
	Name   string
	// Demo is a sample tenant slug on this niche. Routing ignores it; the
	// network probes use it to hit a real demo site.
	Demo string
}

// Sites is the static configuration the router is built from.
type Sites struct {
	Niches          []Niche
	CanonicalHost   string
	PrimaryOrigin   string
	SecondaryOrigin string
	FunctionsPrefix string
}

func DefaultNiches() []Niche {
	return []Niche{
		{Domain: "sites-restaurants.fr", Name: "restaurant", Demo: "la-table-des-halles"},
		{Domain: "sitesartisans.fr", Name: "artisan", Demo: "artisan-express"},
		{Domain: "sites-beaute.fr", Name: "beaute", Demo: "espace-beaute"},
		{Domain: "sites-immobiliers.fr", Name: "immo", Demo: "immo-pro"},
		{Domain: "sites-avocats.fr", Name: "avocat", Demo: "cabinet-avocat"},
		{Domain: "sites-sante.fr", Name: "sante", Demo: "sante-plus"},
	}
}

func DefaultSites() Sites {
	return Sites{
		Niches:          DefaultNiches(),
		CanonicalHost:   DefaultCanonicalHost,
		PrimaryOrigin:   DefaultPrimaryOrigin,
		SecondaryOrigin: DefaultSecondaryOrigin,
		FunctionsPrefix: DefaultFunctionsPrefix,
	}
}

// Validate reports the first inconsistency found. Niche domains must be
// disjoint: no domain may equal or sit under another, nor under the
// canonical host.
func (s Sites) Validate() error {
	if s.CanonicalHost == "" {
		return fmt.Errorf("canonical host is required")
	}
	if err := validateOrigin("primary", s.PrimaryOrigin); err != nil {
		return err
	}
	if err := validateOrigin("secondary", s.SecondaryOrigin); err != nil {
		return err
	}
	if !strings.HasPrefix(s.FunctionsPrefix, "/") {
		return fmt.Errorf("functions prefix %q must start with /", s.FunctionsPrefix)
	}

	for i, n := range s.Niches {
		if n.Domain == "" || n.Name == "" {
			return fmt.Errorf("niche %d: domain and name are required", i)
		}
		if n.Domain != strings.ToLower(n.Domain) {
			return fmt.Errorf("niche domain %q must be lower case", n.Domain)
		}
		if within(s.CanonicalHost, n.Domain) || within(n.Domain, s.CanonicalHost) {
			return fmt.Errorf("niche domain %q overlaps canonical host %q", n.Domain, s.CanonicalHost)
		}
		for _, other := range s.Niches[:i] {
			if within(n.Domain, other.Domain) || within(other.Domain, n.Domain) {
				return fmt.Errorf("niche domains %q and %q overlap", other.Domain, n.Domain)
			}
		}
	}
	return nil
}

// clone detaches the niche table so later edits by the caller cannot leak
// into a running router.
func (s Sites) clone() Sites {
	s.Niches = append([]Niche(nil), s.Niches...)
	s.PrimaryOrigin = strings.TrimSuffix(s.PrimaryOrigin, "/")
	s.SecondaryOrigin = strings.TrimSuffix(s.SecondaryOrigin, "/")
	return s
}

// NicheByName looks a niche up by its identifier.
func (s Sites) NicheByName(name string) (Niche, bool) {
	for _, n := range s.Niches {
		if n.Name == name {
			return n, true
		}
	}
	return Niche{}, false
}

func within(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}

func validateOrigin(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s origin: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s origin %q: scheme must be http or https", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s origin %q: missing host", name, raw)
	}
	if u.RawQuery != "" || (u.Path != "" && u.Path != "/") {
		return fmt.Errorf("%s origin %q: must be a bare base URL", name, raw)
	}
	return nil
}
