package health

import (
	"fmt"
	"net/http"

	"edgerouter/internal/edge"
)

// Sample pages on the canonical domain that must always be routable.
const (
	samplePage = "/haute-garonne/creation-site-internet-toulouse"
	sampleHub  = "/departement-haute-garonne"
)

type Probe struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Expected int    `json:"expected"`
}

// DefaultProbes lists the public URLs that prove the whole network is
// routed: the canonical site, its sitemap and sample silo pages, then for
// each niche its sitemap, its apex redirect and one demo tenant. Redirects
// are followed, so the apex probe expects the canonical home page's 200.
func DefaultProbes(sites edge.Sites) []Probe {
	base := "https://" + sites.CanonicalHost
	probes := []Probe{
		{Name: "canonical-root", URL: base + "/", Expected: http.StatusOK},
		{Name: "canonical-sitemap", URL: base + "/sitemap.xml", Expected: http.StatusOK},
		{Name: "canonical-city-page", URL: base + samplePage, Expected: http.StatusOK},
		{Name: "canonical-hub-page", URL: base + sampleHub, Expected: http.StatusOK},
	}

	for _, n := range sites.Niches {
		probes = append(probes,
			Probe{Name: n.Name + "-sitemap", URL: fmt.Sprintf("https://%s/sitemap.xml", n.Domain), Expected: http.StatusOK},
			Probe{Name: n.Name + "-redirect", URL: fmt.Sprintf("https://%s", n.Domain), Expected: http.StatusOK},
		)
		if n.Demo != "" {
			probes = append(probes, Probe{
				Name:     n.Name + "-demo",
				URL:      fmt.Sprintf("https://%s.%s/", n.Demo, n.Domain),
				Expected: http.StatusOK,
			})
		}
	}
	return probes
}
