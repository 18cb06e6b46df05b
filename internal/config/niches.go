package config

import (
	"fmt"
	"os"
	"strings"

	"edgerouter/internal/edge"

	"gopkg.in/yaml.v3"
)

// nichesFile is the on-disk shape of NICHES_FILE:
//
//	niches:
//	  - domain: sites-restaurants.fr
//	    niche: restaurant
//	    demo: la-table-des-halles
type nichesFile struct {
	Niches []struct {
		Domain string `yaml:"domain"`
		Niche  string `yaml:"niche"`
		Demo   string `yaml:"demo"`
	} `yaml:"niches"`
}

// LoadNiches reads the niche table. Order in the file is the match order.
func LoadNiches(path string) ([]edge.Niche, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read niches file: %w", err)
	}
	return parseNiches(b)
}

func parseNiches(b []byte) ([]edge.Niche, error) {
	var doc nichesFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse niches file: %w", err)
	}
	if len(doc.Niches) == 0 {
		return nil, fmt.Errorf("niches file declares no niches")
	}

	out := make([]edge.Niche, 0, len(doc.Niches))
	for _, n := range doc.Niches {
		out = append(out, edge.Niche{
			Domain: strings.ToLower(strings.TrimSpace(n.Domain)),
			Name:   strings.TrimSpace(n.Niche),
			Demo:   strings.TrimSpace(n.Demo),
		})
	}
	return out, nil
}
