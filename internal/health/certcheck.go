package health

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"edgerouter/internal/edge"
)

type CertResult struct {
	Domain   string    `json:"domain"`
	NotAfter time.Time `json:"not_after,omitempty"`
	DaysLeft int       `json:"days_left"`
	Error    string    `json:"error,omitempty"`
}

// CertDomains returns the apex hosts that must present a valid certificate:
// the canonical domain, its www alias and every niche apex.
func CertDomains(sites edge.Sites) []string {
	out := []string{sites.CanonicalHost, "www." + sites.CanonicalHost}
	for _, n := range sites.Niches {
		out = append(out, n.Domain)
	}
	return out
}

// CertExpiry dials addr (host:port) over TLS and returns the leaf
// certificate's expiry. cfg may be nil.
func CertExpiry(ctx context.Context, addr string, cfg *tls.Config) (time.Time, error) {
	d := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: 10 * time.Second},
		Config:    cfg,
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return time.Time{}, fmt.Errorf("TLS dial failed for %s: %w", addr, err)
	}
	defer conn.Close()

	certs := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return time.Time{}, fmt.Errorf("no certificates returned for %s", addr)
	}
	return certs[0].NotAfter, nil
}

// CheckCerts looks up the certificate of every domain on port 443.
func CheckCerts(ctx context.Context, domains []string) []CertResult {
	now := time.Now()
	out := make([]CertResult, 0, len(domains))
	for _, d := range domains {
		r := CertResult{Domain: d}
		notAfter, err := CertExpiry(ctx, net.JoinHostPort(d, "443"), nil)
		if err != nil {
			r.Error = err.Error()
		} else {
			r.NotAfter = notAfter
			r.DaysLeft = int(notAfter.Sub(now).Hours() / 24)
		}
		out = append(out, r)
	}
	return out
}
