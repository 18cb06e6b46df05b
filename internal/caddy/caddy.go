package caddy

import (
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"

	"edgerouter/internal/edge"
)

// sanitizeDomain strips characters that could break or inject blocks into a
// Caddyfile: newlines, backticks, and curly braces.
func sanitizeDomain(domain string) string {
	replacer := strings.NewReplacer(
		"\n", "",
		"\r", "",
		"`", "",
		"{", "",
		"}", "",
	)
	return strings.TrimSpace(replacer.Replace(domain))
}

// ProxyTarget turns a listen address into something reverse_proxy can dial.
// ":8080" becomes "localhost:8080".
func ProxyTarget(listenAddr string) string {
	host, port, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return listenAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}

type runFunc func(name string, args ...string) ([]byte, error)

func execRun(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

type Manager struct {
	CaddyfilePath string
	AcmeEmail     string
	mu            sync.Mutex
	run           runFunc
}

func NewManager(caddyfilePath string, acmeEmail string) *Manager {
	if caddyfilePath == "" {
		caddyfilePath = "/etc/caddy/Caddyfile"
	}
	return &Manager{CaddyfilePath: caddyfilePath, AcmeEmail: acmeEmail, run: execRun}
}

// Generate builds the Caddyfile that terminates TLS for the whole network
// and hands every request to the edge listener at upstream. Certificates are
// issued on demand; Caddy asks askURL before each issuance.
func (m *Manager) Generate(sites edge.Sites, upstream, askURL string) (string, error) {
	canonical := sanitizeDomain(sites.CanonicalHost)
	if canonical == "" {
		return "", fmt.Errorf("canonical host is required")
	}
	if strings.ContainsAny(upstream, " \n\r{}") || upstream == "" {
		return "", fmt.Errorf("invalid upstream address %q", upstream)
	}

	var b strings.Builder

	b.WriteString("{\n")
	if m.AcmeEmail != "" {
		b.WriteString(fmt.Sprintf("\temail %s\n", sanitizeDomain(m.AcmeEmail)))
	}
	if askURL != "" {
		b.WriteString("\ton_demand_tls {\n")
		b.WriteString(fmt.Sprintf("\t\task %s\n", askURL))
		b.WriteString("\t}\n")
	}
	b.WriteString("}\n\n")

	writeSite(&b, []string{canonical, "www." + canonical}, upstream, false)

	for _, n := range sites.Niches {
		domain := sanitizeDomain(n.Domain)
		if domain == "" {
			continue
		}
		writeSite(&b, []string{domain, "*." + domain}, upstream, askURL != "")
	}

	return b.String(), nil
}

func writeSite(b *strings.Builder, addrs []string, upstream string, onDemand bool) {
	b.WriteString(fmt.Sprintf("%s {\n", strings.Join(addrs, ", ")))
	if onDemand {
		b.WriteString("\ttls {\n")
		b.WriteString("\t\ton_demand\n")
		b.WriteString("\t}\n")
	}
	b.WriteString("\tencode zstd gzip\n")
	b.WriteString(fmt.Sprintf("\treverse_proxy %s\n", upstream))
	b.WriteString("}\n\n")
}

// Write validates content with `caddy validate` and moves it into place.
func (m *Manager) Write(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(content)
}

func (m *Manager) write(content string) error {
	tmpPath := m.CaddyfilePath + ".tmp"
	if err := os.WriteFile(tmpPath, []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write Caddyfile: %w", err)
	}

	out, err := m.run("caddy", "validate", "--adapter", "caddyfile", "--config", tmpPath)
	if err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("Caddyfile validation failed: %w\n%s", err, string(out))
	}

	if err := os.Rename(tmpPath, m.CaddyfilePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move Caddyfile into place: %w", err)
	}
	return nil
}

// Reload writes content and tells the running Caddy to pick it up.
func (m *Manager) Reload(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.write(content); err != nil {
		return err
	}

	out, err := m.run("caddy", "reload", "--adapter", "caddyfile", "--config", m.CaddyfilePath)
	if err != nil {
		return fmt.Errorf("Caddy reload failed: %w\n%s", err, string(out))
	}
	return nil
}
