package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"edgerouter/internal/edge"

	"github.com/joho/godotenv"
)

type Config struct {
	EdgeAddr        string
	AdminAddr       string
	PrimaryOrigin   string
	SecondaryOrigin string
	FunctionsPrefix string
	NichesFile      string
	UpstreamTimeout time.Duration
	TrustedProxies  []string
	MetricsEnabled  bool

	ProbeInterval  time.Duration
	ProbeTimeout   time.Duration
	WebhookURL     string
	WebhookFormat  string
	AlertThreshold int

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	CaddyfilePath string
	AcmeEmail     string

	// Sites is assembled from the origin settings and the niche table.
	Sites edge.Sites
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		EdgeAddr:        getEnv("EDGE_ADDR", ":8080"),
		AdminAddr:       getEnv("ADMIN_ADDR", "127.0.0.1:9090"),
		PrimaryOrigin:   getEnv("PRIMARY_ORIGIN", edge.DefaultPrimaryOrigin),
		SecondaryOrigin: getEnv("SECONDARY_ORIGIN", edge.DefaultSecondaryOrigin),
		FunctionsPrefix: getEnv("FUNCTIONS_PREFIX", edge.DefaultFunctionsPrefix),
		NichesFile:      getEnv("NICHES_FILE", ""),
		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),
		TrustedProxies:  getEnvList("TRUSTED_PROXIES"),
		MetricsEnabled:  getEnv("METRICS_ENABLED", "true") == "true",
		ProbeInterval:   getEnvDuration("PROBE_INTERVAL", 5*time.Minute),
		ProbeTimeout:    getEnvDuration("PROBE_TIMEOUT", 10*time.Second),
		WebhookURL:      getEnv("WEBHOOK_URL", ""),
		WebhookFormat:   getEnv("WEBHOOK_FORMAT", "discord"),
		AlertThreshold:  getEnvInt("ALERT_THRESHOLD", 3),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "json"),
		LogFile:         getEnv("LOG_FILE", ""),
		LogMaxSizeMB:    getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:   getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAgeDays:   getEnvInt("LOG_MAX_AGE_DAYS", 28),
		CaddyfilePath:   getEnv("CADDYFILE_PATH", "/etc/caddy/Caddyfile"),
		AcmeEmail:       getEnv("ACME_EMAIL", ""),
	}

	niches := edge.DefaultNiches()
	if cfg.NichesFile != "" {
		var err error
		niches, err = LoadNiches(cfg.NichesFile)
		if err != nil {
			return nil, err
		}
	}

	cfg.Sites = edge.Sites{
		Niches:          niches,
		CanonicalHost:   edge.DefaultCanonicalHost,
		PrimaryOrigin:   cfg.PrimaryOrigin,
		SecondaryOrigin: cfg.SecondaryOrigin,
		FunctionsPrefix: cfg.FunctionsPrefix,
	}
	if err := cfg.Sites.Validate(); err != nil {
		return nil, fmt.Errorf("invalid site configuration: %w", err)
	}

	if cfg.UpstreamTimeout <= 0 {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT must be positive")
	}
	if cfg.WebhookFormat != "discord" && cfg.WebhookFormat != "slack" {
		return nil, fmt.Errorf("WEBHOOK_FORMAT must be discord or slack, got %q", cfg.WebhookFormat)
	}

	if cfg.UpstreamTimeout > 30*time.Second {
		log.Printf("WARNING: UPSTREAM_TIMEOUT is %s, a stalled origin will hold requests that long", cfg.UpstreamTimeout)
	}
	if cfg.AdminAddr != "" && strings.HasPrefix(cfg.AdminAddr, ":") {
		log.Printf("WARNING: ADMIN_ADDR %q listens on every interface, /metrics and /status become public", cfg.AdminAddr)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
