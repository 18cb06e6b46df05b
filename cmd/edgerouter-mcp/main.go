package main

import (
	"log"

	"edgerouter/internal/config"
	"edgerouter/internal/edge"
	"edgerouter/internal/logging"
	mcptools "edgerouter/internal/mcp"
	"edgerouter/internal/upstream"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// stdout carries the protocol, so logs go to stderr or LOG_FILE.
	logger, closeLog := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	defer func() { _ = closeLog() }()

	router := edge.NewRouter(cfg.Sites, upstream.NewClient(upstream.WithTimeout(cfg.UpstreamTimeout)))

	s := server.NewMCPServer(
		"edgerouter",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	mcptools.RegisterTools(s, router, cfg.ProbeTimeout, logger)

	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
