package cli

import (
	"log/slog"
	"os"

	"edgerouter/internal/config"
	"edgerouter/internal/logging"

	"github.com/spf13/cobra"
)

func Execute() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "edgerouter",
		Short:        "Edge router for the agence-web-locale.fr site network",
		SilenceUsage: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(routeCmd())
	cmd.AddCommand(checkCmd())
	cmd.AddCommand(caddyfileCmd())
	return cmd
}

// setup loads the configuration and the process logger. The returned func
// closes the log file.
func setup() (*config.Config, *slog.Logger, func() error, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}
	log, closeLog := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
	})
	return cfg, log, closeLog, nil
}
