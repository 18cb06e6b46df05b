package cli

import (
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"edgerouter/internal/server"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the edge and admin listeners and the probe loop",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			edgeLn, err := net.Listen("tcp", cfg.EdgeAddr)
			if err != nil {
				return fmt.Errorf("listen edge %s: %w", cfg.EdgeAddr, err)
			}
			var adminLn net.Listener
			if cfg.AdminAddr != "" {
				adminLn, err = net.Listen("tcp", cfg.AdminAddr)
				if err != nil {
					edgeLn.Close()
					return fmt.Errorf("listen admin %s: %w", cfg.AdminAddr, err)
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.Info("edgerouter starting",
				"edge_addr", cfg.EdgeAddr,
				"admin_addr", cfg.AdminAddr,
				"primary_origin", cfg.Sites.PrimaryOrigin,
				"secondary_origin", cfg.Sites.SecondaryOrigin,
				"niches", len(cfg.Sites.Niches),
			)
			return server.New(cfg, log).Run(ctx, edgeLn, adminLn)
		},
	}
}
