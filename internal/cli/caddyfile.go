package cli

import (
	"fmt"

	"edgerouter/internal/caddy"

	"github.com/spf13/cobra"
)

func caddyfileCmd() *cobra.Command {
	var write bool
	var reload bool

	c := &cobra.Command{
		Use:   "caddyfile",
		Short: "Generate the Caddyfile that fronts the edge listener",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			mgr := caddy.NewManager(cfg.CaddyfilePath, cfg.AcmeEmail)
			content, err := mgr.Generate(cfg.Sites, caddy.ProxyTarget(cfg.EdgeAddr), askURL(cfg.AdminAddr))
			if err != nil {
				return err
			}

			switch {
			case reload:
				if err := mgr.Reload(content); err != nil {
					return err
				}
				log.Info("caddy reloaded", "path", cfg.CaddyfilePath)
			case write:
				if err := mgr.Write(content); err != nil {
					return err
				}
				log.Info("caddyfile written", "path", cfg.CaddyfilePath)
			default:
				fmt.Fprint(cmd.OutOrStdout(), content)
			}
			return nil
		},
	}

	c.Flags().BoolVar(&write, "write", false, "Validate and write the Caddyfile to CADDYFILE_PATH")
	c.Flags().BoolVar(&reload, "reload", false, "Write the Caddyfile and reload Caddy")
	return c
}

// askURL is the on-demand TLS gate served by the admin listener. Without an
// admin listener certificates are not gated.
func askURL(adminAddr string) string {
	if adminAddr == "" {
		return ""
	}
	return "http://" + caddy.ProxyTarget(adminAddr) + "/tls/ask"
}
