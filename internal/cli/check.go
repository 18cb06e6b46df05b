package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"edgerouter/internal/health"

	"github.com/spf13/cobra"
)

func checkCmd() *cobra.Command {
	var format string
	var certs bool

	c := &cobra.Command{
		Use:   "check",
		Short: "Probe every public URL of the network once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, closeLog, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			checker := health.NewChecker(health.DefaultProbes(cfg.Sites), cfg.ProbeInterval, cfg.ProbeTimeout,
				"", "", cfg.AlertThreshold, log)
			results := checker.RunOnce(cmd.Context())

			var certResults []health.CertResult
			if certs {
				certResults = health.CheckCerts(cmd.Context(), health.CertDomains(cfg.Sites))
			}

			if err := printCheck(cmd.OutOrStdout(), results, certResults, format); err != nil {
				return err
			}

			fails := countFailures(results, certResults)
			if fails > 0 {
				return fmt.Errorf("check failed (%d failing probe(s))", fails)
			}
			return nil
		},
	}

	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	c.Flags().BoolVar(&certs, "certs", false, "Also report TLS certificate expiry")
	return c
}

func countFailures(results []health.Result, certs []health.CertResult) int {
	n := 0
	for _, r := range results {
		if !r.OK {
			n++
		}
	}
	for _, c := range certs {
		if c.Error != "" {
			n++
		}
	}
	return n
}

func printCheck(w io.Writer, results []health.Result, certs []health.CertResult, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Probes []health.Result     `json:"probes"`
			Certs  []health.CertResult `json:"certs,omitempty"`
		}{results, certs})
	case "pretty":
	default:
		return fmt.Errorf("unknown format %q (use pretty|json)", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tPROBE\tSTATUS\tLATENCY\tURL")
	for _, r := range results {
		mark := "PASS"
		if !r.OK {
			mark = "FAIL"
		}
		status := fmt.Sprintf("%d", r.Status)
		if r.Error != "" {
			status = "error"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dms\t%s\n", mark, r.Name, status, r.LatencyMs, r.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != "" {
			fmt.Fprintf(w, "  %s: %s\n", r.Name, r.Error)
		}
	}

	if len(certs) > 0 {
		fmt.Fprintln(w)
		tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DOMAIN\tEXPIRES\tDAYS LEFT")
		for _, c := range certs {
			if c.Error != "" {
				fmt.Fprintf(tw, "%s\terror\t-\n", c.Domain)
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Domain, c.NotAfter.Format("2006-01-02"), c.DaysLeft)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	passed := len(results) - countFailures(results, nil)
	fmt.Fprintf(w, "\n%d/%d probes passed\n", passed, len(results))
	return nil
}
