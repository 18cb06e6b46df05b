package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"edgerouter/internal/edge"
	"edgerouter/internal/upstream"

	"github.com/spf13/cobra"
)

func routeCmd() *cobra.Command {
	var method string
	var format string
	var showBody bool

	c := &cobra.Command{
		Use:   "route <url>",
		Short: "Route one request against the live origins and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, closeLog, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = closeLog() }()

			req, err := requestFromURL(strings.ToUpper(method), args[0])
			if err != nil {
				return err
			}

			router := edge.NewRouter(cfg.Sites, upstream.NewClient(upstream.WithTimeout(cfg.UpstreamTimeout)))
			resp, err := router.Route(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printRoute(cmd.OutOrStdout(), resp, format, showBody)
		},
	}

	c.Flags().StringVarP(&method, "method", "X", http.MethodGet, "HTTP method")
	c.Flags().StringVar(&format, "format", "pretty", "Output format: pretty|json")
	c.Flags().BoolVar(&showBody, "body", false, "Print the response body")
	return c
}

func requestFromURL(method, raw string) (*edge.Request, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("invalid url %q: an absolute http(s) URL is required", raw)
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return &edge.Request{
		Method:   method,
		Host:     u.Host,
		Path:     path,
		RawQuery: u.RawQuery,
		Header:   http.Header{},
	}, nil
}

func printRoute(w io.Writer, resp *edge.Response, format string, showBody bool) error {
	switch format {
	case "json":
		out := struct {
			Zone   edge.Zone   `json:"zone"`
			Rule   string      `json:"rule"`
			Status int         `json:"status"`
			Header http.Header `json:"headers"`
			Bytes  int         `json:"body_bytes"`
			Body   string      `json:"body,omitempty"`
		}{resp.Zone, resp.Rule, resp.Status, resp.Header, len(resp.Body), ""}
		if showBody {
			out.Body = string(resp.Body)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	case "pretty":
	default:
		return fmt.Errorf("unknown format %q (use pretty|json)", format)
	}

	fmt.Fprintf(w, "zone:   %s\n", resp.Zone)
	fmt.Fprintf(w, "rule:   %s\n", resp.Rule)
	fmt.Fprintf(w, "status: %d %s\n", resp.Status, http.StatusText(resp.Status))

	keys := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range resp.Header[k] {
			fmt.Fprintf(w, "  %s: %s\n", k, v)
		}
	}
	fmt.Fprintf(w, "body:   %d bytes\n", len(resp.Body))
	if showBody && len(resp.Body) > 0 {
		fmt.Fprintf(w, "\n%s\n", resp.Body)
	}
	return nil
}
