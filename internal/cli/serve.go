package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/crateapi/pkg/server"
)

const defaultAddr = "127.0.0.1:8080"

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
		maxBody int64
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the API graph and diff over HTTP",
		Long: `Serve the API graph and diff over HTTP.

Routes:
  GET  /healthz   liveness and build version
  POST /v1/api    build a graph: {"raw": {...}, "manifest": "...", "format": "json"}
  POST /v1/diff   diff two graphs: {"before": {...}, "after": {...}}

Sources are inline rustdoc JSON with optional Cargo.toml text, or a
crates.io release ({"crate": "serde", "version": "1.0.200"}). The server
never reads local files. Set CRATEAPI_REDIS_URL to share the graph cache
between instances.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache, maxBody)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", defaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().Int64Var(&maxBody, "max-body", server.DefaultMaxBodyBytes, "maximum request body size in bytes")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool, maxBody int64) error {
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	printKeyValue("Address", "http://"+addr)
	printKeyValue("Cache", cacheDescription(noCache))

	srv := server.New(runner, server.WithLogger(c.Logger), server.WithMaxBodyBytes(maxBody))
	return srv.ListenAndServe(ctx, addr)
}
