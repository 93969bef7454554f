package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/crateapi/pkg/pipeline"
)

// apiCommand creates the api command for building and printing a graph.
func (c *CLI) apiCommand() *cobra.Command {
	var (
		src     sourceFlags
		format  string
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "api",
		Short: "Build the public API graph of a package",
		Long: `Build the public API graph of a package and print it.

The graph lists every public path, the external crates it re-exports from,
their version requirements from Cargo.toml, and the declared features.

Formats:
  pretty   terminal tree (default)
  md       markdown document
  json     graph document, input of 'diff --before'
  dot      Graphviz source of the path tree
  svg      rendered path tree
  silent   build only

Built graphs are cached by content, so repeated runs on an unchanged package
skip the build.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateFormat(format); err != nil {
				return err
			}
			return c.runAPI(cmd.Context(), src, format, output, noCache)
		},
	}

	src.register(cmd, true)
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.DefaultFormat, "output format: pretty, md, json, dot, svg, silent")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runAPI(ctx context.Context, src sourceFlags, format, output string, noCache bool) error {
	opts, err := c.options(src)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := c.startSpinner(ctx, "Building API graph...")
	prog := newProgress(c.Logger)
	res, err := runner.BuildAPI(ctx, opts)
	if err != nil {
		spinner.StopWithError("Build failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Built %d paths", res.Stats.PathCount))
	printStats(res.Stats.PathCount, res.Stats.ItemCount, res.Stats.CrateCount, res.CacheHit)

	var data []byte
	switch format {
	case pipeline.FormatSilent:
		return nil
	case pipeline.FormatPretty:
		data = []byte(prettyAPI(res.Api))
	default:
		if data, err = pipeline.Render(ctx, res.Api, format); err != nil {
			return err
		}
	}
	if err := c.writeResult(output, data); err != nil {
		return err
	}
	if format == pipeline.FormatJSON && output != "" {
		printNextStep("Diff against it later", "crateapi diff --before "+output)
	}
	return nil
}
