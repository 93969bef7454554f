package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// dumpRawCommand creates the dump-raw command for printing rustdoc JSON.
func (c *CLI) dumpRawCommand() *cobra.Command {
	var (
		src     sourceFlags
		output  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "dump-raw",
		Short: "Print the rustdoc JSON of a package",
		Long: `Print the rustdoc JSON of a package, indented.

The documentation is generated with the nightly toolchain unless --raw or
--crate names an existing document. The output is the input of every other
command and can be saved to skip generation later:

  crateapi dump-raw -o before.json
  crateapi api --raw before.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runDumpRaw(cmd.Context(), src, output, noCache)
		},
	}

	src.register(cmd, true)
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching of registry responses")

	return cmd
}

func (c *CLI) runDumpRaw(ctx context.Context, src sourceFlags, output string, noCache bool) error {
	opts, err := c.options(src)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := c.startSpinner(ctx, "Generating documentation...")
	prog := newProgress(c.Logger)
	data, err := runner.DumpRaw(ctx, opts)
	if err != nil {
		spinner.StopWithError("Generation failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Dumped %d bytes of rustdoc JSON", len(data)))

	return c.writeResult(output, data)
}
