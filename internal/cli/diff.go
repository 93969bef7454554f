package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/crateapi/pkg/diff"
	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/integrations/crates"
	"github.com/matzehuels/crateapi/pkg/pipeline"
)

// ErrBreaking is returned by diff when a Warn diff was found. main maps it
// to exit status 1 without printing it.
var ErrBreaking = errors.New("breaking changes found")

// baselineFlags select the before side of a diff.
type baselineFlags struct {
	path      string // another Cargo.toml
	rawBefore string // rustdoc JSON of the baseline
	apiPath   string // graph saved with 'api --format json'
	published string // crates.io version, "latest" when given bare
}

func (b baselineFlags) count() int {
	n := 0
	for _, set := range []bool{b.rawBefore != "" || b.path != "", b.apiPath != "", b.published != ""} {
		if set {
			n++
		}
	}
	return n
}

// diffCommand creates the diff command for comparing two graphs.
func (c *CLI) diffCommand() *cobra.Command {
	var (
		src      sourceFlags
		baseline baselineFlags
		format   string
		output   string
		noCache  bool
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Report API changes between two versions of a package",
		Long: `Report API changes between a baseline (before) and the current package (after).

The baseline is one of:
  --path OTHER/Cargo.toml          another checkout of the package
  --raw-before FILE                rustdoc JSON (with --path for its manifest)
  --before api.json                a graph saved with 'api --format json'
  --published [VERSION]            a release on crates.io (default: latest)

The current package is the Cargo.toml of the working directory, or
--raw-after FILE.

Changes are listed most severe first. The command exits with status 1 when a
breaking change is found, so it can gate a release.`,
		Example: `  crateapi diff --published
  crateapi diff --path ../v1/Cargo.toml --format md
  crateapi diff --raw-before old.json --raw-after new.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := pipeline.ValidateDiffFormat(format); err != nil {
				return err
			}
			return c.runDiff(cmd.Context(), src, baseline, format, output, noCache)
		},
	}

	src.register(cmd, false)
	cmd.Flags().StringVar(&src.rawPath, "raw-after", "", "read the current rustdoc JSON from a file (same as --raw)")
	cmd.Flags().StringVar(&baseline.path, "path", "", "Cargo.toml of the baseline package")
	cmd.Flags().StringVar(&baseline.rawBefore, "raw-before", "", "rustdoc JSON of the baseline")
	cmd.Flags().StringVar(&baseline.apiPath, "before", "", "baseline graph saved with 'api --format json'")
	cmd.Flags().StringVar(&baseline.published, "published", "", "diff against a crates.io release (default: latest)")
	cmd.Flags().Lookup("published").NoOptDefVal = crates.Latest
	cmd.Flags().StringVarP(&format, "format", "f", pipeline.DefaultFormat, "output format: pretty, md, json, silent")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runDiff(ctx context.Context, src sourceFlags, baseline baselineFlags, format, output string, noCache bool) error {
	switch baseline.count() {
	case 0:
		return errs.New(errs.ErrCodeInvalidInput, "a baseline is required: one of --path, --raw-before, --before or --published")
	case 1:
	default:
		return errs.New(errs.ErrCodeInvalidInput, "--path/--raw-before, --before and --published are mutually exclusive")
	}

	after, err := c.options(src)
	if err != nil {
		return fmt.Errorf("after: %w", err)
	}
	before, err := c.baselineOptions(src, baseline, after)
	if err != nil {
		return fmt.Errorf("before: %w", err)
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := c.startSpinner(ctx, "Building and comparing API graphs...")
	prog := newProgress(c.Logger)
	res, err := runner.Diff(ctx, before, after)
	if err != nil {
		spinner.StopWithError("Diff failed")
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Found %d changes", len(res.Diffs)))

	var data []byte
	switch format {
	case pipeline.FormatSilent:
	case pipeline.FormatPretty:
		data = []byte(prettyDiff(res))
	default:
		if data, err = pipeline.RenderDiff(res, format); err != nil {
			return err
		}
	}
	if data != nil {
		if err := c.writeResult(output, data); err != nil {
			return err
		}
	}

	if res.Breaking() {
		printWarning("%d breaking change(s)", breakingCount(res))
		return ErrBreaking
	}
	printSuccess("No breaking changes")
	return nil
}

// baselineOptions builds the before options. The baseline shares the
// generator settings of the current package.
func (c *CLI) baselineOptions(src sourceFlags, baseline baselineFlags, after pipeline.Options) (pipeline.Options, error) {
	opts := pipeline.Options{
		Deps:      src.deps,
		TargetDir: src.targetDir,
		Refresh:   src.refresh,
		Logger:    c.Logger,
	}
	switch {
	case baseline.apiPath != "":
		opts.APIPath = baseline.apiPath
	case baseline.published != "":
		m, err := pipeline.LoadManifest(after)
		if err != nil {
			return opts, err
		}
		if m == nil {
			return opts, errs.New(errs.ErrCodeInvalidInput, "--published needs the package's Cargo.toml (use --manifest-path)")
		}
		opts.Crate, opts.Version = m.Name, baseline.published
	default:
		opts.ManifestPath = baseline.path
		opts.RawPath = baseline.rawBefore
		opts.Package = after.Package
	}
	return opts, opts.ValidateAndSetDefaults()
}

func breakingCount(res *pipeline.DiffResult) int {
	n := 0
	for _, d := range res.Diffs {
		if d.Severity == diff.SeverityWarn {
			n++
		}
	}
	return n
}
