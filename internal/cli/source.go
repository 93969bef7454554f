package cli

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/manifest"
	"github.com/matzehuels/crateapi/pkg/pipeline"
)

// sourceFlags select where one package graph comes from.
type sourceFlags struct {
	manifestPath string // Cargo.toml, possibly a workspace root
	pkg          string // workspace member
	rawPath      string // pre-generated rustdoc JSON
	crate        string // published release, name[@version]
	deps         bool   // document dependencies too
	targetDir    string // cargo target directory override
	refresh      bool   // skip cache reads
}

// register adds the source flags to cmd. withCrate adds --crate, which
// dump-raw and api accept but diff expresses through --published.
func (f *sourceFlags) register(cmd *cobra.Command, withCrate bool) {
	flags := cmd.Flags()
	flags.StringVar(&f.manifestPath, "manifest-path", "", "path to Cargo.toml (default: ./"+manifest.FileName+")")
	flags.StringVarP(&f.pkg, "package", "p", "", "workspace member to analyse")
	flags.StringVar(&f.rawPath, "raw", "", "read rustdoc JSON from a file instead of generating it")
	if withCrate {
		flags.StringVar(&f.crate, "crate", "", "analyse a release published on crates.io (name[@version])")
	}
	flags.BoolVar(&f.deps, "deps", false, "document dependencies too (slower)")
	flags.StringVar(&f.targetDir, "target-dir", "", "cargo target directory (default: from cargo metadata)")
	flags.BoolVar(&f.refresh, "refresh", false, "bypass cached graphs")
}

// options converts the flags to pipeline options. A raw file only merges a
// manifest when --manifest-path is given; generation defaults to the
// Cargo.toml of the working directory.
func (c *CLI) options(f sourceFlags) (pipeline.Options, error) {
	opts := pipeline.Options{
		ManifestPath: f.manifestPath,
		Package:      f.pkg,
		RawPath:      f.rawPath,
		Deps:         f.deps,
		TargetDir:    f.targetDir,
		Refresh:      f.refresh,
		Logger:       c.Logger,
	}
	if f.crate != "" {
		if f.rawPath != "" || f.manifestPath != "" {
			return opts, errs.New(errs.ErrCodeInvalidInput, "--crate cannot be combined with --raw or --manifest-path")
		}
		opts.Crate, opts.Version = splitCrate(f.crate)
	}
	if opts.Generates() && opts.ManifestPath == "" {
		opts.ManifestPath = manifest.FileName
	}
	if err := c.choosePackage(&opts); err != nil {
		return opts, err
	}
	return opts, opts.ValidateAndSetDefaults()
}

// splitCrate splits "name@version"; a bare name means the latest release.
func splitCrate(s string) (name, version string) {
	name, version, _ = strings.Cut(s, "@")
	return name, version
}

// choosePackage asks for a workspace member when the manifest has several
// and none was named. Non-interactive runs leave the choice to
// [manifest.Select], which reports the candidates.
func (c *CLI) choosePackage(opts *pipeline.Options) error {
	if !c.Interactive || opts.ManifestPath == "" || opts.Package != "" {
		return nil
	}
	pkgs, err := manifest.LoadPackages(opts.ManifestPath)
	if err != nil || len(pkgs) < 2 {
		// Loading errors resurface with context when the pipeline runs.
		return nil
	}
	selected, err := pickPackage(pkgs)
	if err != nil {
		return err
	}
	opts.Package = selected.Name
	return nil
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

// Close implements io.Closer with a no-op.
func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path, or c.Out when the
// path is empty.
func (c *CLI) openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{c.Out}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "create %s", path)
	}
	return f, nil
}

// writeResult writes data to path (or c.Out) and reports file writes.
func (c *CLI) writeResult(path string, data []byte) error {
	out, err := c.openOutput(path)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	if path != "" {
		printFile(path)
	}
	return nil
}

// startSpinner shows a spinner on interactive terminals. Elsewhere the
// spinner is inert but Stop and its variants still print their messages.
func (c *CLI) startSpinner(ctx context.Context, message string) *Spinner {
	s := newSpinnerWithContext(ctx, message)
	if c.Interactive {
		s.Start()
	} else {
		s.disable()
	}
	return s
}
