package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"time"

	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/manifest"
	"github.com/matzehuels/crateapi/pkg/observability"
	"github.com/matzehuels/crateapi/pkg/rustdoc"
)

// LoadManifest returns the package descriptor the options point at, or nil
// when they name none. Workspace roots are resolved to opts.Package.
func LoadManifest(opts Options) (*manifest.Manifest, error) {
	switch {
	case opts.Manifest != "":
		m, err := manifest.Parse([]byte(opts.Manifest))
		if err != nil {
			return nil, err
		}
		if m.IsVirtual() {
			return nil, errs.New(errs.ErrCodeInvalidManifest, "manifest only declares a workspace")
		}
		return m, nil
	case opts.ManifestPath != "":
		pkgs, err := manifest.LoadPackages(opts.ManifestPath)
		if err != nil {
			return nil, err
		}
		return manifest.Select(pkgs, opts.Package)
	}
	return nil, nil
}

// DumpRaw returns the raw documentation tree for opts, indented.
func (r *Runner) DumpRaw(ctx context.Context, opts Options) ([]byte, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	if opts.APIPath != "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "api_path holds a built graph, not a raw tree")
	}

	_, raw, _, err := r.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, errs.Wrap(errs.ErrCodeApiParse, err, "parse rustdoc json")
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// resolve returns the manifest and raw documentation of a package, and how
// long generation took.
func (r *Runner) resolve(ctx context.Context, opts Options) (*manifest.Manifest, []byte, time.Duration, error) {
	if opts.Crate != "" {
		return r.fetchPublished(ctx, opts)
	}
	m, err := r.manifestFor(opts)
	if err != nil {
		return nil, nil, 0, err
	}
	raw, elapsed, err := r.rawDoc(ctx, opts, m)
	if err != nil {
		return nil, nil, elapsed, err
	}
	return m, raw, elapsed, nil
}

// fetchPublished downloads a release's descriptor from crates.io and its
// documentation from docs.rs.
func (r *Runner) fetchPublished(ctx context.Context, opts Options) (*manifest.Manifest, []byte, time.Duration, error) {
	start := time.Now()
	rel, err := r.Registry.FetchRelease(ctx, opts.Crate, opts.Version, opts.Refresh)
	if err != nil {
		return nil, nil, 0, err
	}
	opts.Logger.Info("fetching published documentation", "crate", rel.Name, "version", rel.Version)
	raw, err := r.Registry.FetchRustdoc(ctx, rel.Name, rel.Version, opts.Refresh)
	elapsed := time.Since(start)
	if err != nil {
		return nil, nil, elapsed, err
	}
	return rel.Manifest(), raw, elapsed, nil
}

// manifestFor loads the manifest, which generation cannot do without.
func (r *Runner) manifestFor(opts Options) (*manifest.Manifest, error) {
	m, err := LoadManifest(opts)
	if err != nil {
		return nil, err
	}
	if m == nil && opts.Generates() {
		return nil, errs.New(errs.ErrCodeInvalidInput, "a manifest is required to generate documentation")
	}
	if m != nil {
		opts.Logger.Debug("loaded manifest", "package", m.Name, "version", m.Version, "dependencies", len(m.Dependencies))
	}
	return m, nil
}

// rawDoc returns the raw documentation bytes and how long generation took.
func (r *Runner) rawDoc(ctx context.Context, opts Options, m *manifest.Manifest) ([]byte, time.Duration, error) {
	switch {
	case len(opts.Raw) > 0:
		return opts.Raw, 0, nil
	case opts.RawPath != "":
		data, err := os.ReadFile(opts.RawPath)
		if err != nil {
			return nil, 0, errs.Wrap(errs.ErrCodeFileNotFound, err, "read %s", opts.RawPath)
		}
		return data, 0, nil
	}

	manifestPath := m.Path
	if manifestPath == "" {
		manifestPath = opts.ManifestPath
	}

	// Two runs for the same crate share one output file.
	r.genMu.Lock()
	defer r.genMu.Unlock()

	hooks := observability.Pipeline()
	hooks.OnGenerateStart(ctx, m.CrateName())
	start := time.Now()
	opts.Logger.Info("generating documentation", "package", m.Name, "manifest", manifestPath)
	data, err := rustdoc.GenerateBytes(ctx, rustdoc.GenerateOptions{
		ManifestPath: manifestPath,
		CrateName:    m.CrateName(),
		Deps:         opts.Deps,
		TargetDir:    opts.TargetDir,
		Cargo:        opts.Cargo,
	})
	elapsed := time.Since(start)
	hooks.OnGenerateComplete(ctx, m.CrateName(), elapsed, err)
	if err != nil {
		return nil, elapsed, err
	}
	return data, elapsed, nil
}
