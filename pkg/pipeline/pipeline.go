// Package pipeline provides the analysis pipeline shared by the CLI and the
// HTTP server.
//
// This package implements load → generate → build → merge → diff so that
// every entry point resolves inputs, caches graphs and reports failures the
// same way.
//
// # Architecture
//
// A run has up to four stages:
//
//  1. Load: read the Cargo.toml of the selected package (optional)
//  2. Generate: run the documentation generator, or read a raw tree from disk
//  3. Build: turn the raw tree into an [api.Api] and merge the manifest into it
//  4. Diff: compare two built graphs
//
// Built graphs are cached by content, keyed on the raw tree and the
// manifest, so rebuilding an unchanged package is a cache lookup.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, logger)
//	res, err := runner.BuildAPI(ctx, pipeline.Options{ManifestPath: "Cargo.toml"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	d, err := runner.Diff(ctx,
//	    pipeline.Options{APIPath: "before.json"},
//	    pipeline.Options{ManifestPath: "Cargo.toml"})
package pipeline

import (
	"encoding/json"
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/crateapi/pkg/api"
	"github.com/matzehuels/crateapi/pkg/diff"
	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/integrations/crates"
	"github.com/matzehuels/crateapi/pkg/manifest"
)

// Format constants for output formats.
const (
	FormatPretty   = "pretty"
	FormatMarkdown = "md"
	FormatJSON     = "json"
	FormatDOT      = "dot"
	FormatSVG      = "svg"
	FormatSilent   = "silent"
)

// DefaultFormat is the output format when none is requested.
const DefaultFormat = FormatPretty

// ValidFormats is the set of supported output formats, in help order.
var ValidFormats = []string{FormatPretty, FormatMarkdown, FormatJSON, FormatDOT, FormatSVG, FormatSilent}

// ValidDiffFormats is the subset of formats a diff can be written in.
var ValidDiffFormats = []string{FormatPretty, FormatMarkdown, FormatJSON, FormatSilent}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !slices.Contains(ValidFormats, format) {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid format: %q (must be one of: pretty, md, json, dot, svg, silent)", format)
	}
	return nil
}

// ValidateDiffFormat checks that a format can render a diff.
func ValidateDiffFormat(format string) error {
	if !slices.Contains(ValidDiffFormats, format) {
		return errs.New(errs.ErrCodeInvalidFormat, "invalid diff format: %q (must be one of: pretty, md, json, silent)", format)
	}
	return nil
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options describes where one package's graph comes from. Exactly one
// source is used, checked in this order: APIPath, Crate, Raw, RawPath, and
// finally generation from ManifestPath.
//
// This struct supports JSON serialization for API requests.
type Options struct {
	// ManifestPath is a Cargo.toml, possibly a workspace root.
	ManifestPath string `json:"manifest_path,omitempty"`

	// Manifest is Cargo.toml content. It takes precedence over
	// ManifestPath for the merge but cannot drive generation.
	Manifest string `json:"manifest,omitempty"`

	// Package selects a workspace member.
	Package string `json:"package,omitempty"`

	// RawPath reads the raw documentation tree from a file.
	RawPath string `json:"raw_path,omitempty"`

	// Raw is an inline raw documentation tree.
	Raw json.RawMessage `json:"raw,omitempty"`

	// APIPath loads a previously saved graph instead of building one.
	APIPath string `json:"api_path,omitempty"`

	// Crate analyses a release published on crates.io. Version defaults
	// to the latest stable release.
	Crate   string `json:"crate,omitempty"`
	Version string `json:"version,omitempty"`

	// Generator options
	Deps      bool   `json:"deps,omitempty"`
	TargetDir string `json:"target_dir,omitempty"`

	// Refresh skips cache reads. Fresh results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`
	Cargo  string      `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks the source fields and applies defaults.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	sources := 0
	for _, set := range []bool{o.APIPath != "", o.Crate != "", len(o.Raw) > 0, o.RawPath != ""} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return errs.New(errs.ErrCodeInvalidInput, "only one of api_path, crate, raw and raw_path may be set")
	}
	if sources == 0 && o.ManifestPath == "" {
		return errs.New(errs.ErrCodeInvalidInput, "manifest_path is required to generate documentation")
	}

	if o.Crate != "" && o.Version == "" {
		o.Version = crates.Latest
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Generates reports whether the options run the documentation generator.
func (o *Options) Generates() bool {
	return o.APIPath == "" && o.Crate == "" && len(o.Raw) == 0 && o.RawPath == ""
}

// =============================================================================
// Results
// =============================================================================

// Result is a built graph and how it was obtained.
type Result struct {
	Api *api.Api

	// Manifest is the merged package descriptor, nil when none was given.
	Manifest *manifest.Manifest

	// CacheHit is set when Api came from the cache.
	CacheHit bool

	// CacheKey is the content key of Api; empty for loaded graphs.
	CacheKey string

	Stats Stats
}

// Stats contains build statistics.
type Stats struct {
	PathCount    int
	ItemCount    int
	CrateCount   int
	GenerateTime time.Duration
	BuildTime    time.Duration
}

func newStats(a *api.Api) Stats {
	return Stats{
		PathCount:  a.Paths.Len(),
		ItemCount:  a.Items.Len(),
		CrateCount: a.Crates.Len(),
	}
}

// DiffResult is the outcome of comparing two graphs.
type DiffResult struct {
	Before *Result
	After  *Result

	// Diffs are sorted for display with [diff.Sort].
	Diffs []diff.Diff

	MaxSeverity diff.Severity
}

// Breaking reports whether any diff has Warn severity.
func (r *DiffResult) Breaking() bool {
	return r.MaxSeverity == diff.SeverityWarn
}
