package manifest

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/crateapi/pkg/api"
	"github.com/matzehuels/crateapi/pkg/semver"
)

// MergeOption configures [Manifest.Merge].
type MergeOption func(*mergeConfig)

type mergeConfig struct {
	logger *log.Logger
}

// WithLogger traces skipped dependencies at debug level.
func WithLogger(l *log.Logger) MergeOption {
	return func(c *mergeConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Merge enriches a with the manifest's dependency requirements and features.
//
// A requirement is attached only when its dependency names exactly one
// crate of the graph. Dependencies outside the public surface match nothing
// and are ignored. When several dependencies map to the same crate name, or
// several crates share the name, the crate's requirement is left unset
// rather than guessed. Merge never fails.
func (m *Manifest) Merge(a *api.Api, opts ...MergeOption) {
	cfg := mergeConfig{logger: log.NewWithOptions(io.Discard, log.Options{})}
	for _, opt := range opts {
		opt(&cfg)
	}

	crates := make(map[string][]api.CrateID)
	for _, c := range a.Crates {
		crates[c.Name] = append(crates[c.Name], c.ID)
	}

	declared := make(map[string]int)
	for _, d := range m.Dependencies {
		declared[d.CrateName()]++
	}

	for _, d := range m.Dependencies {
		name := d.CrateName()
		ids := crates[name]
		switch {
		case len(ids) == 0:
			continue
		case len(ids) > 1:
			cfg.logger.Debug("skipping dependency: several crates share its name", "name", name, "crates", len(ids))
			continue
		case declared[name] > 1:
			cfg.logger.Debug("skipping dependency: declared more than once", "name", name)
			continue
		}
		var req *semver.VersionReq
		if d.Version != nil {
			v := *d.Version
			req = &v
		}
		a.Crates.Get(ids[0]).Version = req
	}

	if a.Features == nil {
		a.Features = make(map[string]api.AnyFeature, len(m.Features))
	}
	for name, f := range m.Features {
		switch {
		case f.Feature != nil:
			a.Features[name] = api.AnyFeature{Feature: &api.Feature{
				Name:         f.Feature.Name,
				Dependencies: append([]string(nil), f.Feature.Dependencies...),
			}}
		case f.Dependency != nil:
			a.Features[name] = api.AnyFeature{OptionalDependency: &api.OptionalDependency{
				Name:    f.Dependency.Name,
				Package: f.Dependency.Package,
			}}
		}
	}
}
