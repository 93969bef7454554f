package manifest

import (
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/semver"
)

// FileName is the manifest file cargo looks for in a package directory.
const FileName = "Cargo.toml"

type cargoFile struct {
	Package *struct {
		Name    string `toml:"name"`
		Version any    `toml:"version"`
	} `toml:"package"`
	Lib *struct {
		Name string `toml:"name"`
	} `toml:"lib"`
	Dependencies map[string]any `toml:"dependencies"`
	Target       map[string]struct {
		Dependencies map[string]any `toml:"dependencies"`
	} `toml:"target"`
	Features  map[string][]string `toml:"features"`
	Workspace *struct {
		Members      []string       `toml:"members"`
		Exclude      []string       `toml:"exclude"`
		Dependencies map[string]any `toml:"dependencies"`
		Package      struct {
			Version string `toml:"version"`
		} `toml:"package"`
	} `toml:"workspace"`
}

// Load reads a Cargo.toml. Dependencies declared with `workspace = true`
// are resolved against the nearest enclosing workspace manifest.
func Load(path string) (*Manifest, error) {
	if err := errs.ValidateManifestFilename(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeFileNotFound, err, "read %s", path)
	}

	var ws *Workspace
	if needsWorkspace(data) {
		if ws, err = findWorkspace(filepath.Dir(path)); err != nil {
			return nil, err
		}
	}

	m, err := parse(data, ws)
	if err != nil {
		return nil, errs.Wrap(errs.GetCode(err), err, "load %s", path)
	}
	m.Path = path
	return m, nil
}

// Parse decodes a Cargo.toml from memory. Workspace inheritance is only
// resolved against a [workspace] table in the same document.
func Parse(data []byte) (*Manifest, error) {
	return parse(data, nil)
}

func parse(data []byte, ws *Workspace) (*Manifest, error) {
	var cargo cargoFile
	md, err := toml.Decode(string(data), &cargo)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "decode manifest")
	}

	m := &Manifest{Features: make(map[string]AnyFeature)}

	if cargo.Workspace != nil {
		m.Workspace = &Workspace{
			Members: cargo.Workspace.Members,
			Exclude: cargo.Workspace.Exclude,
			Version: cargo.Workspace.Package.Version,
		}
		deps, err := parseDependencies(cargo.Workspace.Dependencies, keyOrder(md, "workspace", "dependencies"), nil)
		if err != nil {
			return nil, err
		}
		m.Workspace.Dependencies = make(map[string]Dependency, len(deps))
		for _, d := range deps {
			m.Workspace.Dependencies[d.Name] = d
		}
		if ws == nil {
			ws = m.Workspace
		}
	}

	if cargo.Package == nil {
		if m.Workspace != nil {
			return m, nil
		}
		return nil, errs.New(errs.ErrCodeApiParse, "manifest has no [package] name")
	}
	if cargo.Package.Name == "" {
		return nil, errs.New(errs.ErrCodeApiParse, "manifest has no [package] name")
	}
	m.Name = cargo.Package.Name
	m.Version = packageVersion(cargo.Package.Version, ws)
	if cargo.Lib != nil {
		m.LibName = cargo.Lib.Name
	}

	deps, err := parseDependencies(cargo.Dependencies, keyOrder(md, "dependencies"), ws)
	if err != nil {
		return nil, err
	}
	m.Dependencies = deps

	targets := make([]string, 0, len(cargo.Target))
	for cfg := range cargo.Target {
		targets = append(targets, cfg)
	}
	sort.Strings(targets)
	for _, cfg := range targets {
		table := cargo.Target[cfg].Dependencies
		deps, err := parseDependencies(table, keyOrder(md, "target", cfg, "dependencies"), ws)
		if err != nil {
			return nil, err
		}
		m.Dependencies = append(m.Dependencies, deps...)
	}

	m.SetFeatures(cargo.Features)
	return m, nil
}

// SetFeatures replaces the manifest's features with the declared ones plus
// an implicit feature for every optional dependency that neither shares a
// name with a declared feature nor is referenced as `dep:name`.
// Dependencies must already be set.
func (m *Manifest) SetFeatures(declared map[string][]string) {
	m.Features = make(map[string]AnyFeature, len(declared))
	for name, enables := range declared {
		m.Features[name] = AnyFeature{Feature: &Feature{Name: name, Dependencies: enables}}
	}
	for _, d := range m.Dependencies {
		if !d.Optional {
			continue
		}
		if _, ok := m.Features[d.Name]; ok || explicitlyEnabled(declared, d.Name) {
			continue
		}
		m.Features[d.Name] = AnyFeature{Dependency: &d}
	}
}

// keyOrder returns the keys directly under prefix in declaration order.
func keyOrder(md toml.MetaData, prefix ...string) []string {
	var order []string
	for _, key := range md.Keys() {
		if len(key) != len(prefix)+1 || !slices.Equal([]string(key[:len(prefix)]), prefix) {
			continue
		}
		if name := key[len(prefix)]; !slices.Contains(order, name) {
			order = append(order, name)
		}
	}
	return order
}

func parseDependencies(table map[string]any, order []string, ws *Workspace) ([]Dependency, error) {
	// Keys the metadata missed are appended in sorted order so the result
	// is still deterministic.
	var rest []string
	for name := range table {
		if !slices.Contains(order, name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)

	deps := make([]Dependency, 0, len(table))
	for _, name := range append(order, rest...) {
		value, ok := table[name]
		if !ok {
			continue
		}
		d, err := parseDependency(name, value, ws)
		if err != nil {
			return nil, err
		}
		deps = append(deps, d)
	}
	return deps, nil
}

func parseDependency(name string, value any, ws *Workspace) (Dependency, error) {
	d := Dependency{Name: name}
	switch v := value.(type) {
	case string:
		req, err := semver.ParseReq(v)
		if err != nil {
			return d, errs.Wrap(errs.ErrCodeInvalidManifest, err, "dependency %s", name)
		}
		d.Version = &req
	case map[string]any:
		if inherit, _ := v["workspace"].(bool); inherit && ws != nil {
			if base, ok := ws.Dependencies[name]; ok {
				d.Package = base.Package
				d.Version = base.Version
				d.Optional = base.Optional
			}
		}
		if s, ok := v["version"].(string); ok {
			req, err := semver.ParseReq(s)
			if err != nil {
				return d, errs.Wrap(errs.ErrCodeInvalidManifest, err, "dependency %s", name)
			}
			d.Version = &req
		}
		if pkg, ok := v["package"].(string); ok {
			d.Package = pkg
		}
		if opt, ok := v["optional"].(bool); ok {
			d.Optional = opt
		}
	default:
		return d, errs.New(errs.ErrCodeInvalidManifest, "dependency %s: unsupported value %T", name, value)
	}
	return d, nil
}

func packageVersion(v any, ws *Workspace) string {
	switch v := v.(type) {
	case string:
		return v
	case map[string]any:
		if inherit, _ := v["workspace"].(bool); inherit && ws != nil {
			return ws.Version
		}
	}
	return ""
}

// explicitlyEnabled reports whether any feature refers to the dependency
// with the `dep:` prefix, which suppresses its implicit feature.
func explicitlyEnabled(features map[string][]string, dep string) bool {
	for _, enables := range features {
		if slices.Contains(enables, "dep:"+dep) {
			return true
		}
	}
	return false
}

// =============================================================================
// Workspaces
// =============================================================================

func needsWorkspace(data []byte) bool {
	return strings.Contains(string(data), "workspace")
}

// findWorkspace walks up from dir to the nearest Cargo.toml that declares
// a [workspace]. It returns nil when there is none.
func findWorkspace(dir string) (*Workspace, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidPath, err, "resolve %s", dir)
	}
	for {
		data, err := os.ReadFile(filepath.Join(dir, FileName))
		if err == nil {
			m, err := parse(data, nil)
			if err == nil && m.Workspace != nil {
				return m.Workspace, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Members returns the manifest paths of the workspace members, sorted.
// A manifest without a workspace has no members.
func (m *Manifest) Members() ([]string, error) {
	if m.Workspace == nil {
		return nil, nil
	}
	root := filepath.Dir(m.Path)

	excluded := make(map[string]bool)
	for _, ex := range m.Workspace.Exclude {
		excluded[filepath.Clean(filepath.Join(root, ex))] = true
	}

	seen := make(map[string]bool)
	var members []string
	for _, pattern := range m.Workspace.Members {
		dirs, err := filepath.Glob(filepath.Join(root, pattern))
		if err != nil {
			return nil, errs.Wrap(errs.ErrCodeInvalidManifest, err, "workspace member %q", pattern)
		}
		for _, dir := range dirs {
			dir = filepath.Clean(dir)
			if excluded[dir] || seen[dir] {
				continue
			}
			path := filepath.Join(dir, FileName)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			seen[dir] = true
			members = append(members, path)
		}
	}
	sort.Strings(members)
	return members, nil
}

// LoadPackages loads the manifest at path and, for a workspace, every
// member. A package that is also a workspace root comes first.
func LoadPackages(path string) ([]*Manifest, error) {
	root, err := Load(path)
	if err != nil {
		return nil, err
	}
	var pkgs []*Manifest
	if !root.IsVirtual() {
		pkgs = append(pkgs, root)
	}
	members, err := root.Members()
	if err != nil {
		return nil, err
	}
	for _, mp := range members {
		if filepath.Clean(mp) == filepath.Clean(path) {
			continue
		}
		m, err := Load(mp)
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, m)
	}
	return pkgs, nil
}

// Select returns the package named name. An empty name selects the only
// package, and fails when there is more than one.
func Select(pkgs []*Manifest, name string) (*Manifest, error) {
	if name == "" {
		switch len(pkgs) {
		case 0:
			return nil, errs.New(errs.ErrCodePackageNotFound, "no packages in manifest")
		case 1:
			return pkgs[0], nil
		}
		names := make([]string, len(pkgs))
		for i, p := range pkgs {
			names[i] = p.Name
		}
		return nil, errs.New(errs.ErrCodeInvalidInput, "workspace has %d packages, choose one of: %s",
			len(pkgs), strings.Join(names, ", "))
	}
	for _, p := range pkgs {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, errs.New(errs.ErrCodePackageNotFound, "package %q not found", name)
}
