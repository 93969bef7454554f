package manifest

import (
	"strings"

	"github.com/matzehuels/crateapi/pkg/semver"
)

// Manifest is the package descriptor merged into an Api: the package's name,
// version, declared dependencies and features.
type Manifest struct {
	Name    string
	Version string

	// LibName is the library target name when [lib] overrides it.
	LibName string

	// Dependencies are in declaration order. Dev-dependencies are excluded.
	Dependencies []Dependency

	// Features holds declared features plus one entry per optional
	// dependency that acts as an implicit feature.
	Features map[string]AnyFeature

	// Workspace is set when the manifest declares a [workspace].
	Workspace *Workspace

	// Path is the file the manifest was loaded from, if any.
	Path string
}

// Dependency is one entry of [dependencies] or a target-specific
// dependencies table.
type Dependency struct {
	// Name is the key the dependency is declared under. For a renamed
	// dependency this is the new name.
	Name string

	// Package is the underlying package when renamed with `package = ...`.
	Package string

	// Version is nil for path or git dependencies without a version.
	Version *semver.VersionReq

	Optional bool
}

// PackageName returns the package the dependency resolves to.
func (d Dependency) PackageName() string {
	if d.Package != "" {
		return d.Package
	}
	return d.Name
}

// CrateName returns the library name of the underlying package, which is
// how rustdoc lists it among external crates even when renamed.
func (d Dependency) CrateName() string {
	return crateName(d.PackageName())
}

// AnyFeature is either a declared [Feature] or an optional [Dependency].
type AnyFeature struct {
	Feature    *Feature
	Dependency *Dependency
}

// Feature is a declared entry of [features].
type Feature struct {
	Name         string
	Dependencies []string
}

// Workspace lists the member globs of a [workspace] table.
type Workspace struct {
	Members []string
	Exclude []string

	// Dependencies are the [workspace.dependencies] entries members may
	// inherit with `workspace = true`.
	Dependencies map[string]Dependency

	// Version is [workspace.package].version.
	Version string
}

// IsVirtual reports whether the manifest only declares a workspace.
func (m *Manifest) IsVirtual() bool {
	return m.Name == "" && m.Workspace != nil
}

// CrateName returns the library crate name rustdoc uses for the package.
func (m *Manifest) CrateName() string {
	if m.LibName != "" {
		return m.LibName
	}
	return crateName(m.Name)
}

func crateName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}
