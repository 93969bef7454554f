package api

import (
	"github.com/matzehuels/crateapi/pkg/semver"
)

// =============================================================================
// Identifiers
// =============================================================================

// PathID addresses a [Path] in [Api.Paths]. Ids are dense, assigned in
// insertion order, and only meaningful within the Api that issued them.
type PathID int

// ItemID addresses an [Item] in [Api.Items].
type ItemID int

// CrateID addresses a [Crate] in [Api.Crates].
type CrateID int

// Ptr returns a pointer to a copy of id, for optional id fields.
func (id PathID) Ptr() *PathID { return &id }

// Ptr returns a pointer to a copy of id, for optional id fields.
func (id ItemID) Ptr() *ItemID { return &id }

// Ptr returns a pointer to a copy of id, for optional id fields.
func (id CrateID) Ptr() *CrateID { return &id }

// =============================================================================
// Api - Normalized Public Surface
// =============================================================================

// Api is the normalized public surface of one package.
//
// Paths form a tree rooted at RootID. A Path synthesized for a re-export
// copies the ItemID and Children of its target, so several Paths may refer
// to the same Item or sub-tree without being the same node.
type Api struct {
	RootID   *PathID               `json:"root_id,omitempty"`
	Paths    Paths                 `json:"paths"`
	Items    Items                 `json:"items"`
	Crates   Crates                `json:"crates"`
	Features map[string]AnyFeature `json:"features,omitempty"`
}

// New creates an empty Api.
func New() *Api {
	return &Api{Features: make(map[string]AnyFeature)}
}

// Root returns the root path, or nil for an empty Api.
func (a *Api) Root() *Path {
	if a.RootID == nil {
		return nil
	}
	return a.Paths.Get(*a.RootID)
}

// Validate checks that every id stored in the Api refers to an existing
// arena entry and that arena ids are dense.
func (a *Api) Validate() error {
	if err := a.Paths.validate(); err != nil {
		return err
	}
	if err := a.Items.validate(); err != nil {
		return err
	}
	if err := a.Crates.validate(); err != nil {
		return err
	}
	if a.RootID != nil && a.Paths.Get(*a.RootID) == nil {
		return invalidf("root_id %d out of range", *a.RootID)
	}
	for _, p := range a.Paths {
		if p.CrateID != nil && a.Crates.Get(*p.CrateID) == nil {
			return invalidf("path %d: crate_id %d out of range", p.ID, *p.CrateID)
		}
		if p.ItemID != nil && a.Items.Get(*p.ItemID) == nil {
			return invalidf("path %d: item_id %d out of range", p.ID, *p.ItemID)
		}
		for _, child := range p.Children {
			if a.Paths.Get(child) == nil {
				return invalidf("path %d: child %d out of range", p.ID, child)
			}
		}
	}
	for _, it := range a.Items {
		if it.CrateID != nil && a.Crates.Get(*it.CrateID) == nil {
			return invalidf("item %d: crate_id %d out of range", it.ID, *it.CrateID)
		}
	}
	return nil
}

// =============================================================================
// Path, Item, Crate
// =============================================================================

// Path is a named location in the module/type hierarchy.
type Path struct {
	ID       PathID   `json:"id"`
	CrateID  *CrateID `json:"crate_id,omitempty"`
	Path     string   `json:"path"`
	Kind     PathKind `json:"kind"`
	Span     *Span    `json:"span,omitempty"`
	ItemID   *ItemID  `json:"item_id,omitempty"`
	Children []PathID `json:"children,omitempty"`
}

// Item is the terminal payload a Path may refer to.
type Item struct {
	ID      ItemID   `json:"id"`
	CrateID *CrateID `json:"crate_id,omitempty"`
	Name    string   `json:"name,omitempty"`
	Span    *Span    `json:"span,omitempty"`
}

// Crate is an external dependency reachable from the public surface.
// The local package is never represented as a Crate.
type Crate struct {
	ID      CrateID            `json:"id"`
	Name    string             `json:"name"`
	Version *semver.VersionReq `json:"version,omitempty"`
}

// Span locates a declaration in source. Begin and End are (line, column).
type Span struct {
	Filename string `json:"filename"`
	Begin    [2]int `json:"begin"`
	End      [2]int `json:"end"`
}

// =============================================================================
// Features
// =============================================================================

// AnyFeature is either a declared [Feature] or an [OptionalDependency]
// that implicitly acts as a feature. Exactly one field is set.
type AnyFeature struct {
	Feature            *Feature            `json:"feature,omitempty"`
	OptionalDependency *OptionalDependency `json:"optional_dependency,omitempty"`
}

// Name returns the activation name of whichever variant is set.
func (f AnyFeature) Name() string {
	switch {
	case f.Feature != nil:
		return f.Feature.Name
	case f.OptionalDependency != nil:
		return f.OptionalDependency.Name
	}
	return ""
}

// Feature is a named feature flag and the names it enables.
type Feature struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
}

// OptionalDependency is a dependency that can be switched on by name.
// Package holds the underlying package name when the dependency is renamed.
type OptionalDependency struct {
	Name    string `json:"name"`
	Package string `json:"package,omitempty"`
}
