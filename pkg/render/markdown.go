package render

import (
	"bufio"
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/matzehuels/crateapi/pkg/api"
	"github.com/matzehuels/crateapi/pkg/diff"
)

// APIMarkdown writes a as a markdown document: the path tree with one
// heading per module, then feature flags and public dependencies.
//
// Children are listed modules first, each group ordered by kind and name.
func APIMarkdown(w io.Writer, a *api.Api) error {
	bw := bufio.NewWriter(w)
	root := a.Root()
	if root == nil {
		return bw.Flush()
	}

	fmt.Fprintf(bw, "# `%s`\n\n", root.Path)

	// Depth-first with an explicit stack; ids are pushed in reverse so they
	// pop in display order. Re-exports share children, so each path is
	// printed once.
	stack := reversed(sortedChildren(a, root.Children))
	seen := make(map[api.PathID]bool)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[id] {
			continue
		}
		seen[id] = true

		p := a.Paths.Get(id)
		if p.Kind == api.PathKindModule {
			fmt.Fprintf(bw, "%s `%s`\n\n", strings.Repeat("#", strings.Count(p.Path, "::")+1), p.Path)
		} else {
			fmt.Fprintf(bw, "**`%s`** *(%s)*\n\n", p.Path, p.Kind)
		}
		if name := crateName(a, p.CrateID); name != "" {
			fmt.Fprintf(bw, "*from crate `%s`*\n\n", name)
		}
		stack = append(stack, reversed(sortedChildren(a, p.Children))...)
	}

	if len(a.Features) > 0 {
		bw.WriteString("## Feature Flags\n\n")
		for _, name := range slices.Sorted(maps.Keys(a.Features)) {
			f := a.Features[name]
			switch {
			case f.Feature != nil:
				fmt.Fprintf(bw, "`%s`\n", f.Feature.Name)
				for _, dep := range f.Feature.Dependencies {
					fmt.Fprintf(bw, "- `%s`\n", dep)
				}
				bw.WriteString("\n")
			case f.OptionalDependency != nil:
				if pkg := f.OptionalDependency.Package; pkg != "" {
					fmt.Fprintf(bw, "`%s` *(dependency `%s`)*\n\n", f.OptionalDependency.Name, pkg)
				} else {
					fmt.Fprintf(bw, "`%s` *(dependency)*\n\n", f.OptionalDependency.Name)
				}
			}
		}
	}

	if a.Crates.Len() > 0 {
		bw.WriteString("## Public Dependencies\n\n")
		for _, c := range a.Crates {
			fmt.Fprintf(bw, "- `%s` (version %s)\n", c.Name, VersionString(c))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// DiffMarkdown writes diffs as markdown. Warn diffs go under "Breaking
// Changes", Report diffs under "Changes", grouped by category. Allow diffs
// are not shown.
func DiffMarkdown(w io.Writer, before, after *api.Api, diffs []diff.Diff) error {
	bw := bufio.NewWriter(w)
	sorted := slices.Clone(diffs)
	diff.Sort(sorted)

	lastSeverity := diff.SeverityAllow
	var lastCategory *diff.Category
	for _, d := range sorted {
		if d.Severity == diff.SeverityAllow {
			continue
		}
		if d.Severity != lastSeverity {
			switch d.Severity {
			case diff.SeverityWarn:
				bw.WriteString("## Breaking Changes\n\n")
			case diff.SeverityReport:
				bw.WriteString("## Changes\n\n")
			}
			lastSeverity = d.Severity
			lastCategory = nil
		}
		if cat := d.Category(); lastCategory == nil || *lastCategory != cat {
			if cat != diff.CategoryUnknown {
				fmt.Fprintf(bw, "**%s**\n", categoryTitle(cat))
			}
			lastCategory = &cat
		}
		fmt.Fprintf(bw, "- %s\n", DiffSummary(before, after, d))
	}
	return bw.Flush()
}

// DiffSummary is the one-line description of d used by the markdown and
// terminal renderers.
func DiffSummary(before, after *api.Api, d diff.Diff) string {
	if d.Rule.Name == diff.DependencyRequirement.Name && d.Before != nil && d.After != nil &&
		d.Before.CrateID != nil && d.After.CrateID != nil {
		bc := before.Crates.Get(*d.Before.CrateID)
		ac := after.Crates.Get(*d.After.CrateID)
		if bc != nil && ac != nil {
			return fmt.Sprintf("`%s` (public dependency): changed version requirement from %s to %s",
				ac.Name, VersionString(bc), VersionString(ac))
		}
	}
	return fmt.Sprintf("`%s`: %s", LocationName(before, after, d), d.Rule.Explanation)
}

// LocationName names the subject of d, preferring the after side.
func LocationName(before, after *api.Api, d diff.Diff) string {
	if d.After != nil {
		if name := d.After.Name(after); name != "" {
			return name
		}
	}
	if d.Before != nil {
		return d.Before.Name(before)
	}
	return ""
}

// VersionString formats a crate's requirement, or "unknown".
func VersionString(c *api.Crate) string {
	if c == nil || c.Version == nil {
		return "unknown"
	}
	return c.Version.String()
}

func categoryTitle(c diff.Category) string {
	s := c.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

func crateName(a *api.Api, id *api.CrateID) string {
	if id == nil {
		return ""
	}
	if c := a.Crates.Get(*id); c != nil {
		return c.Name
	}
	return ""
}

// sortedChildren orders ids by kind then path. Modules sort first since
// PathKindModule is the lowest kind.
func sortedChildren(a *api.Api, ids []api.PathID) []api.PathID {
	out := slices.Clone(ids)
	slices.SortStableFunc(out, func(x, y api.PathID) int {
		px, py := a.Paths.Get(x), a.Paths.Get(y)
		if c := cmp.Compare(px.Kind, py.Kind); c != 0 {
			return c
		}
		return cmp.Compare(px.Path, py.Path)
	})
	return out
}

func reversed(ids []api.PathID) []api.PathID {
	slices.Reverse(ids)
	return ids
}
