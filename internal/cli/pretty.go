package cli

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/matzehuels/crateapi/pkg/api"
	"github.com/matzehuels/crateapi/pkg/diff"
	"github.com/matzehuels/crateapi/pkg/pipeline"
	"github.com/matzehuels/crateapi/pkg/render"
)

// headerRow is the row index lipgloss tables pass for the header.
const headerRow = -1

var (
	styleTreeEnum   = lipgloss.NewStyle().Foreground(colorDim).MarginRight(1)
	styleKind       = lipgloss.NewStyle().Foreground(colorGray)
	styleExternal   = lipgloss.NewStyle().Foreground(colorBlue)
	styleTableHead  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleTableCell  = lipgloss.NewStyle().Padding(0, 1)
	styleTableTitle = StyleTitle.MarginTop(1)
)

// prettyAPI renders a as a terminal tree followed by its feature flags and
// public dependencies.
func prettyAPI(a *api.Api) string {
	root := a.Root()
	if root == nil {
		return StyleDim.Render("(empty api)") + "\n"
	}

	var b strings.Builder
	seen := map[api.PathID]bool{root.ID: true}
	t := tree.Root(StyleTitle.Render(root.Path)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styleTreeEnum)
	addChildren(t, a, root, seen)
	b.WriteString(t.String())
	b.WriteString("\n")

	if len(a.Features) > 0 {
		b.WriteString(styleTableTitle.Render("Feature Flags"))
		b.WriteString("\n")
		for _, name := range slices.Sorted(maps.Keys(a.Features)) {
			f := a.Features[name]
			switch {
			case f.Feature != nil:
				deps := ""
				if len(f.Feature.Dependencies) > 0 {
					deps = StyleDim.Render(" = " + strings.Join(f.Feature.Dependencies, ", "))
				}
				fmt.Fprintf(&b, "  %s%s\n", StyleValue.Render(name), deps)
			case f.OptionalDependency != nil:
				fmt.Fprintf(&b, "  %s %s\n", StyleValue.Render(name), styleKind.Render("(optional dependency)"))
			}
		}
	}

	if a.Crates.Len() > 0 {
		b.WriteString(styleTableTitle.Render("Public Dependencies"))
		b.WriteString("\n")
		rows := make([][]string, 0, a.Crates.Len())
		for _, c := range a.Crates {
			rows = append(rows, []string{c.Name, render.VersionString(c)})
		}
		b.WriteString(newTable("Crate", "Requirement").Rows(rows...).Render())
		b.WriteString("\n")
	}
	return b.String()
}

// addChildren attaches the children of p to t. Paths reachable through
// several re-exports are expanded once.
func addChildren(t *tree.Tree, a *api.Api, p *api.Path, seen map[api.PathID]bool) {
	children := slices.Clone(p.Children)
	slices.SortStableFunc(children, func(x, y api.PathID) int {
		px, py := a.Paths.Get(x), a.Paths.Get(y)
		if c := cmp.Compare(px.Kind, py.Kind); c != 0 {
			return c
		}
		return cmp.Compare(px.Path, py.Path)
	})
	for _, id := range children {
		child := a.Paths.Get(id)
		label := pathLabel(a, child)
		if seen[id] || len(child.Children) == 0 {
			t.Child(label)
			continue
		}
		seen[id] = true
		sub := tree.Root(label)
		addChildren(sub, a, child, seen)
		t.Child(sub)
	}
}

func pathLabel(a *api.Api, p *api.Path) string {
	name := p.Path
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	label := StyleValue.Render(name) + " " + styleKind.Render(p.Kind.String())
	if p.CrateID != nil {
		if c := a.Crates.Get(*p.CrateID); c != nil {
			label += " " + styleExternal.Render("from "+c.Name)
		}
	}
	return label
}

// prettyDiff renders res as a table, most severe first. Allow diffs are
// listed too, dimmed.
func prettyDiff(res *pipeline.DiffResult) string {
	if len(res.Diffs) == 0 {
		return StyleSuccess.Render(iconSuccess+" No API changes") + "\n"
	}

	rows := make([][]string, 0, len(res.Diffs))
	for _, d := range res.Diffs {
		rows = append(rows, []string{
			d.Severity.String(),
			d.Category().String(),
			render.LocationName(res.Before.Api, res.After.Api, d),
			diffDetail(res, d),
		})
	}

	t := newTable("Severity", "Category", "Location", "Change").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleTableHead.Padding(0, 1)
			}
			if col != 0 {
				return styleTableCell
			}
			return styleTableCell.Inherit(severityStyle(res.Diffs[row].Severity))
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", StyleDim.Render("max severity:"), severityStyle(res.MaxSeverity).Render(res.MaxSeverity.String()))
	return b.String()
}

// diffDetail is the change column: the requirement change for
// DEPENDENCY_REQUIREMENT, the rule explanation otherwise.
func diffDetail(res *pipeline.DiffResult, d diff.Diff) string {
	if d.Rule.Name == diff.DependencyRequirement.Name && d.Before != nil && d.After != nil &&
		d.Before.CrateID != nil && d.After.CrateID != nil {
		bc := res.Before.Api.Crates.Get(*d.Before.CrateID)
		ac := res.After.Api.Crates.Get(*d.After.CrateID)
		return fmt.Sprintf("%s %s %s", render.VersionString(bc), iconArrow, render.VersionString(ac))
	}
	return d.Rule.Explanation
}

func severityStyle(s diff.Severity) lipgloss.Style {
	switch s {
	case diff.SeverityWarn:
		return styleSeverityWarn
	case diff.SeverityReport:
		return styleSeverityReport
	default:
		return styleSeverityAllow
	}
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleTableHead.Padding(0, 1)
			}
			return styleTableCell
		})
}
