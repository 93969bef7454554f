package nodelink

import (
	"strings"
	"testing"

	"github.com/matzehuels/crateapi/pkg/api"
)

func tree() *api.Api {
	a := api.New()
	ext := a.Crates.Push(api.Crate{Name: "serde"})
	root := a.Paths.Push(api.Path{Path: "demo", Kind: api.PathKindModule})
	a.RootID = root.Ptr()
	inner := a.Paths.Push(api.Path{Path: "demo::inner", Kind: api.PathKindModule})
	fn := a.Paths.Push(api.Path{Path: "demo::inner::run", Kind: api.PathKindFunction})
	reexp := a.Paths.Push(api.Path{Path: "demo::run", Kind: api.PathKindImport})
	ser := a.Paths.Push(api.Path{Path: "serde::Serialize", Kind: api.PathKindTrait, CrateID: ext.Ptr()})
	a.Paths.Get(root).Children = []api.PathID{inner, ser, reexp}
	a.Paths.Get(inner).Children = []api.PathID{fn}
	return a
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(tree(), Options{Detailed: true})

	for _, want := range []string{
		"digraph G {",
		`p0 [label="demo\nkind: module", penwidth=2];`,
		`p3 [label="demo::run\nkind: import", style="rounded,filled,dashed"];`,
		`p4 [label="serde::Serialize\nkind: trait\ncrate: serde", fillcolor=lightgrey];`,
		"p0 -> p1;",
		"p1 -> p2;",
		"p0 -> p3;",
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestToDOTMaxDepth(t *testing.T) {
	dot := ToDOT(tree(), Options{MaxDepth: 1})
	if strings.Contains(dot, "p2 [") || strings.Contains(dot, "p1 -> p2") {
		t.Errorf("depth-2 path drawn:\n%s", dot)
	}
	if !strings.Contains(dot, `p1 [label="demo::inner"`) {
		t.Errorf("depth-1 path missing:\n%s", dot)
	}
}

func TestToDOTEmpty(t *testing.T) {
	if dot := ToDOT(api.New(), Options{}); strings.Contains(dot, "->") {
		t.Errorf("empty api has edges:\n%s", dot)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="100pt" height="50pt" viewBox="0.00 0.00 100.00 50.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	out := string(normalizeViewBox(in))
	if !strings.Contains(out, `viewBox="0 0 100.00 50.00" width="100" height="50"`) {
		t.Errorf("normalizeViewBox() = %s", out)
	}
	if string(normalizeViewBox([]byte("<svg/>"))) != "<svg/>" {
		t.Error("svg without viewBox should pass through")
	}
}
