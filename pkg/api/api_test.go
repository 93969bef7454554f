package api

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-test/deep"

	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/semver"
)

func sample() *Api {
	a := New()
	serde := a.Crates.Push(Crate{Name: "serde"})
	req := semver.MustParseReq("^1.0")
	a.Crates.Get(serde).Version = &req

	item := a.Items.Push(Item{Name: "Thing", CrateID: serde.Ptr()})
	root := a.Paths.Push(Path{Path: "demo", Kind: PathKindModule})
	a.RootID = root.Ptr()
	child := a.Paths.Push(Path{
		Path:   "demo::Thing",
		Kind:   PathKindStruct,
		ItemID: item.Ptr(),
		Span:   &Span{Filename: "src/lib.rs", Begin: [2]int{3, 1}, End: [2]int{5, 2}},
	})
	a.Paths.Get(root).Children = append(a.Paths.Get(root).Children, child)
	a.Features["default"] = AnyFeature{Feature: &Feature{Name: "default", Dependencies: []string{"std"}}}
	a.Features["serde"] = AnyFeature{OptionalDependency: &OptionalDependency{Name: "serde"}}
	return a
}

func TestArenaIDsAreDense(t *testing.T) {
	var ps Paths
	for i := 0; i < 5; i++ {
		if id := ps.Push(Path{Path: "p"}); id != PathID(i) {
			t.Fatalf("Push #%d returned id %d", i, id)
		}
	}
	if ps.Len() != 5 {
		t.Errorf("Len() = %d, want 5", ps.Len())
	}
	if ps.Get(5) != nil || ps.Get(-1) != nil {
		t.Error("Get out of range should return nil")
	}
	if got := ps.Get(3).ID; got != 3 {
		t.Errorf("Get(3).ID = %d", got)
	}
}

func TestArenaGetSurvivesGrowth(t *testing.T) {
	var ps Paths
	first := ps.Push(Path{Path: "root"})
	p := ps.Get(first)
	for i := 0; i < 100; i++ {
		ps.Push(Path{Path: "x"})
	}
	p.Children = append(p.Children, 1)
	if len(ps.Get(first).Children) != 1 {
		t.Error("pointer from Get must stay valid after the arena grows")
	}
}

func TestPathKindText(t *testing.T) {
	for k := PathKindModule; k <= PathKindKeyword; k++ {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d): %v", k, err)
		}
		var back PathKind
		if err := back.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%s): %v", text, err)
		}
		if back != k {
			t.Errorf("round trip %v -> %v", k, back)
		}
	}
	if _, err := ParsePathKind("closure"); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	a := sample()
	data, err := Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	back, err := Read(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if diff := deep.Equal(a, back); diff != nil {
		t.Error(diff)
	}
	if !strings.Contains(string(data), `"kind": "struct"`) {
		t.Errorf("kinds should serialize by name:\n%s", data)
	}
	if !strings.Contains(string(data), `"version": "^1.0"`) {
		t.Errorf("version requirements should serialize as strings:\n%s", data)
	}
}

func TestReadRejectsDanglingIDs(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"bad root", `{"root_id": 3, "paths": [], "items": [], "crates": []}`},
		{"bad child", `{"paths": [{"id": 0, "path": "a", "kind": "module", "children": [7]}], "items": [], "crates": []}`},
		{"bad crate", `{"paths": [], "items": [{"id": 0, "crate_id": 1}], "crates": []}`},
		{"id mismatch", `{"paths": [{"id": 1, "path": "a", "kind": "module"}], "items": [], "crates": []}`},
		{"unknown kind", `{"paths": [{"id": 0, "path": "a", "kind": "closure"}], "items": [], "crates": []}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(tt.json))
			if !errs.Is(err, errs.ErrCodeApiParse) {
				t.Errorf("Read() error = %v, want API_PARSE", err)
			}
		})
	}
}

func TestAnyFeatureName(t *testing.T) {
	a := sample()
	for name, f := range a.Features {
		if f.Name() != name {
			t.Errorf("Name() = %q, want %q", f.Name(), name)
		}
	}
	if (AnyFeature{}).Name() != "" {
		t.Error("empty AnyFeature should have no name")
	}
}
