package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/crateapi/pkg/api"
	"github.com/matzehuels/crateapi/pkg/cache"
	"github.com/matzehuels/crateapi/pkg/diff"
	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/integrations/crates"
)

// rawFixture is a library re-exporting one type from each of its
// dependencies.
const rawFixture = `{
  "root": "0:0",
  "index": {
    "0:0": {"crate_id": 0, "name": "demo", "kind": "module",
            "inner": {"is_crate": true, "items": ["0:1", "0:2", "0:3"]}},
    "0:1": {"crate_id": 0, "name": "Thing", "kind": "struct", "inner": {}},
    "0:2": {"crate_id": 0, "kind": "import",
            "inner": {"source": "serde_json::Value", "name": "Value", "id": "1:9", "glob": false}},
    "0:3": {"crate_id": 0, "kind": "import",
            "inner": {"source": "anyhow::Error", "name": "Error", "id": "2:4", "glob": false}}
  },
  "paths": {
    "0:0": {"crate_id": 0, "path": ["demo"], "kind": "module"},
    "0:1": {"crate_id": 0, "path": ["demo", "Thing"], "kind": "struct"},
    "1:9": {"crate_id": 1, "path": ["serde_json", "Value"], "kind": "enum"},
    "2:4": {"crate_id": 2, "path": ["anyhow", "Error"], "kind": "struct"}
  },
  "external_crates": {
    "0": {"name": "demo"},
    "1": {"name": "serde_json"},
    "2": {"name": "anyhow"}
  }
}`

func cargoToml(serdeJSON, anyhow string) string {
	return `[package]
name = "demo"
version = "0.1.0"

[dependencies]
serde_json = "` + serdeJSON + `"
anyhow = "` + anyhow + `"
`
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(&bytes.Buffer{}, log.Options{})
}

func crateVersion(t *testing.T, a *api.Api, name string) string {
	t.Helper()
	for _, c := range a.Crates {
		if c.Name == name {
			if c.Version == nil {
				return ""
			}
			return c.Version.String()
		}
	}
	t.Fatalf("crate %s not found", name)
	return ""
}

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"pretty", false},
		{"md", false},
		{"json", false},
		{"dot", false},
		{"svg", false},
		{"silent", false},
		{"invalid", true},
		{"JSON", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errs.Is(err, errs.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s", tt.format, errs.GetCode(err))
		}
	}
}

func TestValidateDiffFormat(t *testing.T) {
	for _, f := range []string{"pretty", "md", "json", "silent"} {
		if err := ValidateDiffFormat(f); err != nil {
			t.Errorf("ValidateDiffFormat(%q) = %v", f, err)
		}
	}
	for _, f := range []string{"dot", "svg", ""} {
		if err := ValidateDiffFormat(f); err == nil {
			t.Errorf("ValidateDiffFormat(%q) should fail", f)
		}
	}
}

func TestOptionsValidateAndSetDefaults(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"manifest path", Options{ManifestPath: "Cargo.toml"}, false},
		{"raw", Options{Raw: json.RawMessage(`{}`)}, false},
		{"raw path", Options{RawPath: "doc.json"}, false},
		{"api path", Options{APIPath: "api.json"}, false},
		{"nothing", Options{}, true},
		{"manifest text only", Options{Manifest: "[package]"}, true},
		{"two sources", Options{RawPath: "doc.json", APIPath: "api.json"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.ValidateAndSetDefaults()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if !errs.Is(err, errs.ErrCodeInvalidInput) {
					t.Errorf("code = %s", errs.GetCode(err))
				}
				return
			}
			if tt.opts.Logger == nil {
				t.Error("logger default not applied")
			}
			if err := tt.opts.ValidateAndSetDefaults(); err != nil {
				t.Errorf("second call: %v", err)
			}
		})
	}
}

func TestBuildAPIMergesManifest(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	res, err := r.BuildAPI(context.Background(), Options{
		Raw:      json.RawMessage(rawFixture),
		Manifest: cargoToml("1.0.80", "1.0"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheHit {
		t.Error("null cache cannot hit")
	}
	if res.Manifest == nil || res.Manifest.Name != "demo" {
		t.Errorf("manifest = %+v", res.Manifest)
	}
	if got := crateVersion(t, res.Api, "serde_json"); got != "^1.0.80" {
		t.Errorf("serde_json version = %q", got)
	}
	if got := crateVersion(t, res.Api, "anyhow"); got != "^1.0" {
		t.Errorf("anyhow version = %q", got)
	}
	if res.Stats.CrateCount != 2 || res.Stats.PathCount != res.Api.Paths.Len() {
		t.Errorf("stats = %+v", res.Stats)
	}
}

func TestBuildAPIWithoutManifest(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	res, err := r.BuildAPI(context.Background(), Options{Raw: json.RawMessage(rawFixture)})
	if err != nil {
		t.Fatal(err)
	}
	if got := crateVersion(t, res.Api, "serde_json"); got != "" {
		t.Errorf("version without manifest = %q, want none", got)
	}
}

func TestBuildAPIErrors(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	tests := []struct {
		name string
		opts Options
		code errs.Code
	}{
		{"malformed raw", Options{Raw: json.RawMessage(`{"root":`)}, errs.ErrCodeApiParse},
		{"missing raw file", Options{RawPath: filepath.Join(t.TempDir(), "nope.json")}, errs.ErrCodeFileNotFound},
		{"missing api file", Options{APIPath: filepath.Join(t.TempDir(), "nope.json")}, errs.ErrCodeFileNotFound},
		{"virtual manifest", Options{Raw: json.RawMessage(rawFixture), Manifest: "[workspace]\nmembers = []\n"}, errs.ErrCodeInvalidManifest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.BuildAPI(context.Background(), tt.opts)
			if !errs.Is(err, tt.code) {
				t.Errorf("err = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestBuildAPICache(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, quietLogger())
	opts := Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("1.0.80", "1.0")}

	first, err := r.BuildAPI(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.BuildAPI(ctx, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheHit || !second.CacheHit {
		t.Fatalf("cache hits = %v, %v; want false, true", first.CacheHit, second.CacheHit)
	}
	if first.CacheKey != second.CacheKey {
		t.Error("cache key should be stable")
	}

	want, _ := api.Marshal(first.Api)
	got, _ := api.Marshal(second.Api)
	if !bytes.Equal(want, got) {
		t.Errorf("cached graph differs from fresh build:\n%s\nvs\n%s", got, want)
	}

	refreshed, err := r.BuildAPI(ctx, Options{Raw: opts.Raw, Manifest: opts.Manifest, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.CacheHit {
		t.Error("refresh should skip the cache")
	}

	other, err := r.BuildAPI(ctx, Options{Raw: opts.Raw, Manifest: cargoToml("1.0.81", "1.0")})
	if err != nil {
		t.Fatal(err)
	}
	if other.CacheHit || other.CacheKey == first.CacheKey {
		t.Error("a different manifest must not reuse the cached graph")
	}
}

func TestCacheRoundTrip(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	res, err := r.BuildAPI(context.Background(), Options{
		Raw:      json.RawMessage(rawFixture),
		Manifest: cargoToml("1.0.80", "1.0"),
	})
	if err != nil {
		t.Fatal(err)
	}
	data, err := encodeAPI(res.Api)
	if err != nil {
		t.Fatal(err)
	}
	back, err := decodeAPI(data)
	if err != nil {
		t.Fatal(err)
	}
	if got := crateVersion(t, back, "serde_json"); got != "^1.0.80" {
		t.Errorf("decoded version = %q", got)
	}
	if _, err := decodeAPI([]byte("junk")); err == nil {
		t.Error("junk should not decode")
	}
}

func TestDiff(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	res, err := r.Diff(context.Background(),
		Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("1.0", "1.0")},
		Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("2.0", "1.9")},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Diffs) != 1 {
		t.Fatalf("got %d diffs, want 1: %+v", len(res.Diffs), res.Diffs)
	}
	if d := res.Diffs[0]; d.Rule.Name != diff.DependencyRequirement.Name || d.Severity != diff.SeverityWarn {
		t.Errorf("diff = %+v", d)
	}
	if !res.Breaking() || res.MaxSeverity != diff.SeverityWarn {
		t.Error("result should be breaking")
	}
}

func TestDiffSavedGraph(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, quietLogger())
	before, err := r.BuildAPI(ctx, Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("1.0", "1.0")})
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "api.json")
	if err := api.WriteFile(before.Api, path); err != nil {
		t.Fatal(err)
	}

	res, err := r.Diff(ctx,
		Options{APIPath: path},
		Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("1.0", "1.0")},
	)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Diffs) != 0 {
		t.Errorf("saved graph should match a rebuild: %+v", res.Diffs)
	}
}

func TestDiffReportsFailingSide(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	_, err := r.Diff(context.Background(),
		Options{Raw: json.RawMessage(rawFixture)},
		Options{Raw: json.RawMessage(`not json`)},
	)
	if err == nil || !strings.HasPrefix(err.Error(), "after: ") {
		t.Fatalf("err = %v, want after-side failure", err)
	}
	if !errs.Is(err, errs.ErrCodeApiParse) {
		t.Errorf("code = %s", errs.GetCode(err))
	}
}

func TestDumpRaw(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(`{"root":"0:0","index":{}}`), 0644); err != nil {
		t.Fatal(err)
	}
	r := NewRunner(nil, quietLogger())
	out, err := r.DumpRaw(context.Background(), Options{RawPath: path})
	if err != nil {
		t.Fatal(err)
	}
	want := "{\n  \"root\": \"0:0\",\n  \"index\": {}\n}\n"
	if string(out) != want {
		t.Errorf("DumpRaw =\n%s\nwant\n%s", out, want)
	}

	if _, err := r.DumpRaw(context.Background(), Options{APIPath: path}); !errs.Is(err, errs.ErrCodeInvalidInput) {
		t.Errorf("api_path should be rejected: %v", err)
	}
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	r := NewRunner(nil, quietLogger())
	res, err := r.BuildAPI(ctx, Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("1.0", "1.0")})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		format string
		want   string
	}{
		{FormatMarkdown, "# `demo`"},
		{FormatJSON, `"root_id": 0`},
		{FormatDOT, "digraph G {"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out, err := Render(ctx, res.Api, tt.format)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(out), tt.want) {
				t.Errorf("output missing %q:\n%s", tt.want, out)
			}
		})
	}

	if _, err := Render(ctx, res.Api, FormatPretty); !errs.Is(err, errs.ErrCodeUnsupported) {
		t.Errorf("pretty is a terminal format: %v", err)
	}
}

func TestRenderDiff(t *testing.T) {
	r := NewRunner(nil, quietLogger())
	res, err := r.Diff(context.Background(),
		Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("1.0", "1.0")},
		Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("2.0", "1.0")},
	)
	if err != nil {
		t.Fatal(err)
	}

	md, err := RenderDiff(res, FormatMarkdown)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(md), "## Breaking Changes") {
		t.Errorf("markdown:\n%s", md)
	}

	data, err := RenderDiff(res, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Breaking bool `json:"breaking"`
		Diffs    []struct {
			Summary string `json:"summary"`
		} `json:"diffs"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if !doc.Breaking || len(doc.Diffs) != 1 || !strings.Contains(doc.Diffs[0].Summary, "from ^1.0 to ^2.0") {
		t.Errorf("json = %s", data)
	}
}

func TestDiffAgainstPublished(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crates/demo":
			w.Write([]byte(`{"crate": {"name": "demo", "max_version": "0.1.0", "max_stable_version": "0.1.0"}}`))
		case "/crates/demo/0.1.0":
			w.Write([]byte(`{"version": {"crate": "demo", "num": "0.1.0", "features": {}}}`))
		case "/crates/demo/0.1.0/dependencies":
			w.Write([]byte(`{"dependencies": [
				{"crate_id": "serde_json", "req": "^1.0", "kind": "normal"},
				{"crate_id": "anyhow", "req": "^1.0", "kind": "normal"}]}`))
		case "/crate/demo/0.1.0/json.gz":
			w.Write([]byte(rawFixture))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	r := NewRunner(nil, quietLogger())
	r.Registry = crates.NewClient(nil, time.Hour).WithURLs(server.URL, server.URL)

	res, err := r.Diff(context.Background(),
		Options{Crate: "demo"},
		Options{Raw: json.RawMessage(rawFixture), Manifest: cargoToml("1.0", "2.0")},
	)
	if err != nil {
		t.Fatal(err)
	}
	if res.Before.Manifest == nil || res.Before.Manifest.Version != "0.1.0" {
		t.Errorf("before manifest = %+v", res.Before.Manifest)
	}
	if len(res.Diffs) != 1 || res.Diffs[0].Rule.Name != diff.DependencyRequirement.Name {
		t.Fatalf("diffs = %+v", res.Diffs)
	}
	if name := res.After.Api.Crates.Get(*res.Diffs[0].After.CrateID).Name; name != "anyhow" {
		t.Errorf("changed crate = %s, want anyhow", name)
	}
}
