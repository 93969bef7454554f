package crates

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-test/deep"

	"github.com/matzehuels/crateapi/pkg/cache"
	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/integrations"
)

func TestNewClient(t *testing.T) {
	c := NewClient(cache.NewNullCache(), time.Hour)
	if c.Client == nil {
		t.Error("expected client to be initialized")
	}
}

func registry(t *testing.T) *httptest.Server {
	t.Helper()
	gz := func(s string) []byte {
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		zw.Write([]byte(s))
		zw.Close()
		return buf.Bytes()
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/crates/demo":
			w.Write([]byte(`{"crate": {"name": "demo", "max_version": "2.0.0-rc.1", "max_stable_version": "1.2.0"}}`))
		case "/crates/demo/1.2.0":
			w.Write([]byte(`{"version": {"crate": "demo", "num": "1.2.0",
				"features": {"default": ["std"], "std": [], "json": ["dep:serde_json"]}}}`))
		case "/crates/demo/1.2.0/dependencies":
			w.Write([]byte(`{"dependencies": [
				{"crate_id": "serde", "req": "^1.0.100", "kind": "normal", "optional": false},
				{"crate_id": "serde_json", "req": "^1", "kind": "normal", "optional": true},
				{"crate_id": "rand", "req": "^0.8", "kind": "normal", "optional": true},
				{"crate_id": "cc", "req": "^1.0", "kind": "build", "optional": false},
				{"crate_id": "criterion", "req": "^0.5", "kind": "dev", "optional": false}]}`))
		case "/crate/demo/1.2.0/json.gz":
			w.Write(gz(`{"root": "0:0"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_FetchRelease(t *testing.T) {
	server := registry(t)
	c := testClient(t, server.URL)

	rel, err := c.FetchRelease(context.Background(), "demo", Latest, true)
	if err != nil {
		t.Fatalf("FetchRelease failed: %v", err)
	}
	if rel.Name != "demo" || rel.Version != "1.2.0" {
		t.Errorf("release = %s@%s, want demo@1.2.0", rel.Name, rel.Version)
	}

	var names []string
	for _, d := range rel.Dependencies {
		names = append(names, d.Name)
	}
	if diff := deep.Equal(names, []string{"serde", "serde_json", "rand", "cc"}); diff != nil {
		t.Errorf("dependencies: %v", diff)
	}
}

func TestReleaseManifest(t *testing.T) {
	server := registry(t)
	c := testClient(t, server.URL)

	rel, err := c.FetchRelease(context.Background(), "demo", "1.2.0", true)
	if err != nil {
		t.Fatal(err)
	}
	m := rel.Manifest()

	if m.Name != "demo" || m.Version != "1.2.0" {
		t.Errorf("manifest = %s %s", m.Name, m.Version)
	}
	if got := m.Dependencies[0].Version.String(); got != "^1.0.100" {
		t.Errorf("serde requirement = %s", got)
	}

	// serde_json is only reachable through dep:, rand gets an implicit feature.
	var features []string
	for name := range m.Features {
		features = append(features, name)
	}
	if _, ok := m.Features["serde_json"]; ok {
		t.Error("dep: reference should suppress the implicit feature")
	}
	if f, ok := m.Features["rand"]; !ok || f.Dependency == nil {
		t.Errorf("rand should be an implicit feature, features = %v", features)
	}
	if f, ok := m.Features["default"]; !ok || f.Feature == nil {
		t.Errorf("default feature missing, features = %v", features)
	}
}

func TestClient_FetchRustdoc(t *testing.T) {
	server := registry(t)
	c := testClient(t, server.URL)

	raw, err := c.FetchRustdoc(context.Background(), "demo", "1.2.0", true)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]string
	if err := json.Unmarshal(raw, &doc); err != nil || doc["root"] != "0:0" {
		t.Errorf("rustdoc = %s (%v)", raw, err)
	}
}

func TestClient_NotFound(t *testing.T) {
	server := registry(t)
	c := testClient(t, server.URL)
	ctx := context.Background()

	if _, err := c.FetchRelease(ctx, "nonexistent", Latest, true); !errs.Is(err, errs.ErrCodePackageNotFound) {
		t.Errorf("FetchRelease(nonexistent) = %v", err)
	}
	if _, err := c.FetchRelease(ctx, "demo", "9.9.9", true); !errs.Is(err, errs.ErrCodePackageNotFound) {
		t.Errorf("FetchRelease(demo@9.9.9) = %v", err)
	}
	if _, err := c.FetchRustdoc(ctx, "demo", "0.1.0", true); !errs.Is(err, errs.ErrCodePackageNotFound) {
		t.Errorf("FetchRustdoc(demo@0.1.0) = %v", err)
	}
	if _, err := c.FetchRelease(ctx, "../etc", Latest, true); !errs.Is(err, errs.ErrCodeInvalidPackage) {
		t.Errorf("invalid name = %v", err)
	}
}

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	headers := map[string]string{
		"User-Agent": integrations.UserAgent(),
	}
	return &Client{
		Client:  integrations.NewClient(cache.NewNullCache(), "crates:", time.Hour, headers),
		baseURL: serverURL,
		docsURL: serverURL,
	}
}
