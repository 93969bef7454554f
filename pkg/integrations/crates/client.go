package crates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matzehuels/crateapi/pkg/cache"
	errs "github.com/matzehuels/crateapi/pkg/errors"
	"github.com/matzehuels/crateapi/pkg/integrations"
	"github.com/matzehuels/crateapi/pkg/manifest"
	"github.com/matzehuels/crateapi/pkg/semver"
)

// Latest asks for the newest stable release.
const Latest = "latest"

// Release is one published version of a crate.
type Release struct {
	Name    string `json:"name"`
	Version string `json:"version"`

	// Dependencies are normal and build dependencies in the order
	// crates.io returns them. Dev-dependencies are dropped.
	Dependencies []Dependency `json:"dependencies"`

	// Features are the declared features of this version.
	Features map[string][]string `json:"features"`
}

// Dependency is a dependency of a published release.
type Dependency struct {
	// Name is the underlying crate.
	Name     string `json:"crate_id"`
	Req      string `json:"req"`
	Kind     string `json:"kind"`
	Optional bool   `json:"optional"`
}

// Manifest converts the release into the package descriptor that is
// merged into its graph. Requirements crates.io reports that do not parse
// are left unset.
func (r *Release) Manifest() *manifest.Manifest {
	m := &manifest.Manifest{Name: r.Name, Version: r.Version}
	for _, d := range r.Dependencies {
		dep := manifest.Dependency{Name: d.Name, Optional: d.Optional}
		if req, err := semver.ParseReq(d.Req); err == nil {
			dep.Version = &req
		}
		m.Dependencies = append(m.Dependencies, dep)
	}
	m.SetFeatures(r.Features)
	return m
}

// Client provides access to crates.io and the docs.rs rustdoc JSON builds.
// It handles HTTP requests with caching and automatic retries.
//
// All methods are safe for concurrent use by multiple goroutines.
//
// Note: crates.io requires a User-Agent header; this client sets one automatically.
type Client struct {
	*integrations.Client
	baseURL string
	docsURL string
}

// NewClient creates a crates.io client with the given cache backend.
//
// Parameters:
//   - backend: Cache backend for response caching (nil disables caching)
//   - cacheTTL: How long responses are cached (typical: 1-24 hours)
//
// Published releases never change, so only "latest" lookups go stale.
func NewClient(backend cache.Cache, cacheTTL time.Duration) *Client {
	headers := map[string]string{
		"User-Agent": integrations.UserAgent(),
	}
	return &Client{
		Client:  integrations.NewClient(backend, "crates:", cacheTTL, headers),
		baseURL: "https://crates.io/api/v1",
		docsURL: "https://docs.rs",
	}
}

// WithURLs points the client at another crates.io API and docs.rs host,
// such as a mirror. Empty values keep the current host.
func (c *Client) WithURLs(apiURL, docsURL string) *Client {
	if apiURL != "" {
		c.baseURL = apiURL
	}
	if docsURL != "" {
		c.docsURL = docsURL
	}
	return c
}

// FetchRelease retrieves a published version of a crate. version may be
// [Latest].
//
// If refresh is true, the cache is bypassed and a fresh API call is made.
//
// Returns:
//   - Release populated with the descriptor on success
//   - [errs.ErrCodePackageNotFound] if the crate or version doesn't exist
//   - [integrations.ErrNetwork] for HTTP failures (timeout, 5xx, etc.)
func (c *Client) FetchRelease(ctx context.Context, crate, version string, refresh bool) (*Release, error) {
	if err := errs.ValidateCratesPackageName(crate); err != nil {
		return nil, err
	}
	if version == "" || version == Latest {
		v, err := c.latestVersion(ctx, crate, refresh)
		if err != nil {
			return nil, err
		}
		version = v
	}

	var rel Release
	err := c.Cached(ctx, "release:"+crate+"@"+version, refresh, &rel, func() error {
		return c.fetchRelease(ctx, crate, version, &rel)
	})
	if err != nil {
		return nil, notFound(err, "crate %s@%s", crate, version)
	}
	return &rel, nil
}

// FetchRustdoc downloads the raw documentation tree docs.rs built for a
// release. version must be concrete.
func (c *Client) FetchRustdoc(ctx context.Context, crate, version string, refresh bool) ([]byte, error) {
	if err := errs.ValidateCratesPackageName(crate); err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/crate/%s/%s/json.gz", c.docsURL, integrations.PathEscape(crate), integrations.PathEscape(version))
	data, err := c.CachedBytes(ctx, "rustdoc:"+crate+"@"+version, refresh, func() ([]byte, error) {
		return c.GetBytes(ctx, url)
	})
	if err != nil {
		return nil, notFound(err, "rustdoc json for %s@%s", crate, version)
	}
	return data, nil
}

func (c *Client) latestVersion(ctx context.Context, crate string, refresh bool) (string, error) {
	var data crateResponse
	err := c.Cached(ctx, "crate:"+crate, refresh, &data, func() error {
		return c.Get(ctx, fmt.Sprintf("%s/crates/%s", c.baseURL, integrations.PathEscape(crate)), &data)
	})
	if err != nil {
		return "", notFound(err, "crate %s", crate)
	}
	if v := data.Crate.MaxStableVersion; v != "" {
		return v, nil
	}
	if data.Crate.MaxVersion == "" {
		return "", errs.New(errs.ErrCodePackageNotFound, "crate %s has no releases", crate)
	}
	return data.Crate.MaxVersion, nil
}

func (c *Client) fetchRelease(ctx context.Context, crate, version string, rel *Release) error {
	base := fmt.Sprintf("%s/crates/%s/%s", c.baseURL, integrations.PathEscape(crate), integrations.PathEscape(version))

	var v versionResponse
	if err := c.Get(ctx, base, &v); err != nil {
		return err
	}
	var d depsResponse
	if err := c.Get(ctx, base+"/dependencies", &d); err != nil {
		return err
	}

	*rel = Release{
		Name:     v.Version.Crate,
		Version:  v.Version.Num,
		Features: v.Version.Features,
	}
	if rel.Name == "" {
		rel.Name = crate
	}
	for _, dep := range d.Dependencies {
		if dep.Kind == "dev" {
			continue
		}
		rel.Dependencies = append(rel.Dependencies, dep)
	}
	return nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, integrations.ErrNotFound) {
		return errs.Wrap(errs.ErrCodePackageNotFound, err, format, args...)
	}
	return err
}

type crateResponse struct {
	Crate struct {
		Name             string `json:"name"`
		MaxVersion       string `json:"max_version"`
		MaxStableVersion string `json:"max_stable_version"`
	} `json:"crate"`
}

type versionResponse struct {
	Version struct {
		Crate    string              `json:"crate"`
		Num      string              `json:"num"`
		Features map[string][]string `json:"features"`
	} `json:"version"`
}

type depsResponse struct {
	Dependencies []Dependency `json:"dependencies"`
}
