package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/crateapi/pkg/api"
	"github.com/matzehuels/crateapi/pkg/cache"
	"github.com/matzehuels/crateapi/pkg/diff"
	"github.com/matzehuels/crateapi/pkg/integrations/crates"
	"github.com/matzehuels/crateapi/pkg/manifest"
	"github.com/matzehuels/crateapi/pkg/observability"
	"github.com/matzehuels/crateapi/pkg/rustdoc"
)

// cacheKeyType labels built graphs in cache hooks.
const cacheKeyType = "api"

// registryTTL bounds how long "latest" lookups may be stale.
const registryTTL = 6 * time.Hour

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner holds no per-run state: every build gets a fresh builder and
// every diff a fresh engine. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger

	// Registry resolves published releases. It shares Cache.
	Registry *crates.Client

	genMu sync.Mutex
}

// NewRunner creates a runner with the given cache.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:    c,
		Logger:   logger,
		Registry: crates.NewClient(c, registryTTL),
	}
}

// BuildAPI produces the graph for one package: a saved graph is loaded as
// is, otherwise the raw tree is built and the manifest merged into it.
func (r *Runner) BuildAPI(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	if opts.APIPath != "" {
		a, err := api.ReadFile(opts.APIPath)
		if err != nil {
			return nil, err
		}
		opts.Logger.Debug("loaded api", "path", opts.APIPath, "paths", a.Paths.Len())
		return &Result{Api: a, Stats: newStats(a)}, nil
	}

	m, raw, genTime, err := r.resolve(ctx, opts)
	if err != nil {
		return nil, err
	}

	key := cache.APIKey(raw, manifestDescriptor(m))
	if !opts.Refresh {
		if a, ok := r.cached(ctx, key, opts.Logger); ok {
			res := &Result{Api: a, Manifest: m, CacheHit: true, CacheKey: key, Stats: newStats(a)}
			res.Stats.GenerateTime = genTime
			return res, nil
		}
	}

	name := "unknown"
	if m != nil {
		name = m.Name
	}
	hooks := observability.Pipeline()
	hooks.OnBuildStart(ctx, name)
	start := time.Now()
	a, err := build(raw, m, opts.Logger)
	elapsed := time.Since(start)
	pathCount := 0
	if a != nil {
		pathCount = a.Paths.Len()
	}
	hooks.OnBuildComplete(ctx, name, pathCount, elapsed, err)
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug("built api",
		"package", name,
		"paths", a.Paths.Len(),
		"items", a.Items.Len(),
		"crates", a.Crates.Len(),
		"duration", elapsed)

	r.store(ctx, key, a, opts.Logger)

	res := &Result{Api: a, Manifest: m, CacheKey: key, Stats: newStats(a)}
	res.Stats.GenerateTime = genTime
	res.Stats.BuildTime = elapsed
	return res, nil
}

// Diff builds both sides concurrently and compares them. A failure on
// either side cancels the other.
func (r *Runner) Diff(ctx context.Context, before, after Options) (*DiffResult, error) {
	var res DiffResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := r.BuildAPI(gctx, before)
		if err != nil {
			return fmt.Errorf("before: %w", err)
		}
		res.Before = b
		return nil
	})
	g.Go(func() error {
		a, err := r.BuildAPI(gctx, after)
		if err != nil {
			return fmt.Errorf("after: %w", err)
		}
		res.After = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	logger := after.Logger
	if logger == nil {
		logger = r.Logger
	}
	start := time.Now()
	res.Diffs = diff.NewEngine(diff.WithLogger(logger)).Diff(res.Before.Api, res.After.Api)
	diff.Sort(res.Diffs)
	res.MaxSeverity = diff.MaxSeverity(res.Diffs)
	observability.Pipeline().OnDiffComplete(ctx, len(res.Diffs), res.MaxSeverity.String(), time.Since(start))

	logger.Debug("diffed apis", "diffs", len(res.Diffs), "max_severity", res.MaxSeverity)
	return &res, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func build(raw []byte, m *manifest.Manifest, logger *log.Logger) (*api.Api, error) {
	a, err := rustdoc.NewBuilder(rustdoc.WithLogger(logger)).BuildBytes(raw)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.Merge(a, manifest.WithLogger(logger))
	}
	return a, nil
}

// cached returns the graph stored under key. Undecodable entries are
// treated as misses.
func (r *Runner) cached(ctx context.Context, key string, logger *log.Logger) (*api.Api, bool) {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("cache read failed", "err", err)
	}
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	a, err := decodeAPI(data)
	if err != nil {
		logger.Debug("discarding cache entry", "key", key, "err", err)
		hooks.OnCacheMiss(ctx, cacheKeyType)
		return nil, false
	}
	hooks.OnCacheHit(ctx, cacheKeyType)
	logger.Debug("cache hit", "key", key)
	return a, true
}

func (r *Runner) store(ctx context.Context, key string, a *api.Api, logger *log.Logger) {
	data, err := encodeAPI(a)
	if err != nil {
		logger.Warn("encode api for cache", "err", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, cache.DefaultTTL); err != nil {
		logger.Warn("cache write failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cacheKeyType, len(data))
}

// encodeAPI serializes a graph with msgpack, reusing the json field names.
func encodeAPI(a *api.Api) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeAPI(data []byte) (*api.Api, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	var a api.Api
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.Features == nil {
		a.Features = make(map[string]api.AnyFeature)
	}
	return &a, nil
}

// manifestDescriptor is the part of a manifest that affects the merge.
// The file location does not, so moving a checkout keeps its cache entries.
func manifestDescriptor(m *manifest.Manifest) any {
	if m == nil {
		return nil
	}
	return struct {
		Name         string
		Version      string
		LibName      string
		Dependencies []manifest.Dependency
		Features     map[string]manifest.AnyFeature
	}{m.Name, m.Version, m.LibName, m.Dependencies, m.Features}
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
