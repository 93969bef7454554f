// Package pkg provides the libraries behind crateapi, which extracts the
// public API of a Rust library and reports changes that can break its users.
//
// # Overview
//
// The pkg directory is organized into four areas:
//
//  1. Core - the graph model and the three analyses over it
//  2. Infrastructure - caching, hooks, coded errors
//  3. Integrations - crates.io and docs.rs clients
//  4. Orchestration - the pipeline and its HTTP surface
//
// # Architecture
//
// The data flow through crateapi:
//
//	Cargo.toml + rustdoc JSON (generated, read from disk, or from docs.rs)
//	         ↓
//	    [rustdoc] package (graph builder)
//	         ↓
//	    [manifest] package (merge version requirements and features)
//	         ↓
//	    [diff] package (compare two graphs)
//	         ↓
//	    [render] package (markdown, DOT, SVG)
//
// # Quick Start
//
//	import (
//	    "github.com/matzehuels/crateapi/pkg/diff"
//	    "github.com/matzehuels/crateapi/pkg/manifest"
//	    "github.com/matzehuels/crateapi/pkg/rustdoc"
//	)
//
//	before, _ := rustdoc.NewBuilder().BuildBytes(oldJSON)
//	after, _ := rustdoc.NewBuilder().BuildBytes(newJSON)
//
//	m, _ := manifest.Load("Cargo.toml")
//	m.Merge(after)
//
//	for _, d := range diff.Compute(before, after) {
//	    fmt.Println(d.Severity, d.Rule.Name)
//	}
//
// # Main Packages
//
// ## Core
//
// [api] - The graph: arenas of paths, items and external crates, plus
// feature flags. Ids are arena indices.
//
// [rustdoc] - Decoding of rustdoc JSON and the graph builder. Also runs the
// nightly documentation generator.
//
// [manifest] - Cargo.toml loading, workspace resolution and the merge of
// version requirements and features into a graph.
//
// [semver] - Cargo version requirements.
//
// [diff] - Diff records, rules and the engine that compares public
// dependencies by their breaking interval.
//
// [render] - Markdown for graphs and diffs; [render/nodelink] draws the path
// tree with Graphviz.
//
// ## Infrastructure
//
// [cache] - Byte caches (file, redis, null) keyed by content hashes.
//
// [observability] - Hooks for pipeline, cache and HTTP events.
//
// [errors] - Coded errors shared by every package.
//
// ## Integrations
//
// [integrations/crates] - crates.io release metadata and docs.rs rustdoc
// downloads, cached through [cache].
//
// ## Orchestration
//
// [pipeline] - Load, generate, build, merge and diff with caching. Shared by
// the CLI and the server.
//
// [server] - The HTTP API.
package pkg
