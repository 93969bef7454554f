// Package crates provides an HTTP client for crates.io and docs.rs.
//
// # Overview
//
// A published release is analysed from two sources: crates.io describes
// the release (dependencies, requirements, features) and docs.rs serves
// the rustdoc JSON it built for it.
//
// # Usage
//
//	client := crates.NewClient(c, 24*time.Hour)
//
//	rel, err := client.FetchRelease(ctx, "serde", crates.Latest, false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	raw, err := client.FetchRustdoc(ctx, rel.Name, rel.Version, false)
//
//	m := rel.Manifest() // merge into the graph built from raw
//
// # Dependency Filtering
//
// Dev-dependencies are dropped: they are not part of the public surface.
//
// # User-Agent
//
// The client includes a User-Agent header as requested by crates.io policy.
package crates
