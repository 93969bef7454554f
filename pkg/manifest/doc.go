// Package manifest loads Cargo.toml package descriptors and merges them
// into an [api.Api].
//
// Only what the public surface needs is read: the package name and
// version, normal and target-specific dependencies with their version
// requirements and renames, declared features, and workspace members.
// Dev-dependencies never appear in a public API and are skipped.
//
//	m, err := manifest.Load("Cargo.toml")
//	m.Merge(a)
//
// Merge attaches a version requirement to a crate only when the match is
// unambiguous, and never fails.
package manifest
